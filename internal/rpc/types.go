package rpc

import (
	"time"

	"github.com/matheus3301/parley/internal/chat"
)

// Auth.

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResumeRequest struct {
	Token string `json:"token"`
}

type SessionResponse struct {
	Session *chat.Session `json:"session"`
}

type LoginOAuthRequest struct {
	Provider string `json:"provider"`
}

// OAuthEventType names a step of a device-flow sign-in.
type OAuthEventType string

const (
	OAuthVerification  OAuthEventType = "verification"
	OAuthAuthenticated OAuthEventType = "authenticated"
	OAuthFailed        OAuthEventType = "auth_failed"
)

// OAuthEvent is one message of the LoginOAuth stream. Verification events
// carry the URL and code to show the user; the final event carries either a
// session or a failure reason.
type OAuthEvent struct {
	Type            OAuthEventType  `json:"type"`
	VerificationURI string          `json:"verification_uri,omitempty"`
	UserCode        string          `json:"user_code,omitempty"`
	ExpiresAt       time.Time       `json:"expires_at,omitempty"`
	Session         *chat.Session   `json:"session,omitempty"`
	Reason          chat.AuthReason `json:"reason,omitempty"`
	Message         string          `json:"message,omitempty"`
}

type ProvidersRequest struct{}

type ProvidersResponse struct {
	Providers []string `json:"providers"`
}

// Conversations.

type SnapshotRequest struct{}

type SnapshotResponse struct {
	Conversations []*chat.Conversation `json:"conversations"`
}

type CreateDirectRequest struct {
	UserID string `json:"user_id"`
}

// CreateDirectResponse returns the pair's conversation. Created is false
// when another request created it first.
type CreateDirectResponse struct {
	Conversation *chat.Conversation `json:"conversation"`
	Created      bool               `json:"created"`
}

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type GetConversationRequest struct {
	ID string `json:"id"`
}

type ConversationResponse struct {
	Conversation *chat.Conversation `json:"conversation"`
}

type DeleteConversationRequest struct {
	ID string `json:"id"`
}

type DeleteConversationResponse struct{}

type ListUsersRequest struct{}

type ListUsersResponse struct {
	Users []chat.User `json:"users"`
}

// Messages.

type SendRequest struct {
	ConversationID string `json:"conversation_id"`
	Body           string `json:"body,omitempty"`
	Image          string `json:"image,omitempty"`
}

type SendResponse struct {
	Message *chat.Message `json:"message"`
}

type MarkSeenRequest struct {
	ConversationID string `json:"conversation_id"`
}

type MarkSeenResponse struct {
	Message *chat.Message `json:"message,omitempty"`
	Changed bool          `json:"changed"`
}

type ListMessagesRequest struct {
	ConversationID string    `json:"conversation_id"`
	Before         chat.Cursor `json:"before"`
	Limit          int         `json:"limit,omitempty"`
}

type ListMessagesResponse struct {
	Messages []*chat.Message `json:"messages"`
	HasMore  bool            `json:"has_more"`
}

// Events.

type WatchRequest struct {
	ChannelID string `json:"channel_id"`
}

// Daemon.

type StatusRequest struct{}

type StatusResponse struct {
	Profile       string   `json:"profile"`
	UptimeMs      int64    `json:"uptime_ms"`
	Users         int64    `json:"users"`
	Conversations int64    `json:"conversations"`
	Messages      int64    `json:"messages"`
	Providers     []string `json:"providers,omitempty"`
}
