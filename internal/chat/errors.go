package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation references an unknown conversation or message.
	ErrNotFound = errors.New("chat: not found")
	// ErrConflictExisting signals that a direct conversation for the pair already exists.
	ErrConflictExisting = errors.New("chat: direct conversation already exists")
	// ErrTransportUnavailable is returned when the live stream or an outbound publish fails.
	ErrTransportUnavailable = errors.New("chat: transport unavailable")
	// ErrInvalidParticipants is returned when a conversation would have fewer than two members.
	ErrInvalidParticipants = errors.New("chat: a conversation needs at least two distinct participants")
	// ErrMissingMessageID is returned when a message without an id is appended.
	ErrMissingMessageID = errors.New("chat: message has no id")
	// ErrAccountLinked is returned when an OAuth sign-in names an email held by
	// a password account or by another provider.
	ErrAccountLinked = errors.New("chat: email is registered with another sign-in method")
	// ErrMessageIDInUse is returned when a message id already belongs to another conversation.
	ErrMessageIDInUse = errors.New("chat: message id belongs to another conversation")
)

// ConflictError carries the conversation that won a direct-creation race.
type ConflictError struct {
	Existing *Conversation
}

func (e *ConflictError) Error() string {
	if e.Existing == nil {
		return ErrConflictExisting.Error()
	}
	return fmt.Sprintf("%v: %s", ErrConflictExisting, e.Existing.ID)
}

func (e *ConflictError) Unwrap() error { return ErrConflictExisting }

// AuthReason is the reason code of a failed sign-in.
type AuthReason string

const (
	ReasonInvalidCredentials  AuthReason = "invalid_credentials"
	ReasonProviderRejected    AuthReason = "provider_rejected"
	ReasonProviderUnavailable AuthReason = "provider_unavailable"
	ReasonRateLimited         AuthReason = "rate_limited"
)

// AuthFailure is a credential or provider rejection. Err keeps the underlying cause.
type AuthFailure struct {
	Reason AuthReason
	Err    error
}

func (e *AuthFailure) Error() string {
	if e.Err == nil {
		return "auth failure: " + string(e.Reason)
	}
	return fmt.Sprintf("auth failure: %s: %v", e.Reason, e.Err)
}

func (e *AuthFailure) Unwrap() error { return e.Err }
