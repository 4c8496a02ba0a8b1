package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Kinds published inside a client process.
const (
	KindStatusChanged        = "session.status_changed"
	KindAuthFailed           = "notice.auth_failed"
	KindTransportUnavailable = "notice.transport_unavailable"
	KindNavRedirect          = "nav.redirect"
	KindNavAway              = "nav.away"
	KindIndexChanged         = "index.changed"
	KindSendFailed           = "message.send_failed"
)

// UserNamespace is the prefix of every event fanned out to one user.
func UserNamespace(userID string) string {
	return "user." + userID + "."
}

// UserKind scopes kind to the channel of userID.
func UserKind(userID, kind string) string {
	return UserNamespace(userID) + kind
}

// NewEvent returns an event stamped with the current time.
func NewEvent(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
