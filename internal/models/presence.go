package models

// PresenceKind names a presence channel message.
type PresenceKind string

const (
	PresenceSnapshot     PresenceKind = "snapshot"
	PresenceConnected    PresenceKind = "connected"
	PresenceDisconnected PresenceKind = "disconnected"
)

// PresenceEvent is one message delivered by the presence channel.
type PresenceEvent struct {
	Kind    PresenceKind `json:"type"`
	UserID  string       `json:"user_id,omitempty"`
	UserIDs []string     `json:"user_ids,omitempty"`
}
