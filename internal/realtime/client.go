package realtime

import "github.com/google/uuid"

// Identity is the authenticated principal bound to a connection.
type Identity struct {
	UserID string
	Name   string
	Role   string
}

// Client is one live duplex connection as seen by the hub. A client starts
// unauthenticated; the hub binds an identity to it after a valid auth
// message and rebinds it if the peer authenticates again.
type Client struct {
	ID     string
	Events chan *Event

	// Mutated only while holding the owning hub's mutex.
	identity *Identity
	key      string
	admin    bool
}

// NewClient constructs an unauthenticated client with a fresh transport id.
func NewClient() *Client {
	return &Client{
		ID:     uuid.NewString(),
		Events: make(chan *Event, 16),
	}
}
