package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RoleAdmin is the role claim required by the admin authentication path.
const RoleAdmin = "admin"

// CredentialVerifier decodes and validates a bearer credential presented
// over an already-open connection.
type CredentialVerifier interface {
	Verify(token string) (Identity, error)
}

// Hub owns all live connections and fans server events out to them.
//
// The registry maps role-qualified keys ("user_<id>", "admin_<id>") to at
// most one connection each; a newer authentication for the same key silently
// displaces the previous entry. A separate set tracks admin connections for
// role-wide fan-out. Both structures plus every send are guarded by one
// mutex since lifecycle callbacks and broadcast callers run on arbitrary
// goroutines.
//
// Delivery is fire-and-forget: a missing recipient, a closed connection or a
// full send buffer drops the event. Every pushed event has a durable
// counterpart the client can re-fetch, so a drop costs a delayed read, not
// data. There is no idle eviction; a silent connection stays registered
// until the transport closes.
type Hub struct {
	mu       sync.Mutex
	conns    map[*Client]struct{}
	registry map[string]*Client
	admins   map[*Client]struct{}

	verifier CredentialVerifier
	log      *zerolog.Logger
}

// NewHub creates a hub that validates credentials with the given verifier.
func NewHub(verifier CredentialVerifier, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		conns:    make(map[*Client]struct{}),
		registry: make(map[string]*Client),
		admins:   make(map[*Client]struct{}),
		verifier: verifier,
		log:      logger,
	}
}

// Register adds a freshly connected client and greets it.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c] = struct{}{}
	h.deliver(c, &Event{Kind: EventConnected, Message: "connected"})
	h.log.Debug().Str("conn_id", c.ID).Msg("connection registered")
}

// Unregister removes a closed client from the admin set and from every
// registry entry still pointing at it. The identity may never have been
// established, so the registry is scanned by value rather than by key.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	delete(h.admins, c)
	for key, existing := range h.registry {
		if existing == c {
			delete(h.registry, key)
		}
	}
	close(c.Events)
	h.log.Debug().Str("conn_id", c.ID).Msg("connection closed")
}

// AuthenticateUser handles a USER_AUTH message. Any valid credential binds
// the connection under the plain-user key, whatever its role claim.
func (h *Hub) AuthenticateUser(c *Client, token string) {
	identity, err := h.verifier.Verify(token)
	if err != nil {
		h.rejectAuth(c, err)
		return
	}
	h.bind(c, identity, false)
}

// AuthenticateAdmin handles an ADMIN_AUTH message. The credential must be
// valid and carry the admin role claim; otherwise the connection stays
// unauthenticated but open.
func (h *Hub) AuthenticateAdmin(c *Client, token string) {
	identity, err := h.verifier.Verify(token)
	if err != nil {
		h.rejectAuth(c, err)
		return
	}
	if identity.Role != RoleAdmin {
		h.rejectAuth(c, fmt.Errorf("admin role required"))
		return
	}
	h.bind(c, identity, true)
}

// Heartbeat answers a PING with a PONG. No state changes.
func (h *Hub) Heartbeat(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliver(c, &Event{Kind: EventPong})
}

// ReplyError tells a client its last message could not be decoded. The
// connection stays open.
func (h *Hub) ReplyError(c *Client, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliver(c, &Event{Kind: EventError, Message: msg})
}

// BroadcastNewReport announces a created report to every admin connection.
func (h *Hub) BroadcastNewReport(report any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ev := &Event{Kind: EventNewReport, Report: report}
	for c := range h.admins {
		h.deliver(c, ev)
	}
}

// BroadcastReportUpdated announces an updated report to every connection.
func (h *Hub) BroadcastReportUpdated(report any) {
	h.broadcastAll(&Event{Kind: EventReportUpdated, Report: report})
}

// BroadcastReportDeleted announces a removed report to every connection.
func (h *Hub) BroadcastReportDeleted(reportID string) {
	h.broadcastAll(&Event{Kind: EventReportDeleted, ReportID: reportID})
}

// BroadcastVerification announces a verification outcome to every connection.
func (h *Hub) BroadcastVerification(reportID, status, verifiedBy string, verifiedAt time.Time) {
	h.broadcastAll(&Event{
		Kind:       EventVerification,
		ReportID:   reportID,
		Status:     status,
		VerifiedBy: verifiedBy,
		VerifiedAt: verifiedAt,
	})
}

// BroadcastAnalyticsUpdate signals that aggregates changed: first to the
// admin set, then to every connection. Admin connections receive the signal
// twice, which clients treat as an idempotent refresh hint.
func (h *Hub) BroadcastAnalyticsUpdate() {
	h.mu.Lock()
	defer h.mu.Unlock()

	ev := &Event{Kind: EventAnalyticsUpdate, Timestamp: time.Now().UTC()}
	for c := range h.admins {
		h.deliver(c, ev)
	}
	for c := range h.conns {
		h.deliver(c, ev)
	}
}

// NotifyUser pushes a durable notification record to the single connection
// registered for the recipient, if any.
func (h *Hub) NotifyUser(userID string, notification any) {
	h.sendToUser(userID, &Event{Kind: EventNewNotification, Notification: notification})
}

// PushUnreadCount pushes a new unread-notification count to the recipient's
// connection, if any.
func (h *Hub) PushUnreadCount(userID string, count int) {
	h.sendToUser(userID, &Event{Kind: EventNotificationCount, UnreadCount: count})
}

func (h *Hub) broadcastAll(ev *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		h.deliver(c, ev)
	}
}

func (h *Hub) sendToUser(userID string, ev *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.registry[UserKey(userID)]
	if !ok {
		h.log.Debug().Str("user_id", userID).Msg("recipient offline, push dropped")
		return
	}
	h.deliver(c, ev)
}

// bind sets the client's identity and registry entry, displacing whatever
// key the client held before. Re-authentication overwrites; the displaced
// connection under the same key is not told.
func (h *Hub) bind(c *Client, identity Identity, admin bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return
	}

	if c.key != "" {
		if existing, ok := h.registry[c.key]; ok && existing == c {
			delete(h.registry, c.key)
		}
	}

	key := UserKey(identity.UserID)
	if admin {
		key = AdminKey(identity.UserID)
		h.admins[c] = struct{}{}
	} else {
		delete(h.admins, c)
	}

	id := identity
	c.identity = &id
	c.key = key
	c.admin = admin
	h.registry[key] = c

	h.deliver(c, &Event{Kind: EventAuthSuccess, User: &id})
	h.log.Info().
		Str("conn_id", c.ID).
		Str("user_id", identity.UserID).
		Str("role", identity.Role).
		Bool("admin", admin).
		Msg("connection authenticated")
}

func (h *Hub) rejectAuth(c *Client, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.deliver(c, &Event{Kind: EventAuthError, Message: err.Error()})
	h.log.Warn().Err(err).Str("conn_id", c.ID).Msg("authentication rejected")
}

// deliver writes an event to one client without blocking. Callers must hold
// h.mu, which also guarantees the channel cannot be closed mid-send.
func (h *Hub) deliver(c *Client, ev *Event) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	select {
	case c.Events <- ev:
	default:
		h.log.Debug().Str("conn_id", c.ID).Msg("send buffer full, event dropped")
	}
}

// UserKey is the registry key for a plain-user connection.
func UserKey(userID string) string { return "user_" + userID }

// AdminKey is the registry key for an admin connection.
func AdminKey(userID string) string { return "admin_" + userID }
