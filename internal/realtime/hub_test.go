package realtime

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// stubVerifier resolves tokens from a fixed table.
type stubVerifier struct {
	identities map[string]Identity
}

func (v *stubVerifier) Verify(token string) (Identity, error) {
	id, ok := v.identities[token]
	if !ok {
		return Identity{}, errors.New("invalid token")
	}
	return id, nil
}

func newTestHub() *Hub {
	return NewHub(&stubVerifier{identities: map[string]Identity{
		"tok-u1":     {UserID: "u1", Name: "alice", Role: "user"},
		"tok-u2":     {UserID: "u2", Name: "bob", Role: "user"},
		"tok-a1":     {UserID: "a1", Name: "root", Role: "admin"},
		"tok-a2":     {UserID: "a2", Name: "ops", Role: "admin"},
		"tok-posing": {UserID: "u9", Name: "mallory", Role: "user"},
	}}, nil)
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v received", kind)
			}
		default:
			return
		}
	}
}

func connect(t *testing.T, hub *Hub) *Client {
	t.Helper()

	c := NewClient()
	hub.Register(c)
	mustEvent(t, c.Events, EventConnected)
	return c
}

func TestRegisterGreetsConnection(t *testing.T) {
	hub := newTestHub()

	c := NewClient()
	hub.Register(c)

	ev := mustEvent(t, c.Events, EventConnected)
	if ev.Message != "connected" {
		t.Fatalf("unexpected greeting: %+v", ev)
	}
}

func TestAdminAuthBuildsAdminSet(t *testing.T) {
	hub := newTestHub()

	a1 := connect(t, hub)
	a2 := connect(t, hub)

	hub.AuthenticateAdmin(a1, "tok-a1")
	hub.AuthenticateAdmin(a2, "tok-a2")
	mustEvent(t, a1.Events, EventAuthSuccess)
	mustEvent(t, a2.Events, EventAuthSuccess)

	if len(hub.admins) != 2 {
		t.Fatalf("expected 2 admin connections, got %d", len(hub.admins))
	}
	if hub.registry[AdminKey("a1")] != a1 || hub.registry[AdminKey("a2")] != a2 {
		t.Fatalf("admin connections not reachable by key")
	}
}

func TestAdminAuthRejectsUserRole(t *testing.T) {
	hub := newTestHub()

	c := connect(t, hub)
	hub.AuthenticateAdmin(c, "tok-posing")

	ev := mustEvent(t, c.Events, EventAuthError)
	if ev.Message == "" {
		t.Fatalf("expected error message on auth rejection")
	}
	if len(hub.admins) != 0 {
		t.Fatalf("rejected connection must not enter the admin set")
	}
	if len(hub.registry) != 0 {
		t.Fatalf("rejected connection must not be registered")
	}

	// The connection stays open and can still authenticate.
	hub.AuthenticateUser(c, "tok-u1")
	mustEvent(t, c.Events, EventAuthSuccess)
}

func TestAuthSuccessCarriesIdentity(t *testing.T) {
	hub := newTestHub()

	c := connect(t, hub)
	hub.AuthenticateUser(c, "tok-u1")

	ev := mustEvent(t, c.Events, EventAuthSuccess)
	if ev.User == nil || ev.User.UserID != "u1" || ev.User.Name != "alice" || ev.User.Role != "user" {
		t.Fatalf("unexpected auth identity: %+v", ev.User)
	}
}

func TestInvalidTokenKeepsConnectionUnauthenticated(t *testing.T) {
	hub := newTestHub()

	c := connect(t, hub)
	hub.AuthenticateUser(c, "garbage")

	mustEvent(t, c.Events, EventAuthError)
	if len(hub.registry) != 0 {
		t.Fatalf("invalid token must not register the connection")
	}
}

func TestReauthReplacesRegistryEntry(t *testing.T) {
	hub := newTestHub()

	c := connect(t, hub)
	hub.AuthenticateUser(c, "tok-u1")
	mustEvent(t, c.Events, EventAuthSuccess)
	hub.AuthenticateUser(c, "tok-u2")
	mustEvent(t, c.Events, EventAuthSuccess)

	if _, ok := hub.registry[UserKey("u1")]; ok {
		t.Fatalf("old key must no longer resolve after re-authentication")
	}
	if hub.registry[UserKey("u2")] != c {
		t.Fatalf("new key must resolve to the connection")
	}
}

func TestUserAuthRemovesAdminFlag(t *testing.T) {
	hub := newTestHub()

	c := connect(t, hub)
	hub.AuthenticateAdmin(c, "tok-a1")
	mustEvent(t, c.Events, EventAuthSuccess)
	hub.AuthenticateUser(c, "tok-u1")
	mustEvent(t, c.Events, EventAuthSuccess)

	if len(hub.admins) != 0 {
		t.Fatalf("connection re-authenticated as plain user must leave the admin set")
	}
	if _, ok := hub.registry[AdminKey("a1")]; ok {
		t.Fatalf("stale admin key must be removed")
	}
}

func TestNewReportReachesOnlyAdmins(t *testing.T) {
	hub := newTestHub()

	admin := connect(t, hub)
	user := connect(t, hub)
	anon := connect(t, hub)

	hub.AuthenticateAdmin(admin, "tok-a1")
	mustEvent(t, admin.Events, EventAuthSuccess)
	hub.AuthenticateUser(user, "tok-u1")
	mustEvent(t, user.Events, EventAuthSuccess)

	hub.BroadcastNewReport(map[string]string{"id": "r1"})

	mustEvent(t, admin.Events, EventNewReport)
	mustNoEvent(t, user.Events, EventNewReport)
	mustNoEvent(t, anon.Events, EventNewReport)
}

func TestReportUpdatedReachesEveryConnection(t *testing.T) {
	hub := newTestHub()

	admin := connect(t, hub)
	user := connect(t, hub)
	anon := connect(t, hub)

	hub.AuthenticateAdmin(admin, "tok-a1")
	mustEvent(t, admin.Events, EventAuthSuccess)
	hub.AuthenticateUser(user, "tok-u1")
	mustEvent(t, user.Events, EventAuthSuccess)

	hub.BroadcastReportUpdated(map[string]string{"id": "r1"})

	mustEvent(t, admin.Events, EventReportUpdated)
	mustEvent(t, user.Events, EventReportUpdated)
	mustEvent(t, anon.Events, EventReportUpdated)
}

func TestVerificationBroadcastCarriesOutcome(t *testing.T) {
	hub := newTestHub()

	user := connect(t, hub)
	hub.AuthenticateUser(user, "tok-u1")
	mustEvent(t, user.Events, EventAuthSuccess)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	hub.BroadcastVerification("r1", "verified", "root", at)

	ev := mustEvent(t, user.Events, EventVerification)
	if ev.ReportID != "r1" || ev.Status != "verified" || ev.VerifiedBy != "root" || !ev.VerifiedAt.Equal(at) {
		t.Fatalf("unexpected verification event: %+v", ev)
	}
}

func TestAnalyticsUpdateHitsAdminsTwice(t *testing.T) {
	hub := newTestHub()

	admin := connect(t, hub)
	user := connect(t, hub)

	hub.AuthenticateAdmin(admin, "tok-a1")
	mustEvent(t, admin.Events, EventAuthSuccess)
	hub.AuthenticateUser(user, "tok-u1")
	mustEvent(t, user.Events, EventAuthSuccess)

	hub.BroadcastAnalyticsUpdate()

	mustEvent(t, admin.Events, EventAnalyticsUpdate)
	mustEvent(t, admin.Events, EventAnalyticsUpdate)
	mustEvent(t, user.Events, EventAnalyticsUpdate)
	mustNoEvent(t, user.Events, EventAnalyticsUpdate)
}

func TestNotifyOfflineUserIsNoop(t *testing.T) {
	hub := newTestHub()

	bystander := connect(t, hub)
	hub.AuthenticateUser(bystander, "tok-u2")
	mustEvent(t, bystander.Events, EventAuthSuccess)

	// Must complete without error and deliver nothing.
	hub.NotifyUser("u1", map[string]string{"id": "n1"})
	hub.PushUnreadCount("u1", 3)

	mustNoEvent(t, bystander.Events, EventNewNotification)
	mustNoEvent(t, bystander.Events, EventNotificationCount)
}

func TestNotifyUserReachesRegisteredConnection(t *testing.T) {
	hub := newTestHub()

	c := connect(t, hub)
	hub.AuthenticateUser(c, "tok-u1")
	mustEvent(t, c.Events, EventAuthSuccess)

	hub.NotifyUser("u1", map[string]string{"id": "n1"})
	ev := mustEvent(t, c.Events, EventNewNotification)
	if ev.Notification == nil {
		t.Fatalf("expected notification payload")
	}

	hub.PushUnreadCount("u1", 7)
	countEv := mustEvent(t, c.Events, EventNotificationCount)
	if countEv.UnreadCount != 7 {
		t.Fatalf("unexpected unread count: %d", countEv.UnreadCount)
	}
}

func TestSameUserSequentialAuthTargetsNewestConnection(t *testing.T) {
	hub := newTestHub()

	first := connect(t, hub)
	second := connect(t, hub)

	hub.AuthenticateUser(first, "tok-u1")
	mustEvent(t, first.Events, EventAuthSuccess)
	hub.AuthenticateUser(second, "tok-u1")
	mustEvent(t, second.Events, EventAuthSuccess)

	hub.PushUnreadCount("u1", 1)

	mustEvent(t, second.Events, EventNotificationCount)
	mustNoEvent(t, first.Events, EventNotificationCount)
}

func TestUnregisterRemovesConnectionEverywhere(t *testing.T) {
	hub := newTestHub()

	admin := connect(t, hub)
	hub.AuthenticateAdmin(admin, "tok-a1")
	mustEvent(t, admin.Events, EventAuthSuccess)

	hub.Unregister(admin)

	if len(hub.admins) != 0 {
		t.Fatalf("closed connection must leave the admin set")
	}
	if len(hub.registry) != 0 {
		t.Fatalf("closed connection must leave the registry")
	}

	// Subsequent broadcasts must never target it.
	hub.BroadcastNewReport(map[string]string{"id": "r1"})
	hub.NotifyUser("a1", map[string]string{"id": "n1"})
}

func TestUnregisterNeverAuthenticatedConnection(t *testing.T) {
	hub := newTestHub()

	c := connect(t, hub)
	hub.Unregister(c)

	if len(hub.conns) != 0 {
		t.Fatalf("closed connection must leave the connection set")
	}
}

func TestReplyErrorKeepsStateUnchanged(t *testing.T) {
	hub := newTestHub()

	c := connect(t, hub)
	hub.ReplyError(c, "invalid message")

	ev := mustEvent(t, c.Events, EventError)
	if ev.Message != "invalid message" {
		t.Fatalf("unexpected error reply: %+v", ev)
	}
	if len(hub.registry) != 0 || len(hub.admins) != 0 {
		t.Fatalf("error reply must not change connection state")
	}

	hub.Heartbeat(c)
	mustEvent(t, c.Events, EventPong)
}

func TestManyAdminsIndependentlyReachable(t *testing.T) {
	hub := newTestHub()

	verifier := &stubVerifier{identities: map[string]Identity{}}
	hub.verifier = verifier

	const n = 8
	clients := make([]*Client, 0, n)
	for i := 0; i < n; i++ {
		tok := fmt.Sprintf("tok-%d", i)
		verifier.identities[tok] = Identity{UserID: fmt.Sprintf("adm%d", i), Role: RoleAdmin}

		c := connect(t, hub)
		hub.AuthenticateAdmin(c, tok)
		mustEvent(t, c.Events, EventAuthSuccess)
		clients = append(clients, c)
	}

	if len(hub.admins) != n {
		t.Fatalf("expected %d admin connections, got %d", n, len(hub.admins))
	}
	for i, c := range clients {
		if hub.registry[AdminKey(fmt.Sprintf("adm%d", i))] != c {
			t.Fatalf("admin %d not reachable by key", i)
		}
	}
}
