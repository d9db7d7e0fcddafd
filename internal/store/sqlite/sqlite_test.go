package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/civicalert/civicalert-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func seedUser(t *testing.T, st *SQLiteStore) *store.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), "alice", uuid.NewString()+"@example.com", "hash", store.RoleCitizen)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedReport(t *testing.T, st *SQLiteStore, reporterID string, mutate func(*store.Report)) *store.Report {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	r := &store.Report{
		ID:          uuid.NewString(),
		ReporterID:  reporterID,
		Type:        store.ReportTypeFlood,
		Severity:    store.SeverityHigh,
		Description: "river overflowing near the bridge",
		Latitude:    -6.2,
		Longitude:   106.8,
		Address:     "Jalan Merdeka 1",
		Status:      store.ReportStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if mutate != nil {
		mutate(r)
	}
	if err := st.CreateReport(context.Background(), r); err != nil {
		t.Fatalf("seed report: %v", err)
	}
	return r
}

func TestUserCRUD(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "alice", "alice@example.com", "hash", store.RoleCitizen)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == "" || user.Role != store.RoleCitizen {
		t.Fatalf("unexpected user: %+v", user)
	}

	byEmail, err := st.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("expected same user, got %+v", byEmail)
	}

	if _, err := st.GetUserByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Duplicate email violates the unique constraint.
	if _, err := st.CreateUser(ctx, "bob", "alice@example.com", "hash", store.RoleCitizen); err == nil {
		t.Fatalf("expected duplicate email to fail")
	}
}

func TestReportLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, st)

	created := seedReport(t, st, user.ID, nil)

	got, err := st.GetReportByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if got.Status != store.ReportStatusPending || got.VerifiedAt != nil {
		t.Fatalf("unexpected fresh report: %+v", got)
	}

	got.Description = "water level rising fast near the bridge"
	got.Severity = store.SeverityCritical
	got.UpdatedAt = time.Now().UTC()
	if err := st.UpdateReport(ctx, got); err != nil {
		t.Fatalf("update report: %v", err)
	}

	at := time.Now().UTC().Truncate(time.Second)
	if err := st.UpdateReportStatus(ctx, created.ID, store.ReportStatusVerified, "root", at); err != nil {
		t.Fatalf("update status: %v", err)
	}

	verified, err := st.GetReportByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get verified report: %v", err)
	}
	if verified.Status != store.ReportStatusVerified || verified.VerifiedBy != "root" {
		t.Fatalf("unexpected verified report: %+v", verified)
	}
	if verified.VerifiedAt == nil || !verified.VerifiedAt.Equal(at) {
		t.Fatalf("unexpected verified_at: %v", verified.VerifiedAt)
	}

	if err := st.DeleteReport(ctx, created.ID); err != nil {
		t.Fatalf("delete report: %v", err)
	}
	if _, err := st.GetReportByID(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := st.DeleteReport(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestListReportsFiltersAndPaginates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, st)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		i := i
		seedReport(t, st, user.ID, func(r *store.Report) {
			r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			r.UpdatedAt = r.CreatedAt
			if i%2 == 1 {
				r.Type = store.ReportTypeFire
				r.Severity = store.SeverityLow
			}
		})
	}

	all, total, err := st.ListReports(ctx, store.ReportFilter{}, 0, 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 5 || len(all) != 5 {
		t.Fatalf("expected 5 reports, got total=%d len=%d", total, len(all))
	}
	// Newest first.
	if all[0].CreatedAt.Before(all[4].CreatedAt) {
		t.Fatalf("expected newest-first ordering")
	}

	fires, total, err := st.ListReports(ctx, store.ReportFilter{Type: store.ReportTypeFire}, 0, 10)
	if err != nil {
		t.Fatalf("list fires: %v", err)
	}
	if total != 2 || len(fires) != 2 {
		t.Fatalf("expected 2 fire reports, got total=%d len=%d", total, len(fires))
	}

	page, total, err := st.ListReports(ctx, store.ReportFilter{}, 2, 2)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("expected page of 2 with total 5, got total=%d len=%d", total, len(page))
	}

	mine, total, err := st.ListReports(ctx, store.ReportFilter{Reporter: user.ID, Severity: store.SeverityHigh}, 0, 10)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if total != 3 || len(mine) != 3 {
		t.Fatalf("expected 3 high-severity reports, got total=%d len=%d", total, len(mine))
	}
}

func TestCommentsOrderedOldestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, st)
	report := seedReport(t, st, user.ID, nil)

	base := time.Now().UTC().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		c := &store.Comment{
			ID:        uuid.NewString(),
			ReportID:  report.ID,
			UserID:    user.ID,
			Body:      "stay safe",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := st.CreateComment(ctx, c); err != nil {
			t.Fatalf("create comment: %v", err)
		}
	}

	comments, err := st.ListComments(ctx, report.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("expected 3 comments, got %d", len(comments))
	}
	if comments[0].CreatedAt.After(comments[2].CreatedAt) {
		t.Fatalf("expected oldest-first ordering")
	}

	// Deleting the report cascades to its comments.
	if err := st.DeleteReport(ctx, report.ID); err != nil {
		t.Fatalf("delete report: %v", err)
	}
	remaining, err := st.ListComments(ctx, report.ID)
	if err != nil {
		t.Fatalf("list comments after delete: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected cascade delete, got %d comments", len(remaining))
	}
}

func TestNotificationsUnreadFlow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, st)

	var first, second string
	for i := 0; i < 3; i++ {
		n := &store.Notification{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			Kind:      "report_verified",
			Title:     "Your report was verified",
			Body:      "details inside",
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		switch i {
		case 0:
			first = n.ID
		case 1:
			second = n.ID
		}
		if err := st.CreateNotification(ctx, n); err != nil {
			t.Fatalf("create notification: %v", err)
		}
	}

	count, err := st.CountUnread(ctx, user.ID)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 unread, got %d", count)
	}

	if err := st.MarkRead(ctx, user.ID, first); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	count, err = st.CountUnread(ctx, user.ID)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}

	if err := st.MarkRead(ctx, user.ID, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Another user's mark-read attempt looks like a missing notification and
	// leaves the owner's unread state alone.
	other := seedUser(t, st)
	if err := st.MarkRead(ctx, other.ID, second); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign notification, got %v", err)
	}
	count, err = st.CountUnread(ctx, user.ID)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected unread count unchanged, got %d", count)
	}

	list, err := st.ListNotifications(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(list))
	}
}

func TestSummarizeAggregates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, st)

	seedReport(t, st, user.ID, nil)
	seedReport(t, st, user.ID, func(r *store.Report) {
		r.Type = store.ReportTypeFire
		r.Severity = store.SeverityLow
	})
	r3 := seedReport(t, st, user.ID, nil)
	if err := st.UpdateReportStatus(ctx, r3.ID, store.ReportStatusVerified, "root", time.Now().UTC()); err != nil {
		t.Fatalf("verify report: %v", err)
	}

	summary, err := st.Summarize(ctx)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if summary.Total != 3 {
		t.Fatalf("expected total 3, got %d", summary.Total)
	}

	statusCounts := map[string]int{}
	for _, c := range summary.ByStatus {
		statusCounts[c.Key] = c.Count
	}
	if statusCounts["pending"] != 2 || statusCounts["verified"] != 1 {
		t.Fatalf("unexpected status counts: %+v", summary.ByStatus)
	}

	typeCounts := map[string]int{}
	for _, c := range summary.ByType {
		typeCounts[c.Key] = c.Count
	}
	if typeCounts["flood"] != 2 || typeCounts["fire"] != 1 {
		t.Fatalf("unexpected type counts: %+v", summary.ByType)
	}

	if len(summary.Daily) == 0 {
		t.Fatalf("expected daily counts for recent reports")
	}
}
