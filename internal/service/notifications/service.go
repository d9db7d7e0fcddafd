package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicalert/civicalert-server/internal/store"
)

// Notification kinds.
const (
	KindReportVerified = "report_verified"
	KindReportRejected = "report_rejected"
)

// Pusher is the realtime delivery side. Pushes are fire-and-forget; an
// offline recipient reads the durable record on the next fetch.
type Pusher interface {
	NotifyUser(userID string, notification any)
	PushUnreadCount(userID string, count int)
}

// Service persists notifications and forwards them for realtime delivery.
type Service struct {
	store  store.NotificationStore
	pusher Pusher
	log    *zerolog.Logger
}

// NewService creates a notification service.
func NewService(st store.NotificationStore, pusher Pusher, logger *zerolog.Logger) *Service {
	return &Service{
		store:  st,
		pusher: pusher,
		log:    logger,
	}
}

// Create persists a notification, then pushes the record and the recipient's
// new unread count over the hub.
func (s *Service) Create(ctx context.Context, userID, kind, title, body, reportID string) (*store.Notification, error) {
	n := &store.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		ReportID:  reportID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	s.pusher.NotifyUser(userID, n)
	s.pushUnreadCount(ctx, userID)

	return n, nil
}

// List returns a user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*store.Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit)
}

// UnreadCount returns the user's unread notification count.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkRead marks one of the user's notifications as read and pushes the
// updated unread count.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.store.MarkRead(ctx, userID, id); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}

	s.pushUnreadCount(ctx, userID)
	return nil
}

func (s *Service) pushUnreadCount(ctx context.Context, userID string) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		// The durable record is already consistent; only the push is lost.
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to count unread notifications")
		return
	}
	s.pusher.PushUnreadCount(userID, count)
}
