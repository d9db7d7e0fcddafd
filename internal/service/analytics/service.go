package analytics

import (
	"context"

	"github.com/civicalert/civicalert-server/internal/store"
)

// Service computes dashboard aggregates. Realtime "analytics changed"
// signals are emitted by the report service on mutation; this service only
// answers the subsequent fetches.
type Service struct {
	store store.AnalyticsStore
}

// NewService creates an analytics service.
func NewService(st store.AnalyticsStore) *Service {
	return &Service{store: st}
}

// Summary aggregates report counts by status, type, severity and day.
func (s *Service) Summary(ctx context.Context) (*store.Summary, error) {
	return s.store.Summarize(ctx)
}
