package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicalert/civicalert-server/internal/service/notifications"
	"github.com/civicalert/civicalert-server/internal/store"
)

var (
	// ErrForbidden is returned when a user touches a report they don't own.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyReviewed is returned when verifying a non-pending report.
	ErrAlreadyReviewed = errors.New("report already reviewed")
)

// Broadcaster is the realtime fan-out side. All calls are fire-and-forget;
// the service never learns whether anyone received them.
type Broadcaster interface {
	BroadcastNewReport(report any)
	BroadcastReportUpdated(report any)
	BroadcastReportDeleted(reportID string)
	BroadcastVerification(reportID, status, verifiedBy string, verifiedAt time.Time)
	BroadcastAnalyticsUpdate()
}

// Notifier creates durable notification records for report outcomes.
type Notifier interface {
	Create(ctx context.Context, userID, kind, title, body, reportID string) (*store.Notification, error)
}

// Store is the persistence surface the report service needs.
type Store interface {
	store.ReportStore
	store.CommentStore
}

// Service owns the report lifecycle: submission, mutation, the admin
// verification workflow and comments. Every durable mutation is followed by
// the matching hub fan-out.
type Service struct {
	store    Store
	hub      Broadcaster
	notifier Notifier
	log      *zerolog.Logger
}

// NewService creates a report service.
func NewService(st Store, hub Broadcaster, notifier Notifier, logger *zerolog.Logger) *Service {
	return &Service{
		store:    st,
		hub:      hub,
		notifier: notifier,
		log:      logger,
	}
}

// CreateInput carries the fields a citizen submits with a new report.
type CreateInput struct {
	Type        store.ReportType
	Severity    store.Severity
	Description string
	Latitude    float64
	Longitude   float64
	Address     string
	MediaURL    string
}

// UpdateInput carries the mutable report fields.
type UpdateInput = CreateInput

// Create persists a new pending report, announces it to admins and signals
// the analytics change.
func (s *Service) Create(ctx context.Context, reporterID string, in CreateInput) (*store.Report, error) {
	now := time.Now().UTC()
	report := &store.Report{
		ID:          uuid.NewString(),
		ReporterID:  reporterID,
		Type:        in.Type,
		Severity:    in.Severity,
		Description: in.Description,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Address:     in.Address,
		MediaURL:    in.MediaURL,
		Status:      store.ReportStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	s.log.Info().Str("report_id", report.ID).Str("reporter_id", reporterID).Msg("report created")
	s.hub.BroadcastNewReport(report)
	s.hub.BroadcastAnalyticsUpdate()

	return report, nil
}

// Get returns one report.
func (s *Service) Get(ctx context.Context, id string) (*store.Report, error) {
	return s.store.GetReportByID(ctx, id)
}

// List returns reports matching the filter plus the total match count.
func (s *Service) List(ctx context.Context, filter store.ReportFilter, offset, limit int) ([]*store.Report, int, error) {
	return s.store.ListReports(ctx, filter, offset, limit)
}

// Update mutates a report's submitted fields. Only the reporter or an admin
// may update; verification state is untouched.
func (s *Service) Update(ctx context.Context, userID string, isAdmin bool, id string, in UpdateInput) (*store.Report, error) {
	report, err := s.store.GetReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.ReporterID != userID && !isAdmin {
		return nil, ErrForbidden
	}

	report.Type = in.Type
	report.Severity = in.Severity
	report.Description = in.Description
	report.Latitude = in.Latitude
	report.Longitude = in.Longitude
	report.Address = in.Address
	report.MediaURL = in.MediaURL
	report.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("update report: %w", err)
	}

	s.hub.BroadcastReportUpdated(report)
	s.hub.BroadcastAnalyticsUpdate()

	return report, nil
}

// Delete removes a report. Only the reporter or an admin may delete.
func (s *Service) Delete(ctx context.Context, userID string, isAdmin bool, id string) error {
	report, err := s.store.GetReportByID(ctx, id)
	if err != nil {
		return err
	}
	if report.ReporterID != userID && !isAdmin {
		return ErrForbidden
	}

	if err := s.store.DeleteReport(ctx, id); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}

	s.log.Info().Str("report_id", id).Msg("report deleted")
	s.hub.BroadcastReportDeleted(id)
	s.hub.BroadcastAnalyticsUpdate()

	return nil
}

// Verify marks a pending report as verified by the given admin.
func (s *Service) Verify(ctx context.Context, adminName, id string) (*store.Report, error) {
	return s.review(ctx, adminName, id, store.ReportStatusVerified)
}

// Reject marks a pending report as rejected by the given admin.
func (s *Service) Reject(ctx context.Context, adminName, id string) (*store.Report, error) {
	return s.review(ctx, adminName, id, store.ReportStatusRejected)
}

// review records the verification outcome, notifies the reporter durably,
// then fans the outcome out to everyone.
func (s *Service) review(ctx context.Context, adminName, id string, status store.ReportStatus) (*store.Report, error) {
	report, err := s.store.GetReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != store.ReportStatusPending {
		return nil, ErrAlreadyReviewed
	}

	now := time.Now().UTC()
	if err := s.store.UpdateReportStatus(ctx, id, status, adminName, now); err != nil {
		return nil, fmt.Errorf("update report status: %w", err)
	}
	report.Status = status
	report.VerifiedBy = adminName
	report.VerifiedAt = &now
	report.UpdatedAt = now

	kind := notifications.KindReportVerified
	title := "Your report was verified"
	if status == store.ReportStatusRejected {
		kind = notifications.KindReportRejected
		title = "Your report was rejected"
	}
	body := fmt.Sprintf("Your %s report was %s by %s.", report.Type, status, adminName)
	if _, err := s.notifier.Create(ctx, report.ReporterID, kind, title, body, report.ID); err != nil {
		// The status change is already durable; the reporter just misses
		// the notification record.
		s.log.Error().Err(err).Str("report_id", id).Msg("failed to create verification notification")
	}

	s.log.Info().
		Str("report_id", id).
		Str("status", string(status)).
		Str("verified_by", adminName).
		Msg("report reviewed")

	s.hub.BroadcastVerification(report.ID, string(status), adminName, now)
	s.hub.BroadcastAnalyticsUpdate()

	return report, nil
}

// AddComment attaches a user comment to an existing report.
func (s *Service) AddComment(ctx context.Context, userID, reportID, body string) (*store.Comment, error) {
	if _, err := s.store.GetReportByID(ctx, reportID); err != nil {
		return nil, err
	}

	comment := &store.Comment{
		ID:        uuid.NewString(),
		ReportID:  reportID,
		UserID:    userID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	return comment, nil
}

// ListComments returns a report's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, reportID string) ([]*store.Comment, error) {
	return s.store.ListComments(ctx, reportID)
}
