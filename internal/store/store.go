package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Role values assigned to users.
const (
	RoleCitizen = "user"
	RoleAdmin   = "admin"
)

// User represents a registered citizen or admin.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// ReportStatus is the verification state of a report.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusVerified ReportStatus = "verified"
	ReportStatusRejected ReportStatus = "rejected"
)

// ReportType classifies the disaster being reported.
type ReportType string

const (
	ReportTypeFlood      ReportType = "flood"
	ReportTypeFire       ReportType = "fire"
	ReportTypeEarthquake ReportType = "earthquake"
	ReportTypeLandslide  ReportType = "landslide"
	ReportTypeStorm      ReportType = "storm"
	ReportTypeOther      ReportType = "other"
)

// Severity grades how serious a report is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Report is a citizen-submitted disaster report.
type Report struct {
	ID          string       `json:"id"`
	ReporterID  string       `json:"reporterId"`
	Type        ReportType   `json:"type"`
	Severity    Severity     `json:"severity"`
	Description string       `json:"description"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Address     string       `json:"address"`
	MediaURL    string       `json:"mediaUrl,omitempty"`
	Status      ReportStatus `json:"status"`
	VerifiedBy  string       `json:"verifiedBy,omitempty"`
	VerifiedAt  *time.Time   `json:"verifiedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Comment is a user comment attached to a report.
type Comment struct {
	ID        string    `json:"id"`
	ReportID  string    `json:"reportId"`
	UserID    string    `json:"userId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notification is a durable per-user notification record. The realtime hub
// only forwards these; it never creates them.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ReportID  string    `json:"reportId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReportFilter narrows report listings. Zero values mean "no filter".
type ReportFilter struct {
	Status   ReportStatus
	Type     ReportType
	Severity Severity
	Reporter string
}

// StatusCount is one bucket of an aggregate breakdown.
type StatusCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// DailyCount is the number of reports submitted on one day.
type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Summary aggregates report statistics for dashboards.
type Summary struct {
	Total      int           `json:"total"`
	ByStatus   []StatusCount `json:"byStatus"`
	ByType     []StatusCount `json:"byType"`
	BySeverity []StatusCount `json:"bySeverity"`
	Daily      []DailyCount  `json:"daily"`
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, name, email, passwordHash, role string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// ReportStore handles report persistence.
type ReportStore interface {
	// CreateReport persists a new report.
	CreateReport(ctx context.Context, r *Report) error

	// GetReportByID retrieves a report by ID.
	GetReportByID(ctx context.Context, id string) (*Report, error)

	// ListReports returns reports matching the filter, newest first.
	// Offset/limit paginate; limit <= 0 falls back to a server default.
	ListReports(ctx context.Context, filter ReportFilter, offset, limit int) ([]*Report, int, error)

	// UpdateReport persists mutable report fields.
	UpdateReport(ctx context.Context, r *Report) error

	// UpdateReportStatus records a verification outcome.
	UpdateReportStatus(ctx context.Context, id string, status ReportStatus, verifiedBy string, verifiedAt time.Time) error

	// DeleteReport removes a report and its comments.
	DeleteReport(ctx context.Context, id string) error
}

// CommentStore handles comment persistence.
type CommentStore interface {
	// CreateComment attaches a comment to a report.
	CreateComment(ctx context.Context, c *Comment) error

	// ListComments returns a report's comments, oldest first.
	ListComments(ctx context.Context, reportID string) ([]*Comment, error)
}

// NotificationStore handles notification persistence.
type NotificationStore interface {
	// CreateNotification persists a notification record.
	CreateNotification(ctx context.Context, n *Notification) error

	// ListNotifications returns a user's notifications, newest first.
	ListNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error)

	// CountUnread returns the user's unread notification count.
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkRead marks one of the user's notifications as read. A notification
	// owned by somebody else is indistinguishable from a missing one.
	MarkRead(ctx context.Context, userID, id string) error
}

// AnalyticsStore computes dashboard aggregates.
type AnalyticsStore interface {
	// Summarize aggregates report counts by status, type, severity and day.
	Summarize(ctx context.Context) (*Summary, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ReportStore
	CommentStore
	NotificationStore
	AnalyticsStore

	// Close closes the underlying database connection.
	Close() error
}
