package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/civicalert/civicalert-server/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function after
// the schema is applied. Useful for tests to seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS reports (
	id          TEXT PRIMARY KEY,
	reporter_id TEXT NOT NULL REFERENCES users(id),
	type        TEXT NOT NULL,
	severity    TEXT NOT NULL,
	description TEXT NOT NULL,
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	media_url   TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'pending',
	verified_by TEXT NOT NULL DEFAULT '',
	verified_at DATETIME,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);

CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	report_id  TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL REFERENCES users(id),
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_report_id ON comments(report_id);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	kind       TEXT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	report_id  TEXT NOT NULL DEFAULT '',
	is_read    INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);
`

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email, passwordHash, role string) (*store.User, error) {
	query := `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?)
	`
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, query, id, name, email, passwordHash, role); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== ReportStore implementation ====

// CreateReport persists a new report.
func (s *SQLiteStore) CreateReport(ctx context.Context, r *store.Report) error {
	query := `
		INSERT INTO reports (id, reporter_id, type, severity, description,
			latitude, longitude, address, media_url, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.ReporterID, r.Type, r.Severity, r.Description,
		r.Latitude, r.Longitude, r.Address, r.MediaURL, r.Status,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetReportByID retrieves a report by ID.
func (s *SQLiteStore) GetReportByID(ctx context.Context, id string) (*store.Report, error) {
	query := reportSelect + ` WHERE id = ?`

	var r store.Report
	var verifiedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.ReporterID, &r.Type, &r.Severity, &r.Description,
		&r.Latitude, &r.Longitude, &r.Address, &r.MediaURL, &r.Status,
		&r.VerifiedBy, &verifiedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("report %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query report: %w", err)
	}
	if verifiedAt.Valid {
		r.VerifiedAt = &verifiedAt.Time
	}

	return &r, nil
}

const reportSelect = `
	SELECT id, reporter_id, type, severity, description,
		latitude, longitude, address, media_url, status,
		verified_by, verified_at, created_at, updated_at
	FROM reports`

// ListReports returns reports matching the filter, newest first, plus the
// total match count for pagination.
func (s *SQLiteStore) ListReports(ctx context.Context, filter store.ReportFilter, offset, limit int) ([]*store.Report, int, error) {
	var conds []string
	var args []any
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.Reporter != "" {
		conds = append(conds, "reporter_id = ?")
		args = append(args, filter.Reporter)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := reportSelect + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []*store.Report
	for rows.Next() {
		var r store.Report
		var verifiedAt sql.NullTime
		if err := rows.Scan(
			&r.ID, &r.ReporterID, &r.Type, &r.Severity, &r.Description,
			&r.Latitude, &r.Longitude, &r.Address, &r.MediaURL, &r.Status,
			&r.VerifiedBy, &verifiedAt, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan report: %w", err)
		}
		if verifiedAt.Valid {
			r.VerifiedAt = &verifiedAt.Time
		}
		reports = append(reports, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reports: %w", err)
	}

	return reports, total, nil
}

// UpdateReport persists mutable report fields.
func (s *SQLiteStore) UpdateReport(ctx context.Context, r *store.Report) error {
	query := `
		UPDATE reports
		SET type = ?, severity = ?, description = ?,
			latitude = ?, longitude = ?, address = ?, media_url = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		r.Type, r.Severity, r.Description,
		r.Latitude, r.Longitude, r.Address, r.MediaURL, r.UpdatedAt,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return requireRow(result, "report")
}

// UpdateReportStatus records a verification outcome.
func (s *SQLiteStore) UpdateReportStatus(ctx context.Context, id string, status store.ReportStatus, verifiedBy string, verifiedAt time.Time) error {
	query := `
		UPDATE reports
		SET status = ?, verified_by = ?, verified_at = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, status, verifiedBy, verifiedAt, verifiedAt, id)
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	return requireRow(result, "report")
}

// DeleteReport removes a report; comments cascade.
func (s *SQLiteStore) DeleteReport(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return requireRow(result, "report")
}

// ==== CommentStore implementation ====

// CreateComment attaches a comment to a report.
func (s *SQLiteStore) CreateComment(ctx context.Context, c *store.Comment) error {
	query := `
		INSERT INTO comments (id, report_id, user_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, c.ID, c.ReportID, c.UserID, c.Body, c.CreatedAt); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ListComments returns a report's comments, oldest first.
func (s *SQLiteStore) ListComments(ctx context.Context, reportID string) ([]*store.Comment, error) {
	query := `
		SELECT id, report_id, user_id, body, created_at
		FROM comments
		WHERE report_id = ?
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []*store.Comment
	for rows.Next() {
		var c store.Comment
		if err := rows.Scan(&c.ID, &c.ReportID, &c.UserID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

// ==== NotificationStore implementation ====

// CreateNotification persists a notification record.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *store.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, kind, title, body, report_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, n.ID, n.UserID, n.Kind, n.Title, n.Body, n.ReportID, n.Read, n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string, limit int) ([]*store.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT id, user_id, kind, title, body, report_id, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*store.Notification
	for rows.Next() {
		var n store.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.ReportID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return notifications, nil
}

// CountUnread returns the user's unread notification count.
func (s *SQLiteStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the user's notifications as read. The update is
// scoped to the owner so one user cannot touch another user's unread state.
func (s *SQLiteStore) MarkRead(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return requireRow(result, "notification")
}

// ==== AnalyticsStore implementation ====

// Summarize aggregates report counts by status, type, severity and day.
func (s *SQLiteStore) Summarize(ctx context.Context) (*store.Summary, error) {
	summary := &store.Summary{}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&summary.Total); err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}

	var err error
	if summary.ByStatus, err = s.groupCount(ctx, "status"); err != nil {
		return nil, err
	}
	if summary.ByType, err = s.groupCount(ctx, "type"); err != nil {
		return nil, err
	}
	if summary.BySeverity, err = s.groupCount(ctx, "severity"); err != nil {
		return nil, err
	}

	query := `
		SELECT date(created_at) AS day, COUNT(*)
		FROM reports
		WHERE created_at >= date('now', '-6 days')
		GROUP BY day
		ORDER BY day ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query daily counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d store.DailyCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		summary.Daily = append(summary.Daily, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily counts: %w", err)
	}

	return summary, nil
}

// groupCount buckets reports by one of the fixed enum columns. The column
// name is always a compile-time constant, never user input.
func (s *SQLiteStore) groupCount(ctx context.Context, column string) ([]store.StatusCount, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM reports GROUP BY %s ORDER BY %s`, column, column, column)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("group by %s: %w", column, err)
	}
	defer rows.Close()

	var counts []store.StatusCount
	for rows.Next() {
		var c store.StatusCount
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", column, err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s counts: %w", column, err)
	}

	return counts, nil
}

func requireRow(result sql.Result, entity string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %w", entity, store.ErrNotFound)
	}
	return nil
}
