package realtime

import "time"

// EventKind is a notification the hub emits to clients.
type EventKind int

const (
	// EventConnected greets a client right after the transport connects.
	EventConnected EventKind = iota
	// EventAuthSuccess confirms an accepted authentication attempt.
	EventAuthSuccess
	// EventAuthError rejects an authentication attempt.
	EventAuthError
	// EventPong answers a client heartbeat.
	EventPong
	// EventError reports an undecodable inbound message.
	EventError
	// EventNewReport announces a freshly submitted report to admins.
	EventNewReport
	// EventReportUpdated announces a report mutation.
	EventReportUpdated
	// EventReportDeleted announces a report removal.
	EventReportDeleted
	// EventVerification announces a verification outcome.
	EventVerification
	// EventAnalyticsUpdate signals that dashboard aggregates changed.
	EventAnalyticsUpdate
	// EventNewNotification delivers a durable notification record.
	EventNewNotification
	// EventNotificationCount delivers a new unread count.
	EventNotificationCount
)

// Event is sent to clients to describe what happened in the system. Each
// kind fills only the fields it needs.
type Event struct {
	Kind         EventKind
	User         *Identity
	Message      string
	Report       any
	ReportID     string
	Status       string
	VerifiedBy   string
	VerifiedAt   time.Time
	Timestamp    time.Time
	Notification any
	UnreadCount  int
}
