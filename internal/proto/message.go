package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client. Auth messages
// carry a token; everything else uses only the type tag.
type Inbound struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Token string          `json:"token,omitempty"`
	Role  string          `json:"role,omitempty"`
}

// Inbound message types.
const (
	InboundTypeAdminAuth = "ADMIN_AUTH"
	InboundTypeUserAuth  = "USER_AUTH"
	InboundTypePing      = "PING"
)

// Outbound message types.
const (
	OutboundTypeConnected         = "CONNECTED"
	OutboundTypeAuthSuccess       = "AUTH_SUCCESS"
	OutboundTypeAuthError         = "AUTH_ERROR"
	OutboundTypePong              = "PONG"
	OutboundTypeError             = "ERROR"
	OutboundTypeNewReport         = "NEW_REPORT"
	OutboundTypeReportUpdated     = "REPORT_UPDATED"
	OutboundTypeReportDeleted     = "REPORT_DELETED"
	OutboundTypeVerification      = "REPORT_VERIFICATION"
	OutboundTypeAnalyticsUpdate   = "ANALYTICS_UPDATE"
	OutboundTypeNewNotification   = "NEW_NOTIFICATION"
	OutboundTypeNotificationCount = "NOTIFICATION_COUNT_UPDATE"
)

// UserInfo identifies the authenticated user in an AUTH_SUCCESS reply.
type UserInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Outbound is the envelope for messages sent to the client. Each type fills
// exactly the fields it needs; the rest stay omitted.
type Outbound struct {
	Type         string    `json:"type"`
	Message      string    `json:"message,omitempty"`
	User         *UserInfo `json:"user,omitempty"`
	Report       any       `json:"report,omitempty"`
	ReportID     string    `json:"reportId,omitempty"`
	Status       string    `json:"status,omitempty"`
	VerifiedBy   string    `json:"verifiedBy,omitempty"`
	VerifiedAt   string    `json:"verifiedAt,omitempty"`
	Timestamp    string    `json:"timestamp,omitempty"`
	Notification any       `json:"notification,omitempty"`
	UnreadCount  *int      `json:"unreadCount,omitempty"`
}
