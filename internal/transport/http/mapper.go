package http

import (
	"time"

	"github.com/civicalert/civicalert-server/internal/proto"
	"github.com/civicalert/civicalert-server/internal/realtime"
)

func outboundFromEvent(event *realtime.Event) proto.Outbound {
	switch event.Kind {
	case realtime.EventConnected:
		return proto.Outbound{Type: proto.OutboundTypeConnected, Message: event.Message}
	case realtime.EventAuthSuccess:
		return proto.Outbound{
			Type: proto.OutboundTypeAuthSuccess,
			User: &proto.UserInfo{
				ID:   event.User.UserID,
				Name: event.User.Name,
				Role: event.User.Role,
			},
		}
	case realtime.EventAuthError:
		return proto.Outbound{Type: proto.OutboundTypeAuthError, Message: event.Message}
	case realtime.EventPong:
		return proto.Outbound{Type: proto.OutboundTypePong}
	case realtime.EventError:
		return proto.Outbound{Type: proto.OutboundTypeError, Message: event.Message}
	case realtime.EventNewReport:
		return proto.Outbound{Type: proto.OutboundTypeNewReport, Report: event.Report}
	case realtime.EventReportUpdated:
		return proto.Outbound{Type: proto.OutboundTypeReportUpdated, Report: event.Report}
	case realtime.EventReportDeleted:
		return proto.Outbound{Type: proto.OutboundTypeReportDeleted, ReportID: event.ReportID}
	case realtime.EventVerification:
		return proto.Outbound{
			Type:       proto.OutboundTypeVerification,
			ReportID:   event.ReportID,
			Status:     event.Status,
			VerifiedBy: event.VerifiedBy,
			VerifiedAt: event.VerifiedAt.Format(time.RFC3339),
		}
	case realtime.EventAnalyticsUpdate:
		return proto.Outbound{
			Type:      proto.OutboundTypeAnalyticsUpdate,
			Timestamp: event.Timestamp.Format(time.RFC3339),
		}
	case realtime.EventNewNotification:
		return proto.Outbound{Type: proto.OutboundTypeNewNotification, Notification: event.Notification}
	case realtime.EventNotificationCount:
		count := event.UnreadCount
		return proto.Outbound{Type: proto.OutboundTypeNotificationCount, UnreadCount: &count}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Message: "unknown event"}
	}
}
