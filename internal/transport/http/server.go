package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/civicalert/civicalert-server/internal/auth"
	"github.com/civicalert/civicalert-server/internal/config"
	"github.com/civicalert/civicalert-server/internal/realtime"
	"github.com/civicalert/civicalert-server/internal/service/analytics"
	"github.com/civicalert/civicalert-server/internal/service/notifications"
	"github.com/civicalert/civicalert-server/internal/service/reports"
)

// Services bundles the domain services the HTTP layer exposes.
type Services struct {
	Auth          *auth.Service
	Reports       *reports.Service
	Notifications *notifications.Service
	Analytics     *analytics.Service
}

// NewServer builds the HTTP server with all REST routes and the ws endpoint.
func NewServer(hub *realtime.Hub, svcs Services, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	// The ws endpoint takes no handshake credentials; clients authenticate
	// over the channel after connecting.
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, logger)))

	apiHandlers := NewAPIHandlers(svcs.Auth, logger)
	reportHandlers := NewReportHandlers(svcs.Reports, logger)
	adminHandlers := NewAdminHandlers(svcs.Reports, logger)
	notificationHandlers := NewNotificationHandlers(svcs.Notifications, logger)
	analyticsHandlers := NewAnalyticsHandlers(svcs.Analytics, logger)

	api := router.Group("/api")
	api.POST("/auth/register", apiHandlers.Register)
	api.POST("/auth/login", apiHandlers.Login)

	authed := api.Group("", AuthMiddleware(svcs.Auth, logger))
	authed.GET("/reports", reportHandlers.ListReports)
	authed.POST("/reports", reportHandlers.CreateReport)
	authed.GET("/reports/:id", reportHandlers.GetReport)
	authed.PUT("/reports/:id", reportHandlers.UpdateReport)
	authed.DELETE("/reports/:id", reportHandlers.DeleteReport)
	authed.GET("/reports/:id/comments", reportHandlers.ListComments)
	authed.POST("/reports/:id/comments", reportHandlers.AddComment)

	authed.GET("/notifications", notificationHandlers.ListNotifications)
	authed.GET("/notifications/unread-count", notificationHandlers.UnreadCount)
	authed.PUT("/notifications/:id/read", notificationHandlers.MarkRead)

	authed.GET("/analytics/summary", RequireAdmin(logger), analyticsHandlers.Summary)

	admin := authed.Group("/admin", RequireAdmin(logger))
	admin.PUT("/reports/:id/verify", adminHandlers.VerifyReport)
	admin.PUT("/reports/:id/reject", adminHandlers.RejectReport)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	fmt.Fprint(c.Writer, "ok")
}
