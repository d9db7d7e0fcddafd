package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/civicalert/civicalert-server/internal/service/analytics"
)

// AnalyticsHandlers provides HTTP handlers for dashboard aggregates.
type AnalyticsHandlers struct {
	analytics *analytics.Service
	log       *zerolog.Logger
}

// NewAnalyticsHandlers creates a new analytics handlers instance.
func NewAnalyticsHandlers(svc *analytics.Service, logger *zerolog.Logger) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		analytics: svc,
		log:       logger,
	}
}

// Summary handles fetching the dashboard summary.
// GET /api/analytics/summary
func (h *AnalyticsHandlers) Summary(c *gin.Context) {
	summary, err := h.analytics.Summary(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to summarize reports")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
