package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/civicalert/civicalert-server/internal/service/reports"
)

// AdminHandlers provides HTTP handlers for the admin verification workflow.
type AdminHandlers struct {
	reports *reports.Service
	log     *zerolog.Logger
}

// NewAdminHandlers creates a new admin handlers instance.
func NewAdminHandlers(svc *reports.Service, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{
		reports: svc,
		log:     logger,
	}
}

// VerifyReport handles marking a report as verified.
// PUT /api/admin/reports/:id/verify
func (h *AdminHandlers) VerifyReport(c *gin.Context) {
	_, adminName, _ := currentUser(c)

	report, err := h.reports.Verify(c.Request.Context(), adminName, c.Param("id"))
	if err != nil {
		respondReportError(c, h.log, err, "failed to verify report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// RejectReport handles marking a report as rejected.
// PUT /api/admin/reports/:id/reject
func (h *AdminHandlers) RejectReport(c *gin.Context) {
	_, adminName, _ := currentUser(c)

	report, err := h.reports.Reject(c.Request.Context(), adminName, c.Param("id"))
	if err != nil {
		respondReportError(c, h.log, err, "failed to reject report")
		return
	}

	c.JSON(http.StatusOK, report)
}
