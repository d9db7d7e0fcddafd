package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/civicalert/civicalert-server/internal/service/reports"
	"github.com/civicalert/civicalert-server/internal/store"
)

// ReportHandlers provides HTTP handlers for report endpoints.
type ReportHandlers struct {
	reports *reports.Service
	log     *zerolog.Logger
}

// NewReportHandlers creates a new report handlers instance.
func NewReportHandlers(svc *reports.Service, logger *zerolog.Logger) *ReportHandlers {
	return &ReportHandlers{
		reports: svc,
		log:     logger,
	}
}

// ReportRequest represents the create/update report request body.
type ReportRequest struct {
	Type        string  `json:"type" binding:"required,oneof=flood fire earthquake landslide storm other"`
	Severity    string  `json:"severity" binding:"required,oneof=low medium high critical"`
	Description string  `json:"description" binding:"required,min=10,max=2000"`
	Latitude    float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude   float64 `json:"longitude" binding:"min=-180,max=180"`
	Address     string  `json:"address" binding:"max=256"`
	MediaURL    string  `json:"mediaUrl" binding:"omitempty,url"`
}

// ReportListResponse wraps a page of reports.
type ReportListResponse struct {
	Reports []*store.Report `json:"reports"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// CommentRequest represents the add comment request body.
type CommentRequest struct {
	Body string `json:"body" binding:"required,min=1,max=1000"`
}

func (r ReportRequest) input() reports.CreateInput {
	return reports.CreateInput{
		Type:        store.ReportType(r.Type),
		Severity:    store.Severity(r.Severity),
		Description: r.Description,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Address:     r.Address,
		MediaURL:    r.MediaURL,
	}
}

// CreateReport handles report submission.
// POST /api/reports
func (h *ReportHandlers) CreateReport(c *gin.Context) {
	userID, _, _ := currentUser(c)

	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create report request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	report, err := h.reports.Create(c.Request.Context(), userID, req.input())
	if err != nil {
		h.log.Error().Err(err).Str("reporter_id", userID).Msg("failed to create report")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, report)
}

// ListReports handles report listing with filters and pagination.
// GET /api/reports
func (h *ReportHandlers) ListReports(c *gin.Context) {
	filter := store.ReportFilter{
		Status:   store.ReportStatus(c.Query("status")),
		Type:     store.ReportType(c.Query("type")),
		Severity: store.Severity(c.Query("severity")),
	}
	if c.Query("mine") == "true" {
		filter.Reporter, _, _ = currentUser(c)
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	list, total, err := h.reports.List(c.Request.Context(), filter, (page-1)*limit, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list reports")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if list == nil {
		list = []*store.Report{}
	}

	c.JSON(http.StatusOK, ReportListResponse{
		Reports: list,
		Total:   total,
		Page:    page,
		Limit:   limit,
	})
}

// GetReport handles fetching a single report.
// GET /api/reports/:id
func (h *ReportHandlers) GetReport(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondReportError(c, err, "failed to get report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// UpdateReport handles report mutation by its reporter (or an admin).
// PUT /api/reports/:id
func (h *ReportHandlers) UpdateReport(c *gin.Context) {
	userID, _, role := currentUser(c)

	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update report request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	report, err := h.reports.Update(c.Request.Context(), userID, role == store.RoleAdmin, c.Param("id"), req.input())
	if err != nil {
		h.respondReportError(c, err, "failed to update report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// DeleteReport handles report removal by its reporter (or an admin).
// DELETE /api/reports/:id
func (h *ReportHandlers) DeleteReport(c *gin.Context) {
	userID, _, role := currentUser(c)

	if err := h.reports.Delete(c.Request.Context(), userID, role == store.RoleAdmin, c.Param("id")); err != nil {
		h.respondReportError(c, err, "failed to delete report")
		return
	}

	c.Status(http.StatusNoContent)
}

// AddComment handles attaching a comment to a report.
// POST /api/reports/:id/comments
func (h *ReportHandlers) AddComment(c *gin.Context) {
	userID, _, _ := currentUser(c)

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid comment request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	comment, err := h.reports.AddComment(c.Request.Context(), userID, c.Param("id"), req.Body)
	if err != nil {
		h.respondReportError(c, err, "failed to add comment")
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// ListComments handles fetching a report's comments.
// GET /api/reports/:id/comments
func (h *ReportHandlers) ListComments(c *gin.Context) {
	comments, err := h.reports.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list comments")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if comments == nil {
		comments = []*store.Comment{}
	}

	c.JSON(http.StatusOK, comments)
}

func (h *ReportHandlers) respondReportError(c *gin.Context, err error, logMsg string) {
	respondReportError(c, h.log, err, logMsg)
}

func respondReportError(c *gin.Context, log *zerolog.Logger, err error, logMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "report not found"})
	case errors.Is(err, reports.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	case errors.Is(err, reports.ErrAlreadyReviewed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "report already reviewed"})
	default:
		log.Error().Err(err).Msg(logMsg)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
