package analyses

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/shared/server/middleware"
	"fundingsense-backend/internal/shared/server/respond"
	"fundingsense-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.analyze)
	rg.GET("/history", h.history)
	rg.GET("/analyses/:id", h.getAnalysis)
	rg.GET("/stats", h.stats)
	rg.GET("/evidence", h.evidence)
	rg.GET("/library", h.library)
}

func (h *Handler) analyze(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if userID := middleware.UserIDFromContext(c); userID != "" {
		req.UserID = userID
	}

	ctx := telemetry.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	analysis, err := h.Svc.Run(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid analysis request", []map[string]string{
				{"field": "description", "issue": err.Error()},
			})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to run analysis", nil)
		}
		return
	}
	c.Set("analysisId", analysis.ID)
	respond.OK(c, analysis)
}

func (h *Handler) history(c *gin.Context) {
	list, err := h.Svc.History(c.Request.Context(), scopeUserID(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}
	respond.OK(c, list)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	analysisID := strings.TrimSpace(c.Param("id"))
	if analysisID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id is required", nil)
		return
	}
	c.Set("analysisId", analysisID)

	analysis, err := h.Svc.Get(c.Request.Context(), analysisID, scopeUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load analysis", nil)
		}
		return
	}
	respond.OK(c, analysis)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context(), scopeUserID(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute stats", nil)
		return
	}
	respond.OK(c, stats)
}

func (h *Handler) evidence(c *gin.Context) {
	units, err := h.Svc.Evidence(c.Request.Context(), scopeUserID(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list evidence", nil)
		return
	}
	respond.OK(c, units)
}

func (h *Handler) library(c *gin.Context) {
	limit := evidence.DefaultListLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a positive integer", nil)
			return
		}
		limit = n
	}
	units, err := h.Svc.Library(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list evidence library", nil)
		return
	}
	respond.OK(c, units)
}

// scopeUserID prefers the identity header and falls back to ?user_id=.
func scopeUserID(c *gin.Context) string {
	if userID := middleware.UserIDFromContext(c); userID != "" {
		return userID
	}
	return strings.TrimSpace(c.Query("user_id"))
}
