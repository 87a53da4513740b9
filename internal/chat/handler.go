package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fundingsense-backend/internal/shared/server/middleware"
	"fundingsense-backend/internal/shared/server/respond"
	"fundingsense-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the chat service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches chat routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat", h.chat)
	rg.GET("/chat/history", h.history)
}

func (h *Handler) chat(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if userID := middleware.UserIDFromContext(c); userID != "" {
		req.UserID = userID
	}

	ctx := telemetry.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	resp, err := h.Svc.Handle(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid chat request", []map[string]string{
				{"field": "message", "issue": err.Error()},
			})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to answer", nil)
		}
		return
	}
	respond.OK(c, resp)
}

func (h *Handler) history(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		userID = strings.TrimSpace(c.Query("user_id"))
	}
	turns, err := h.Svc.History(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			respond.Error(c, http.StatusBadRequest, "validation_error", "user id is required", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load chat history", nil)
		}
		return
	}
	respond.OK(c, turns)
}
