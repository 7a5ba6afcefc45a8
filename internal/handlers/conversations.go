package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/waddythomson/buwa-crm/internal/conversation"
)

// ConversationsHandler serves the staff inbox and thread state changes.
type ConversationsHandler struct {
	service conversation.Manager
}

func NewConversationsHandler(service conversation.Manager) *ConversationsHandler {
	return &ConversationsHandler{service: service}
}

func (h *ConversationsHandler) Register(e *echo.Echo) {
	group := e.Group("/conversations")
	group.GET("", h.List)
	group.GET("/count", h.Count)
	group.GET("/:id", h.Get)
	group.POST("/assign", h.Assign)
	group.POST("/status", h.SetStatus)
	group.POST("/:id/reopen", h.Reopen)
}

type AssignRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	UserID         string `json:"user_id"`
}

type StatusRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Status         string `json:"status" validate:"required"`
}

type ConversationResponse struct {
	Success      bool                      `json:"success"`
	Conversation conversation.Conversation `json:"conversation"`
}

type InboxResponse struct {
	Items []conversation.InboxItem `json:"items"`
}

// List godoc
// @Summary List active conversations, most recent first
// @Tags conversations
// @Produce json
// @Param assigned_to query string false "Assignee user id, or 'me'"
// @Param limit query int false "Maximum rows (default 100)"
// @Success 200 {object} InboxResponse
// @Failure 400 {object} ErrorResponse
// @Router /conversations [get]
func (h *ConversationsHandler) List(c echo.Context) error {
	staff, err := RequireStaff(c)
	if err != nil {
		return err
	}
	filter := conversation.ListFilter{AssignedTo: strings.TrimSpace(c.QueryParam("assigned_to"))}
	if filter.AssignedTo == "me" {
		filter.AssignedTo = staff.UserID
	}
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		filter.Limit = int32(n)
	}
	items, err := h.service.ListActive(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, InboxResponse{Items: items})
}

// Count godoc
// @Summary Count active conversations
// @Tags conversations
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /conversations/count [get]
func (h *ConversationsHandler) Count(c echo.Context) error {
	n, err := h.service.CountActive(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": n})
}

func (h *ConversationsHandler) Get(c echo.Context) error {
	item, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// Assign godoc
// @Summary Assign or unassign a conversation
// @Tags conversations
// @Accept json
// @Produce json
// @Param payload body AssignRequest true "Assignment; blank user_id clears it"
// @Success 200 {object} ConversationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /conversations/assign [post]
func (h *ConversationsHandler) Assign(c echo.Context) error {
	staff, err := RequireStaff(c)
	if err != nil {
		return err
	}
	var req AssignRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	item, err := h.service.Assign(c.Request().Context(), staff, req.ConversationID, req.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ConversationResponse{Success: true, Conversation: item})
}

// SetStatus godoc
// @Summary Change a conversation status
// @Tags conversations
// @Accept json
// @Produce json
// @Param payload body StatusRequest true "open, pending or closed"
// @Success 200 {object} ConversationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /conversations/status [post]
func (h *ConversationsHandler) SetStatus(c echo.Context) error {
	staff, err := RequireStaff(c)
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	item, err := h.service.SetStatus(c.Request().Context(), staff, req.ConversationID, req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ConversationResponse{Success: true, Conversation: item})
}

// Reopen godoc
// @Summary Reopen a closed conversation
// @Tags conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} ConversationResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /conversations/{id}/reopen [post]
func (h *ConversationsHandler) Reopen(c echo.Context) error {
	staff, err := RequireStaff(c)
	if err != nil {
		return err
	}
	item, err := h.service.Reopen(c.Request().Context(), staff, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ConversationResponse{Success: true, Conversation: item})
}
