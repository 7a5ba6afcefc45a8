package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/waddythomson/buwa-crm/internal/notes"
)

type NotesHandler struct {
	service *notes.Service
}

func NewNotesHandler(service *notes.Service) *NotesHandler {
	return &NotesHandler{service: service}
}

func (h *NotesHandler) Register(e *echo.Echo) {
	e.POST("/notes", h.Create)
	e.DELETE("/notes/:id", h.Delete)
}

func (h *NotesHandler) Create(c echo.Context) error {
	staff, err := RequireStaff(c)
	if err != nil {
		return err
	}
	var req notes.CreateRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	note, err := h.service.Create(c.Request().Context(), staff, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "note": note})
}

func (h *NotesHandler) Delete(c echo.Context) error {
	staff, err := RequireStaff(c)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "note id is required")
	}
	if err := h.service.Delete(c.Request().Context(), staff, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
