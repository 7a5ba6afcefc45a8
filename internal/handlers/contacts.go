package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/waddythomson/buwa-crm/internal/communications"
	"github.com/waddythomson/buwa-crm/internal/contacts"
)

type ContactsHandler struct {
	service        *contacts.Service
	communications *communications.Service
}

func NewContactsHandler(service *contacts.Service, comms *communications.Service) *ContactsHandler {
	return &ContactsHandler{
		service:        service,
		communications: comms,
	}
}

func (h *ContactsHandler) Register(e *echo.Echo) {
	group := e.Group("/contacts")
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.GET("/:id/timeline", h.Timeline)
}

type CreateContactResponse struct {
	Contact contacts.Contact `json:"contact"`
	IsNew   bool             `json:"is_new"`
}

// Create deduplicates on email and phone; an existing match is returned with 200.
func (h *ContactsHandler) Create(c echo.Context) error {
	staff, err := RequireStaff(c)
	if err != nil {
		return err
	}
	var req contacts.CreateRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	item, created, err := h.service.Create(c.Request().Context(), staff, req)
	if err != nil {
		return httpError(err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, CreateContactResponse{Contact: item, IsNew: created})
}

func (h *ContactsHandler) Get(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	item, err := h.service.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ContactsHandler) Timeline(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := h.service.GetByID(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	items, err := h.communications.Timeline(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}
