package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/waddythomson/buwa-crm/internal/ingest"
)

// OutboundHandler serves staff-initiated SMS and calls.
type OutboundHandler struct {
	ingest *ingest.Service
}

func NewOutboundHandler(svc *ingest.Service) *OutboundHandler {
	return &OutboundHandler{ingest: svc}
}

func (h *OutboundHandler) Register(e *echo.Echo) {
	e.POST("/twilio/send-sms", h.SendSMS)
	e.POST("/twilio/make-call", h.MakeCall)
}

type OutboundResponse struct {
	Success bool `json:"success"`
	ingest.OutboundResult
}

// SendSMS godoc
// @Summary Send an SMS as the authenticated staff user
// @Tags outbound
// @Accept json
// @Produce json
// @Param payload body ingest.OutboundSMS true "Message"
// @Success 200 {object} OutboundResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /twilio/send-sms [post]
func (h *OutboundHandler) SendSMS(c echo.Context) error {
	staff, err := RequireStaff(c)
	if err != nil {
		return err
	}
	var req ingest.OutboundSMS
	if err := bindValid(c, &req); err != nil {
		return err
	}
	res, err := h.ingest.SendSMS(c.Request().Context(), staff, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, OutboundResponse{Success: true, OutboundResult: res})
}

// MakeCall godoc
// @Summary Place a recorded call as the authenticated staff user
// @Tags outbound
// @Accept json
// @Produce json
// @Param payload body ingest.OutboundCall true "Call"
// @Success 200 {object} OutboundResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /twilio/make-call [post]
func (h *OutboundHandler) MakeCall(c echo.Context) error {
	staff, err := RequireStaff(c)
	if err != nil {
		return err
	}
	var req ingest.OutboundCall
	if err := bindValid(c, &req); err != nil {
		return err
	}
	res, err := h.ingest.PlaceCall(c.Request().Context(), staff, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, OutboundResponse{Success: true, OutboundResult: res})
}
