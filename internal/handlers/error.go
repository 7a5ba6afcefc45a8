package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/waddythomson/buwa-crm/internal/apperr"
)

// ErrorResponse is the standard API error body (message only).
type ErrorResponse struct {
	Message string `json:"message"`
}

// httpError maps a service error to an HTTP error. Persistence and unknown
// failures never leak their cause to the client.
func httpError(err error) error {
	if err == nil {
		return nil
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return echo.NewHTTPError(http.StatusBadRequest, apperr.Message(err))
	case apperr.KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, apperr.Message(err))
	case apperr.KindConflict:
		return echo.NewHTTPError(http.StatusConflict, apperr.Message(err))
	case apperr.KindUpstream:
		return echo.NewHTTPError(http.StatusBadGateway, apperr.Message(err))
	case apperr.KindPersistence:
		return echo.NewHTTPError(http.StatusInternalServerError, apperr.Message(err))
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
