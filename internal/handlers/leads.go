package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/waddythomson/buwa-crm/internal/config"
	"github.com/waddythomson/buwa-crm/internal/ingest"
)

// LeadsHandler accepts website form submissions. When leads.secret is set
// the caller must present it as ?secret= or a bearer token.
type LeadsHandler struct {
	ingest    *ingest.Service
	logger    *slog.Logger
	secret    string
	rateLimit float64
}

func NewLeadsHandler(log *slog.Logger, svc *ingest.Service, cfg config.LeadsConfig) *LeadsHandler {
	return &LeadsHandler{
		ingest:    svc,
		logger:    log.With(slog.String("handler", "leads")),
		secret:    strings.TrimSpace(cfg.Secret),
		rateLimit: cfg.RateLimit,
	}
}

func (h *LeadsHandler) Register(e *echo.Echo) {
	var mw []echo.MiddlewareFunc
	if h.rateLimit > 0 {
		mw = append(mw, middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStore(rate.Limit(h.rateLimit)),
			IdentifierExtractor: func(c echo.Context) (string, error) {
				return c.RealIP(), nil
			},
			DenyHandler: func(c echo.Context, _ string, _ error) error {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			},
		}))
	}
	e.POST("/leads", h.Create, mw...)
}

// Create godoc
// @Summary Submit a lead from the website form
// @Tags leads
// @Accept json
// @Produce json
// @Param secret query string false "Shared secret"
// @Param payload body ingest.Lead true "Lead"
// @Success 200 {object} ingest.LeadResult
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /leads [post]
func (h *LeadsHandler) Create(c echo.Context) error {
	if !h.authorized(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var req ingest.Lead
	if err := bindValid(c, &req); err != nil {
		return err
	}
	res, err := h.ingest.IntakeLead(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	h.logger.Info("lead received",
		slog.String("contact_id", res.ContactID),
		slog.Bool("new_contact", res.IsNewContact),
		slog.Bool("welcome_sms_sent", res.WelcomeSMSSent),
	)
	return c.JSON(http.StatusOK, res)
}

func (h *LeadsHandler) authorized(c echo.Context) bool {
	if h.secret == "" {
		return true
	}
	if secretEqual(c.QueryParam("secret"), h.secret) {
		return true
	}
	token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	return ok && secretEqual(strings.TrimSpace(token), h.secret)
}

func secretEqual(got, want string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
