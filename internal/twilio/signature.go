package twilio

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/twilio/twilio-go/client"

	"github.com/waddythomson/buwa-crm/internal/config"
)

const signatureHeader = "X-Twilio-Signature"

// SignatureMiddleware rejects callbacks whose X-Twilio-Signature does not
// match the public URL Twilio called. The URL is rebuilt from base URL
// because the service usually sits behind a proxy.
func SignatureMiddleware(log *slog.Logger, authToken string, server config.ServerConfig) echo.MiddlewareFunc {
	validator := client.NewRequestValidator(authToken)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if err := req.ParseForm(); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
			}
			params := make(map[string]string, len(req.PostForm))
			for k, v := range req.PostForm {
				if len(v) > 0 {
					params[k] = v[0]
				}
			}
			target := server.CallbackURL(req.URL.RequestURI())
			if !validator.Validate(target, params, req.Header.Get(signatureHeader)) {
				log.Warn("twilio signature rejected", slog.String("path", req.URL.Path))
				return echo.NewHTTPError(http.StatusForbidden, "invalid signature")
			}
			return next(c)
		}
	}
}
