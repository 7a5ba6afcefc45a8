package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/waddythomson/buwa-crm/internal/config"
	"github.com/waddythomson/buwa-crm/internal/ingest"
	"github.com/waddythomson/buwa-crm/internal/twilio"
)

const mimeTwiML = "text/xml; charset=UTF-8"

// TwilioHandler serves the provider callbacks. Every callback is answered
// with TwiML and HTTP 200 so the provider does not retry on our failures.
type TwilioHandler struct {
	ingest           *ingest.Service
	logger           *slog.Logger
	greeting         string
	forwardNumber    string
	recordingURL     string
	transcriptionURL string
	middleware       []echo.MiddlewareFunc
}

// NewTwilioHandler creates the webhook handler. Signature validation is
// enabled by twilio.validate_signatures.
func NewTwilioHandler(log *slog.Logger, svc *ingest.Service, cfg config.Config) *TwilioHandler {
	h := &TwilioHandler{
		ingest:           svc,
		logger:           log.With(slog.String("handler", "twilio")),
		greeting:         cfg.Twilio.VoicemailGreeting,
		forwardNumber:    cfg.Twilio.ForwardNumber,
		recordingURL:     cfg.Server.CallbackURL("/twilio/recording"),
		transcriptionURL: cfg.Server.CallbackURL("/twilio/transcription"),
	}
	if h.greeting == "" {
		h.greeting = config.DefaultVoicemailGreeting
	}
	if cfg.Twilio.ValidateSignatures {
		h.middleware = append(h.middleware, twilio.SignatureMiddleware(log, cfg.Twilio.AuthToken, cfg.Server))
	}
	return h
}

func (h *TwilioHandler) Register(e *echo.Echo) {
	e.POST("/twilio/sms", h.SMS, h.middleware...)
	e.POST("/twilio/voice", h.Voice, h.middleware...)
	e.POST("/twilio/recording", h.Recording, h.middleware...)
	e.POST("/twilio/transcription", h.Transcription, h.middleware...)
	e.GET("/twilio/outbound-call", h.OutboundCall, h.middleware...)
	e.POST("/twilio/outbound-call", h.OutboundCall, h.middleware...)
}

// SMS godoc
// @Summary Inbound SMS webhook
// @Tags twilio
// @Accept x-www-form-urlencoded
// @Produce xml
// @Success 200 {string} string "TwiML"
// @Router /twilio/sms [post]
func (h *TwilioHandler) SMS(c echo.Context) error {
	h.handle(c, twilio.KindMessage)
	return twiml(c, twilio.Empty())
}

// Voice godoc
// @Summary Inbound call webhook
// @Description Records the call and answers with a voicemail prompt, or an apology when the payload is unreadable.
// @Tags twilio
// @Accept x-www-form-urlencoded
// @Produce xml
// @Success 200 {string} string "TwiML"
// @Router /twilio/voice [post]
func (h *TwilioHandler) Voice(c echo.Context) error {
	if !h.handle(c, twilio.KindVoice) {
		return twiml(c, twilio.Apology())
	}
	out, err := twilio.Voicemail(h.greeting, h.recordingURL, h.transcriptionURL)
	if err != nil {
		h.logger.Error("render voicemail twiml failed", slog.Any("error", err))
		return twiml(c, twilio.Apology())
	}
	return twiml(c, out)
}

func (h *TwilioHandler) Recording(c echo.Context) error {
	h.handle(c, twilio.KindRecording)
	return twiml(c, twilio.Empty())
}

func (h *TwilioHandler) Transcription(c echo.Context) error {
	h.handle(c, twilio.KindTranscription)
	return twiml(c, twilio.Empty())
}

// OutboundCall is fetched by the provider when a staff-placed call connects.
func (h *TwilioHandler) OutboundCall(c echo.Context) error {
	out, err := twilio.OutboundCall(h.forwardNumber)
	if err != nil {
		h.logger.Error("render outbound twiml failed", slog.Any("error", err))
		return twiml(c, twilio.Apology())
	}
	return twiml(c, out)
}

// handle parses and ingests one callback. Failures are logged, not returned.
// It reports whether the payload parsed; an ingest failure after a good parse
// still reports true so the caller keeps answering normally.
func (h *TwilioHandler) handle(c echo.Context, kind string) bool {
	form, err := c.FormParams()
	if err != nil {
		h.logger.Warn("unreadable twilio callback", slog.String("kind", kind), slog.Any("error", err))
		return false
	}
	ev, err := twilio.Parse(kind, form)
	if err != nil {
		h.logger.Warn("rejected twilio callback", slog.String("kind", kind), slog.Any("error", err))
		return false
	}
	res, err := h.ingest.Handle(c.Request().Context(), ev)
	if err != nil {
		return true
	}
	h.logger.Debug("twilio callback ingested",
		slog.String("kind", kind),
		slog.String("contact_id", res.ContactID),
		slog.String("conversation_id", res.ConversationID),
		slog.Bool("duplicate", res.Duplicate),
	)
	return true
}

func twiml(c echo.Context, body string) error {
	return c.Blob(http.StatusOK, mimeTwiML, []byte(body))
}
