// Package twilio adapts Twilio to the ingest engine: outbound REST calls,
// webhook form parsing, TwiML responses and request signature checks.
package twilio

import (
	"context"
	"errors"
	"log/slog"

	twilioapi "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/waddythomson/buwa-crm/internal/config"
)

// restAPI is the subset of the Twilio v2010 API the client calls.
type restAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
	CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error)
}

// Client implements ingest.Provider.
type Client struct {
	api               restAPI
	from              string
	recordingCallback string
	logger            *slog.Logger
}

// NewClient builds a client from account credentials. recordingCallbackURL
// receives recording status for placed calls.
func NewClient(log *slog.Logger, cfg config.TwilioConfig, recordingCallbackURL string) *Client {
	rest := twilioapi.NewRestClientWithParams(twilioapi.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newClient(log, rest.Api, cfg.PhoneNumber, recordingCallbackURL)
}

func newClient(log *slog.Logger, api restAPI, from, recordingCallbackURL string) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		api:               api,
		from:              from,
		recordingCallback: recordingCallbackURL,
		logger:            log.With(slog.String("service", "twilio")),
	}
}

func (c *Client) SendMessage(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)

	resp, err := c.api.CreateMessage(params)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Sid == nil {
		return "", errors.New("twilio returned no message sid")
	}
	c.logger.Info("sms sent", slog.String("sid", *resp.Sid))
	return *resp.Sid, nil
}

// PlaceCall dials to; Twilio fetches TwiML from callbackURL when it connects.
// The call is recorded.
func (c *Client) PlaceCall(ctx context.Context, to, callbackURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &openapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetUrl(callbackURL)
	params.SetRecord(true)
	if c.recordingCallback != "" {
		params.SetRecordingStatusCallback(c.recordingCallback)
	}

	resp, err := c.api.CreateCall(params)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Sid == nil {
		return "", errors.New("twilio returned no call sid")
	}
	c.logger.Info("call placed", slog.String("sid", *resp.Sid))
	return *resp.Sid, nil
}
