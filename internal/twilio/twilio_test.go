package twilio

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/waddythomson/buwa-crm/internal/config"
	"github.com/waddythomson/buwa-crm/internal/ingest"
	"github.com/waddythomson/buwa-crm/internal/logger"
)

type fakeAPI struct {
	message *openapi.CreateMessageParams
	call    *openapi.CreateCallParams
	err     error
}

func (f *fakeAPI) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.message = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &openapi.ApiV2010Message{Sid: &sid}, nil
}

func (f *fakeAPI) CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error) {
	f.call = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "CA123"
	return &openapi.ApiV2010Call{Sid: &sid}, nil
}

var _ ingest.Provider = (*Client)(nil)

func TestClientSendMessage(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(logger.Discard(), api, "+15550000000", "")

	sid, err := c.SendMessage(context.Background(), "+15551234567", "hello")
	require.NoError(t, err)
	assert.Equal(t, "SM123", sid)
	assert.Equal(t, "+15551234567", *api.message.To)
	assert.Equal(t, "+15550000000", *api.message.From)
	assert.Equal(t, "hello", *api.message.Body)
}

func TestClientPlaceCallRecords(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(logger.Discard(), api, "+15550000000", "https://crm.example.com/twilio/recording")

	sid, err := c.PlaceCall(context.Background(), "+15551234567", "https://crm.example.com/twilio/outbound-call")
	require.NoError(t, err)
	assert.Equal(t, "CA123", sid)
	assert.Equal(t, "https://crm.example.com/twilio/outbound-call", *api.call.Url)
	assert.True(t, *api.call.Record)
	assert.Equal(t, "https://crm.example.com/twilio/recording", *api.call.RecordingStatusCallback)
}

func TestClientErrors(t *testing.T) {
	api := &fakeAPI{err: errors.New("status 400")}
	c := newClient(logger.Discard(), api, "+15550000000", "")

	_, err := c.SendMessage(context.Background(), "+1", "x")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.PlaceCall(ctx, "+15551234567", "u")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		form    url.Values
		want    ingest.Event
		wantErr bool
	}{
		{
			name: "sms",
			kind: KindMessage,
			form: url.Values{"From": {"+15551234567"}, "To": {"+15550000000"}, "Body": {"Hi"}, "MessageSid": {"SM1"}},
			want: ingest.InboundMessage{From: "+15551234567", To: "+15550000000", Body: "Hi", MessageID: "SM1"},
		},
		{
			name: "sms legacy sid",
			kind: KindMessage,
			form: url.Values{"From": {"+15551234567"}, "SmsSid": {"SM2"}},
			want: ingest.InboundMessage{From: "+15551234567", MessageID: "SM2"},
		},
		{name: "sms missing from", kind: KindMessage, form: url.Values{"MessageSid": {"SM1"}}, wantErr: true},
		{
			name: "voice",
			kind: KindVoice,
			form: url.Values{"From": {"+15551234567"}, "CallSid": {"CA1"}, "CallStatus": {"ringing"}},
			want: ingest.InboundCall{From: "+15551234567", CallID: "CA1", Status: "ringing"},
		},
		{name: "voice missing sid", kind: KindVoice, form: url.Values{"From": {"+1"}}, wantErr: true},
		{
			name: "recording bad duration",
			kind: KindRecording,
			form: url.Values{"CallSid": {"CA1"}, "RecordingUrl": {"https://r"}, "RecordingDuration": {"abc"}},
			want: ingest.RecordingCompleted{CallID: "CA1", RecordingURL: "https://r"},
		},
		{name: "recording missing url", kind: KindRecording, form: url.Values{"CallSid": {"CA1"}}, wantErr: true},
		{
			name: "transcription",
			kind: KindTranscription,
			form: url.Values{"CallSid": {"CA1"}, "TranscriptionText": {" call me "}},
			want: ingest.TranscriptionCompleted{CallID: "CA1", Text: "call me"},
		},
		{name: "unknown", kind: "fax", form: url.Values{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.kind, tt.form)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRecordingDuration(t *testing.T) {
	ev, err := Parse(KindRecording, url.Values{"CallSid": {"CA1"}, "RecordingUrl": {"https://r"}, "RecordingDuration": {"42"}})
	require.NoError(t, err)
	rec := ev.(ingest.RecordingCompleted)
	require.NotNil(t, rec.Duration)
	assert.Equal(t, int32(42), *rec.Duration)
}

func TestParseMalformedIsTyped(t *testing.T) {
	_, err := Parse(KindVoice, url.Values{})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestVoicemailTwiML(t *testing.T) {
	out, err := Voicemail("Hello there.", "https://crm.example.com/twilio/recording", "https://crm.example.com/twilio/transcription")
	require.NoError(t, err)
	assert.Contains(t, out, "<Say>Hello there.</Say>")
	assert.Contains(t, out, `maxLength="120"`)
	assert.Contains(t, out, `action="https://crm.example.com/twilio/recording"`)
	assert.Contains(t, out, `transcribe="true"`)
	assert.Contains(t, out, `transcribeCallback="https://crm.example.com/twilio/transcription"`)
	assert.Contains(t, out, noRecordingSay)
}

func TestOutboundCallTwiML(t *testing.T) {
	out, err := OutboundCall("")
	require.NoError(t, err)
	assert.NotContains(t, out, "<Dial")

	out, err = OutboundCall("+15559998888")
	require.NoError(t, err)
	assert.Contains(t, out, "+15559998888</Dial>")
}

func TestEmptyAndApology(t *testing.T) {
	assert.Contains(t, Empty(), "<Response")
	assert.NotContains(t, Empty(), "<Say")
	assert.Contains(t, Apology(), "technical difficulties")
}

func sign(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSignatureMiddleware(t *testing.T) {
	server := config.ServerConfig{BaseURL: "https://crm.example.com"}
	mw := SignatureMiddleware(logger.Discard(), "secret-token", server)
	form := url.Values{"From": {"+15551234567"}, "MessageSid": {"SM1"}, "Body": {"Hi"}}

	tests := []struct {
		name string
		sig  string
		want int
	}{
		{"valid", sign("secret-token", "https://crm.example.com/twilio/sms", form), http.StatusOK},
		{"wrong token", sign("other", "https://crm.example.com/twilio/sms", form), http.StatusForbidden},
		{"missing", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/twilio/sms", strings.NewReader(form.Encode()))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
			if tt.sig != "" {
				req.Header.Set(signatureHeader, tt.sig)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
			if tt.want == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)
				return
			}
			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tt.want, he.Code)
		})
	}
}
