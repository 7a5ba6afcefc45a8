package twilio

import (
	"github.com/twilio/twilio-go/twiml"
)

const (
	recordMaxLength  = "120"
	noRecordingSay   = "We did not receive a recording. Goodbye."
	apologySay       = "Sorry, we're experiencing technical difficulties. Please try again later."
	outboundGreeting = "Connecting your call from BuWa Digital."

	emptyResponse   = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`
	apologyResponse = `<?xml version="1.0" encoding="UTF-8"?><Response><Say>` + apologySay + `</Say></Response>`
)

// Empty is the acknowledgment returned for every non-voice callback.
func Empty() string {
	out, err := twiml.Messages([]twiml.Element{})
	if err != nil {
		return emptyResponse
	}
	return out
}

// Apology is returned from the voice webhook when ingestion failed.
func Apology() string {
	out, err := twiml.Voice([]twiml.Element{&twiml.VoiceSay{Message: apologySay}})
	if err != nil {
		return apologyResponse
	}
	return out
}

// Voicemail greets the caller and records a message, posting the recording
// and its transcript back to the given URLs.
func Voicemail(greeting, recordingURL, transcriptionURL string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: greeting},
		&twiml.VoiceRecord{
			MaxLength:          recordMaxLength,
			Action:             recordingURL,
			Transcribe:         "true",
			TranscribeCallback: transcriptionURL,
		},
		&twiml.VoiceSay{Message: noRecordingSay},
	})
}

// OutboundCall is served when a staff-placed call connects. A blank
// forward number only plays the greeting.
func OutboundCall(forwardNumber string) (string, error) {
	verbs := []twiml.Element{&twiml.VoiceSay{Message: outboundGreeting}}
	if forwardNumber != "" {
		verbs = append(verbs, &twiml.VoiceDial{Number: forwardNumber})
	}
	return twiml.Voice(verbs)
}
