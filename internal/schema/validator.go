// Package schema checks pipeline events before they are published.
package schema

import (
	"errors"
	"fmt"

	"ai-offline-assistant/internal/models"
)

// ErrInvalidEvent is returned for an event missing a required field.
var ErrInvalidEvent = errors.New("invalid event")

// Validator checks the envelope every event carries.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate reports the first missing envelope field of event.
func (v *Validator) Validate(event any) error {
	switch ev := event.(type) {
	case models.DocumentExtracted:
		return envelope(models.EventDocumentExtracted, ev.EventType, ev.EventID, ev.SessionID, ev.Timestamp)
	case models.VoiceTranscribed:
		return envelope(models.EventVoiceTranscribed, ev.EventType, ev.EventID, ev.SessionID, ev.Timestamp)
	case models.AnswerProduced:
		if err := envelope(models.EventAnswerProduced, ev.EventType, ev.EventID, ev.SessionID, ev.Timestamp); err != nil {
			return err
		}
		if ev.Mode == "" {
			return fmt.Errorf("%w: mode is empty", ErrInvalidEvent)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown event type %T", ErrInvalidEvent, event)
	}
}

func envelope(want, eventType, eventID, sessionID string, ts int64) error {
	switch {
	case eventType != want:
		return fmt.Errorf("%w: eventType %q, expected %q", ErrInvalidEvent, eventType, want)
	case eventID == "":
		return fmt.Errorf("%w: eventId is empty", ErrInvalidEvent)
	case sessionID == "":
		return fmt.Errorf("%w: sessionId is empty", ErrInvalidEvent)
	case ts <= 0:
		return fmt.Errorf("%w: timestamp is not set", ErrInvalidEvent)
	}
	return nil
}
