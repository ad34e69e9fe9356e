// Package stt defines the interface for speech recognition backends.
package stt

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnintelligible is returned when the backend heard no recognizable speech.
var ErrUnintelligible = errors.New("speech was unintelligible")

// Audio is a complete PCM clip submitted for recognition.
type Audio struct {
	PCM           []byte
	SampleRateHz  int
	Channels      int
	BitsPerSample int
}

// Duration returns the playback length of the clip.
func (a Audio) Duration() time.Duration {
	frame := a.Channels * a.BitsPerSample / 8
	if frame <= 0 || a.SampleRateHz <= 0 {
		return 0
	}
	frames := len(a.PCM) / frame
	return time.Duration(frames) * time.Second / time.Duration(a.SampleRateHz)
}

// Recognizer transcribes a whole clip in one request.
type Recognizer interface {
	// Recognize returns the transcript, ErrUnintelligible, or a *RequestError.
	Recognize(ctx context.Context, audio Audio) (string, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}

// RequestError reports that the recognition service could not be reached
// or rejected the request.
type RequestError struct {
	Provider string
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
