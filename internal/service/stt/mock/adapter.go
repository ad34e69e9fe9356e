// Package mock provides a recognizer for running without cloud credentials.
// It returns canned utterances in order and treats silent audio as
// unintelligible.
package mock

import (
	"context"
	"encoding/binary"
	"sync"

	"ai-offline-assistant/internal/service/stt"
)

// DefaultUtterances are returned in order, cycling, for non-silent clips.
var DefaultUtterances = []string{
	"What is this document about",
	"Summarize the main points",
	"What is the total amount",
	"Who signed the contract",
	"When is the deadline",
}

// DefaultSilenceThreshold is the peak amplitude at or below which a 16-bit
// clip counts as silence.
const DefaultSilenceThreshold = 64

// Adapter implements stt.Recognizer with canned responses.
type Adapter struct {
	mu         sync.Mutex
	utterances []string
	next       int
	threshold  int
	err        error
}

// New creates a mock recognizer with DefaultUtterances.
func New() *Adapter {
	return NewWithUtterances(DefaultUtterances...)
}

// NewWithUtterances creates a mock recognizer returning the given texts.
func NewWithUtterances(utterances ...string) *Adapter {
	return &Adapter{
		utterances: utterances,
		threshold:  DefaultSilenceThreshold,
	}
}

// FailWith makes every following call return a request error wrapping err.
func (a *Adapter) FailWith(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Name returns the provider name.
func (a *Adapter) Name() string { return "mock" }

// Recognize returns the next canned utterance.
func (a *Adapter) Recognize(ctx context.Context, audio stt.Audio) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &stt.RequestError{Provider: "mock", Err: err}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.err != nil {
		return "", &stt.RequestError{Provider: "mock", Err: a.err}
	}
	if len(a.utterances) == 0 || silent(audio.PCM, a.threshold) {
		return "", stt.ErrUnintelligible
	}

	text := a.utterances[a.next%len(a.utterances)]
	a.next++
	return text, nil
}

// silent reports whether every little-endian 16-bit sample is within threshold.
func silent(pcm []byte, threshold int) bool {
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int(int16(binary.LittleEndian.Uint16(pcm[i:])))
		if s > threshold || s < -threshold {
			return false
		}
	}
	return true
}
