package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/observability/logging"
	"ai-offline-assistant/internal/observability/metrics"
	"ai-offline-assistant/internal/service/stt"
)

// Texts shown in place of a transcript when recognition fails.
const (
	UnintelligibleText = "❌ Could not understand audio."
	ServiceErrorPrefix = "❌ Speech recognition error: "
)

// ErrClipTooLong is returned when a canonical clip exceeds MaxDuration.
var ErrClipTooLong = errors.New("voice clip exceeds duration limit")

// Limits bounds what the transcriber loads into memory and submits.
type Limits struct {
	MaxAudioBytes int64         // Max canonical PCM payload
	MaxDuration   time.Duration // Max clip length
}

// DefaultLimits matches the synchronous recognition request limits.
func DefaultLimits() Limits {
	return Limits{
		MaxAudioBytes: 10 * 1024 * 1024, // 10MB (~327 seconds at 16kHz 16-bit mono)
		MaxDuration:   time.Minute,
	}
}

// Transcriber normalizes a voice clip and submits it for recognition.
type Transcriber struct {
	normalizer *Normalizer
	recognizer stt.Recognizer
	limits     Limits
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewTranscriber creates a transcriber.
func NewTranscriber(normalizer *Normalizer, recognizer stt.Recognizer, limits Limits) *Transcriber {
	return &Transcriber{
		normalizer: normalizer,
		recognizer: recognizer,
		limits:     limits,
		metrics:    metrics.DefaultMetrics,
		logger:     logging.WithComponent("transcriber"),
	}
}

// Transcribe returns the recognized text. Unintelligible speech and
// recognition service failures become sentinel texts with a nil error.
// Normalization and WAV decoding failures are returned as errors. The
// canonical WAV is removed on every path.
func (t *Transcriber) Transcribe(ctx context.Context, artifact models.UploadedArtifact) (models.Result, error) {
	start := time.Now()

	wavPath, err := t.normalizer.Normalize(ctx, artifact)
	if err != nil {
		t.metrics.RecordTranscription("normalize_failed", time.Since(start).Seconds())
		return models.Result{}, err
	}
	defer t.normalizer.Remove(wavPath)

	clip, err := t.load(wavPath)
	if err != nil {
		t.metrics.RecordTranscription("invalid_audio", time.Since(start).Seconds())
		return models.Result{}, err
	}

	text, err := t.recognizer.Recognize(ctx, clip)
	result, err := classify(text, err)
	t.metrics.RecordTranscription(outcomeLabel(result, err), time.Since(start).Seconds())
	if err != nil {
		return models.Result{}, err
	}

	t.logger.Info().
		Str("artifact", artifact.Name).
		Str("provider", t.recognizer.Name()).
		Str("outcome", string(result.Outcome)).
		Dur("clip", clip.Duration()).
		Dur("latency", time.Since(start)).
		Msg("Voice clip transcribed")
	return result, nil
}

func (t *Transcriber) load(path string) (stt.Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return stt.Audio{}, fmt.Errorf("opening canonical audio: %w", err)
	}
	defer f.Close()

	clip, err := ReadWAV(f, t.limits.MaxAudioBytes)
	if err != nil {
		return stt.Audio{}, fmt.Errorf("reading canonical audio: %w", err)
	}
	if t.limits.MaxDuration > 0 && clip.Duration() > t.limits.MaxDuration {
		return stt.Audio{}, fmt.Errorf("%w: %v > %v", ErrClipTooLong, clip.Duration(), t.limits.MaxDuration)
	}
	return clip, nil
}

func classify(text string, err error) (models.Result, error) {
	var reqErr *stt.RequestError
	switch {
	case err == nil:
		return models.Result{Text: text, Outcome: models.OutcomeOK}, nil
	case errors.Is(err, stt.ErrUnintelligible):
		return models.Result{Text: UnintelligibleText, Outcome: models.OutcomeUnintelligible, Err: err}, nil
	case errors.As(err, &reqErr):
		return models.Result{Text: ServiceErrorPrefix + reqErr.Err.Error(), Outcome: models.OutcomeServiceError, Err: err}, nil
	default:
		return models.Result{}, fmt.Errorf("recognizing speech: %w", err)
	}
}

func outcomeLabel(r models.Result, err error) string {
	if err != nil {
		return "error"
	}
	return string(r.Outcome)
}
