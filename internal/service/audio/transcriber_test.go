package audio

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/service/stt"
	"ai-offline-assistant/internal/service/stt/mock"
)

func newTranscriber(dir string, tc Transcoder, rec stt.Recognizer) *Transcriber {
	return NewTranscriber(NewNormalizer(dir, tc), rec, DefaultLimits())
}

func TestTranscribe_RecognizedText(t *testing.T) {
	dir := t.TempDir()
	tr := newTranscriber(dir, &fakeTranscoder{clip: speechClip(1600)}, mock.NewWithUtterances("what is the total"))

	res, err := tr.Transcribe(context.Background(), voice("q.wav", "raw"))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if res.Text != "what is the total" || res.Outcome != models.OutcomeOK {
		t.Errorf("unexpected result %+v", res)
	}
	assertEmptyDir(t, dir)
}

func TestTranscribe_Unintelligible(t *testing.T) {
	dir := t.TempDir()
	silence := stt.Audio{PCM: make([]byte, 3200), SampleRateHz: 16000, Channels: 1, BitsPerSample: 16}
	tr := newTranscriber(dir, &fakeTranscoder{clip: silence}, mock.New())

	res, err := tr.Transcribe(context.Background(), voice("q.wav", "raw"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Text != "❌ Could not understand audio." {
		t.Errorf("unexpected text %q", res.Text)
	}
	if res.Outcome != models.OutcomeUnintelligible {
		t.Errorf("expected unintelligible outcome, got %s", res.Outcome)
	}
	assertEmptyDir(t, dir)
}

func TestTranscribe_ServiceError(t *testing.T) {
	dir := t.TempDir()
	rec := mock.New()
	rec.FailWith(errors.New("recognition connection failed"))
	tr := newTranscriber(dir, &fakeTranscoder{clip: speechClip(1600)}, rec)

	res, err := tr.Transcribe(context.Background(), voice("q.mp3", "raw"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Text != "❌ Speech recognition error: recognition connection failed" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if res.Outcome != models.OutcomeServiceError {
		t.Errorf("expected service error outcome, got %s", res.Outcome)
	}
	assertEmptyDir(t, dir)
}

func TestTranscribe_NormalizeFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	tr := newTranscriber(dir, &fakeTranscoder{fail: errors.New("exit status 1")}, mock.New())

	_, err := tr.Transcribe(context.Background(), voice("q.mp4", "corrupt"))
	var te *TranscodeError
	if !errors.As(err, &te) {
		t.Fatalf("expected TranscodeError, got %v", err)
	}
	assertEmptyDir(t, dir)
}

func TestTranscribe_CorruptCanonicalAudio(t *testing.T) {
	dir := t.TempDir()
	tr := newTranscriber(dir, &fakeTranscoder{raw: []byte("garbage")}, mock.New())

	_, err := tr.Transcribe(context.Background(), voice("q.wav", "raw"))
	if !errors.Is(err, ErrInvalidWAV) {
		t.Fatalf("expected ErrInvalidWAV, got %v", err)
	}
	assertEmptyDir(t, dir)
}

func TestTranscribe_Limits(t *testing.T) {
	tests := []struct {
		name   string
		limits Limits
		want   error
	}{
		{"max audio bytes", Limits{MaxAudioBytes: 100}, ErrClipTooLarge},
		{"max duration", Limits{MaxDuration: 10 * time.Millisecond}, ErrClipTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tr := NewTranscriber(NewNormalizer(dir, &fakeTranscoder{clip: speechClip(1600)}), mock.New(), tt.limits)

			_, err := tr.Transcribe(context.Background(), voice("q.wav", "raw"))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			assertEmptyDir(t, dir)
		})
	}
}

func TestTranscribe_NoDurationCap(t *testing.T) {
	dir := t.TempDir()
	long := speechClip(16000 * 90)
	tr := NewTranscriber(NewNormalizer(dir, &fakeTranscoder{clip: long}), mock.NewWithUtterances("a long question"),
		Limits{MaxAudioBytes: 10 * 1024 * 1024})

	res, err := tr.Transcribe(context.Background(), voice("q.wav", "raw"))
	if err != nil {
		t.Fatalf("expected 90s clip to pass without a duration cap, got %v", err)
	}
	if res.Text != "a long question" {
		t.Errorf("expected 'a long question', got %q", res.Text)
	}
	assertEmptyDir(t, dir)
}

func TestDefaultLimits(t *testing.T) {
	limits := DefaultLimits()
	if limits.MaxAudioBytes != 10*1024*1024 {
		t.Errorf("expected MaxAudioBytes 10MB, got %d", limits.MaxAudioBytes)
	}
	if limits.MaxDuration != time.Minute {
		t.Errorf("expected MaxDuration 1m, got %v", limits.MaxDuration)
	}
}

type unexpectedRecognizer struct{}

func (unexpectedRecognizer) Recognize(context.Context, stt.Audio) (string, error) {
	return "", errors.New("decoder crashed")
}

func (unexpectedRecognizer) Name() string { return "broken" }

func TestTranscribe_UnclassifiedRecognizerError(t *testing.T) {
	dir := t.TempDir()
	tr := newTranscriber(dir, &fakeTranscoder{clip: speechClip(160)}, unexpectedRecognizer{})

	_, err := tr.Transcribe(context.Background(), voice("q.wav", "raw"))
	if err == nil || !strings.Contains(err.Error(), "decoder crashed") {
		t.Errorf("expected recognizer error to propagate, got %v", err)
	}
	assertEmptyDir(t, dir)
}
