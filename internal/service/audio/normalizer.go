// Package audio turns uploaded voice clips into canonical WAV and runs them
// through a speech recognizer.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/observability/logging"
	"ai-offline-assistant/internal/observability/metrics"
	"ai-offline-assistant/internal/service/format"
)

// Canonical output format.
const (
	CanonicalSampleRateHz = 16000
	CanonicalChannels     = 1
)

// Transcoder converts the audio stream of inPath into a canonical WAV at
// outPath. The input format is sniffed from the content.
type Transcoder interface {
	Transcode(ctx context.Context, inPath, outPath string) error
}

// TranscodeError carries the transcoder's diagnostic output.
type TranscodeError struct {
	Err    error
	Stderr string
}

func (e *TranscodeError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("transcode failed: %v", e.Err)
	}
	return fmt.Sprintf("transcode failed: %v: %s", e.Err, e.Stderr)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// FFmpeg transcodes with the ffmpeg executable.
type FFmpeg struct {
	Path         string
	SampleRateHz int
	Channels     int
}

// Transcode writes mono 16-bit little-endian PCM WAV, dropping any video.
func (f FFmpeg) Transcode(ctx context.Context, inPath, outPath string) error {
	path := f.Path
	if path == "" {
		path = "ffmpeg"
	}
	rate := f.SampleRateHz
	if rate <= 0 {
		rate = CanonicalSampleRateHz
	}
	channels := f.Channels
	if channels <= 0 {
		channels = CanonicalChannels
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path,
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-i", inPath,
		"-vn",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(rate),
		"-acodec", "pcm_s16le",
		"-f", "wav",
		outPath,
	)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &TranscodeError{Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}
	return nil
}

// Normalizer persists an upload to a temporary file and transcodes it.
type Normalizer struct {
	dir        string
	transcoder Transcoder
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewNormalizer creates a normalizer writing temporary files under dir.
// An empty dir means os.TempDir().
func NewNormalizer(dir string, transcoder Transcoder) *Normalizer {
	return &Normalizer{
		dir:        dir,
		transcoder: transcoder,
		metrics:    metrics.DefaultMetrics,
		logger:     logging.WithComponent("audio-normalizer"),
	}
}

// Normalize returns the path of a canonical WAV the caller must remove.
// The raw input file is removed before returning on every path. On failure
// no output file is left behind and the transcoder error is returned.
func (n *Normalizer) Normalize(ctx context.Context, artifact models.UploadedArtifact) (string, error) {
	if artifact.Body == nil {
		return "", errors.New("voice clip has no content")
	}

	in, err := os.CreateTemp(n.dir, "voice-*"+format.Ext(artifact.Name))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	n.metrics.RecordTempFileCreated()
	inPath := in.Name()
	defer n.Remove(inPath)

	written, err := io.Copy(in, artifact.Body)
	if closeErr := in.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	n.metrics.RecordAudioReceived(written)

	outPath := inPath + ".wav"
	err = n.transcoder.Transcode(ctx, inPath, outPath)
	if _, statErr := os.Stat(outPath); statErr == nil {
		n.metrics.RecordTempFileCreated()
	}
	if err != nil {
		n.Remove(outPath)
		n.metrics.RecordNormalizeFailure()
		n.logger.Warn().
			Err(err).
			Str("artifact", artifact.Name).
			Int64("bytes", written).
			Msg("Audio normalization failed")
		return "", fmt.Errorf("normalizing %q: %w", artifact.Name, err)
	}

	n.logger.Debug().
		Str("artifact", artifact.Name).
		Int64("bytes", written).
		Str("output", outPath).
		Msg("Audio normalized")
	return outPath, nil
}

// Remove deletes a temporary file. A file that is already gone is not an error.
func (n *Normalizer) Remove(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		n.metrics.RecordTempFileRemoved()
	case !errors.Is(err, os.ErrNotExist):
		n.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove temp file")
	}
}
