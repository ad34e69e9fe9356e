// Package ocr runs the tesseract executable over decoded images.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-offline-assistant/internal/observability/logging"
)

const (
	DefaultPath     = "tesseract"
	DefaultLanguage = "eng"
)

// Config holds tesseract configuration.
type Config struct {
	Path     string
	Language string
}

// Tesseract pipes a PNG rendition of the image through tesseract's stdin.
type Tesseract struct {
	path     string
	language string
	logger   zerolog.Logger
}

// New creates a tesseract engine.
func New(cfg Config) *Tesseract {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	return &Tesseract{
		path:     cfg.Path,
		language: cfg.Language,
		logger:   logging.WithComponent("ocr"),
	}
}

// Recognize returns tesseract's output with its trailing page separator
// removed.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return "", fmt.Errorf("encoding image for tesseract: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.path, "stdin", "stdout", "-l", t.language)
	cmd.Stdin = &in
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, msg)
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}

	text := strings.TrimRight(stdout.String(), "\f\n")
	t.logger.Debug().
		Int("chars", len(text)).
		Dur("latency", time.Since(start)).
		Msg("OCR completed")
	return text, nil
}
