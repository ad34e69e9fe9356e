// Package extract converts uploaded documents to plain text.
//
// Every extractor failure is caught at the Registry boundary. The caller
// receives an empty Result tagged OutcomeExtractionFailed and the error is
// forwarded to the injected ErrorReporter.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/observability/logging"
	"ai-offline-assistant/internal/observability/metrics"
	"ai-offline-assistant/internal/service/format"
)

// DefaultMaxBytes bounds how much of an upload an extractor buffers.
const DefaultMaxBytes int64 = 64 << 20

// ErrTooLarge is returned when an upload exceeds the extractor's size limit.
var ErrTooLarge = errors.New("document exceeds size limit")

// Extractor turns one document format into plain text.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader) (string, error)
}

// ErrorReporter receives extraction failures so they can be shown to the
// user alongside the empty result.
type ErrorReporter interface {
	ReportError(name string, kind format.Kind, err error)
}

// ReporterFunc adapts a function to ErrorReporter.
type ReporterFunc func(name string, kind format.Kind, err error)

// ReportError calls f.
func (f ReporterFunc) ReportError(name string, kind format.Kind, err error) {
	f(name, kind, err)
}

// Registry routes artifacts to the extractor registered for their Kind.
type Registry struct {
	extractors map[format.Kind]Extractor
	reporter   ErrorReporter
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewRegistry creates a registry with no extractors. A nil reporter only logs.
func NewRegistry(reporter ErrorReporter) *Registry {
	return &Registry{
		extractors: make(map[format.Kind]Extractor),
		reporter:   reporter,
		metrics:    metrics.DefaultMetrics,
		logger:     logging.WithComponent("extract"),
	}
}

// NewDocumentRegistry returns a registry with the PDF, DOCX and image
// extractors installed.
func NewDocumentRegistry(ocr OCR, maxBytes int64, reporter ErrorReporter) *Registry {
	r := NewRegistry(reporter)
	r.Register(format.PDF, PDF{MaxBytes: maxBytes})
	r.Register(format.DOCX, DOCX{MaxBytes: maxBytes})
	r.Register(format.Image, Image{OCR: ocr, MaxBytes: maxBytes})
	return r
}

// Register installs e for kind, replacing any previous extractor.
func (r *Registry) Register(kind format.Kind, e Extractor) {
	r.extractors[kind] = e
}

// Supports reports whether an extractor is registered for kind.
func (r *Registry) Supports(kind format.Kind) bool {
	_, ok := r.extractors[kind]
	return ok
}

// Extract detects the artifact's format and runs the matching extractor.
// It never returns an error: failures produce an empty Result whose Err is
// set and whose Outcome is OutcomeExtractionFailed.
func (r *Registry) Extract(ctx context.Context, artifact models.UploadedArtifact) models.Result {
	kind := format.Detect(artifact.Name)
	start := time.Now()

	text, err := r.run(ctx, kind, artifact.Body)
	r.metrics.RecordExtraction(string(kind), err, len(text), time.Since(start).Seconds())

	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("artifact", artifact.Name).
			Str("kind", string(kind)).
			Msg("Extraction failed")
		if r.reporter != nil {
			r.reporter.ReportError(artifact.Name, kind, err)
		}
		return models.Result{Outcome: models.OutcomeExtractionFailed, Err: err}
	}

	r.logger.Debug().
		Str("artifact", artifact.Name).
		Str("kind", string(kind)).
		Int("chars", len(text)).
		Dur("latency", time.Since(start)).
		Msg("Extraction completed")
	return models.Result{Text: text, Outcome: models.OutcomeOK}
}

func (r *Registry) run(ctx context.Context, kind format.Kind, body io.Reader) (text string, err error) {
	e, ok := r.extractors[kind]
	if !ok || body == nil {
		return "", format.ErrUnsupported
	}

	// Parsers can panic on malformed input.
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("%s parser panic: %v", kind, p)
		}
	}()

	return e.Extract(ctx, body)
}

// readLimited buffers at most limit bytes of r.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	if n > limit {
		return nil, ErrTooLarge
	}
	return buf.Bytes(), nil
}
