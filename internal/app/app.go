// Package app builds the service component graph from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ai-offline-assistant/internal/config"
	"ai-offline-assistant/internal/events"
	"ai-offline-assistant/internal/observability/logging"
	"ai-offline-assistant/internal/service/assistant"
	"ai-offline-assistant/internal/service/audio"
	"ai-offline-assistant/internal/service/extract"
	"ai-offline-assistant/internal/service/format"
	"ai-offline-assistant/internal/service/llm"
	"ai-offline-assistant/internal/service/llm/ollama"
	"ai-offline-assistant/internal/service/llm/openai"
	"ai-offline-assistant/internal/service/ocr"
	"ai-offline-assistant/internal/service/stt"
	"ai-offline-assistant/internal/service/stt/google"
	"ai-offline-assistant/internal/service/stt/mock"
	"ai-offline-assistant/internal/session"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	Sessions   *session.Store
	Extractor  *extract.Registry
	Model      llm.Client
	Recognizer stt.Recognizer
	Publisher  *events.Publisher
	Assistant  *assistant.Service

	closers  []func() error
	draining atomic.Bool
}

// New constructs the Application and every pipeline component. Logging must
// already be initialised.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &Application{
		Cfg:      cfg,
		Logger:   logging.WithComponent("application"),
		Sessions: session.NewStore(),
	}

	a.Extractor = extract.NewDocumentRegistry(
		ocr.New(ocr.Config{Path: cfg.OCR.TesseractPath, Language: cfg.OCR.Language}),
		cfg.Upload.MaxBytes,
		extract.ReporterFunc(a.reportExtractionError),
	)
	a.Model = NewModelClient(cfg.Model)

	recognizer, err := a.newRecognizer(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating %s recognizer: %w", cfg.STT.Provider, err)
	}
	a.Recognizer = recognizer

	normalizer := audio.NewNormalizer(cfg.Audio.TempDir, audio.FFmpeg{
		Path:         cfg.Audio.FFmpegPath,
		SampleRateHz: cfg.Audio.SampleRateHz,
		Channels:     cfg.Audio.Channels,
	})
	transcriber := audio.NewTranscriber(normalizer, recognizer, transcriberLimits(cfg))

	a.Publisher = events.New(&events.Config{
		Enabled:          cfg.Kafka.Enabled,
		Brokers:          cfg.Kafka.Brokers,
		TopicDocuments:   cfg.Kafka.TopicDocuments,
		TopicTranscripts: cfg.Kafka.TopicTranscripts,
		TopicAnswers:     cfg.Kafka.TopicAnswers,
		Principal:        cfg.Kafka.Principal,
	})
	a.closers = append(a.closers, a.Publisher.Close)

	a.Assistant = assistant.New(
		assistant.Config{Principal: cfg.Service.Principal},
		a.Extractor, transcriber, a.Model, a.Publisher,
	)

	a.Logger.Info().
		Str("modelProvider", a.Model.Name()).
		Str("modelName", cfg.Model.Name).
		Str("sttProvider", recognizer.Name()).
		Bool("kafkaEnabled", cfg.Kafka.Enabled).
		Msg("Offline assistant application created")
	return a, nil
}

// transcriberLimits caps clip duration only for the Google recognizer, whose
// synchronous Recognize call rejects longer audio.
func transcriberLimits(cfg *config.Config) audio.Limits {
	limits := audio.Limits{MaxAudioBytes: cfg.Audio.MaxAudioBytes}
	if cfg.STT.Provider == "google" {
		limits.MaxDuration = cfg.Audio.MaxDuration
	}
	return limits
}

// NewModelClient returns the configured language model backend.
func NewModelClient(cfg config.ModelConfig) llm.Client {
	if cfg.Provider == "openai" {
		return openai.New(openai.Config{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Name,
			Timeout: cfg.Timeout,
		})
	}
	return ollama.New(ollama.Config{
		URL:     cfg.URL,
		Model:   cfg.Name,
		Timeout: cfg.Timeout,
	})
}

func (a *Application) newRecognizer(ctx context.Context) (stt.Recognizer, error) {
	if a.Cfg.STT.Provider != "google" {
		return mock.New(), nil
	}
	gcfg := google.DefaultConfig()
	gcfg.LanguageCode = a.Cfg.STT.LanguageCode
	gcfg.SampleRateHz = int32(a.Cfg.STT.SampleRateHz)
	gcfg.AudioEncoding = a.Cfg.STT.AudioEncoding
	gcfg.Model = a.Cfg.STT.Model

	g, err := google.New(ctx, gcfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, g.Close)
	return g, nil
}

func (a *Application) reportExtractionError(name string, kind format.Kind, err error) {
	a.Logger.Debug().
		Err(err).
		Str("artifact", name).
		Str("kind", string(kind)).
		Msg("Extraction error reported")
}

// Ready reports whether the application accepts traffic.
func (a *Application) Ready(context.Context) error {
	if a.draining.Load() {
		return errors.New("shutting down")
	}
	return nil
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Offline assistant starting")
	return nil
}

// Shutdown clears every session and releases external clients.
func (a *Application) Shutdown() error {
	a.draining.Store(true)
	a.Logger.Info().
		Int("sessions", a.Sessions.Len()).
		Msg("Offline assistant shutting down")

	a.Sessions.CloseAll()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
