// Package google provides a Google Cloud Speech-to-Text recognizer.
package google

import (
	"context"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"ai-offline-assistant/internal/observability/metrics"
	"ai-offline-assistant/internal/service/stt"
)

const providerName = "google"

// Config holds Google STT configuration.
type Config struct {
	LanguageCode         string
	SampleRateHz         int32
	AudioEncoding        string
	Model                string
	AutomaticPunctuation bool
}

// DefaultConfig returns the configuration matching the canonical WAV
// produced by the audio normalizer.
func DefaultConfig() Config {
	return Config{
		LanguageCode:         "en-US",
		SampleRateHz:         16000,
		AudioEncoding:        "LINEAR16",
		AutomaticPunctuation: true,
	}
}

// Adapter implements stt.Recognizer using the synchronous Recognize call.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
type Adapter struct {
	client  *speech.Client
	cfg     Config
	metrics *metrics.Metrics
}

// New creates a new Google STT recognizer.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: c, cfg: cfg, metrics: metrics.DefaultMetrics}, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string { return providerName }

// Recognize submits the whole clip and joins the top alternative of every
// result. An empty transcript is reported as stt.ErrUnintelligible.
func (a *Adapter) Recognize(ctx context.Context, audio stt.Audio) (string, error) {
	start := time.Now()
	resp, err := a.client.Recognize(ctx, buildRequest(a.cfg, audio))
	a.metrics.RecordSTTRequest(providerName, time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordSTTError(providerName, "request")
		return "", &stt.RequestError{Provider: providerName, Err: err}
	}

	text := transcriptFrom(resp)
	if text == "" {
		a.metrics.RecordSTTError(providerName, "unintelligible")
		return "", stt.ErrUnintelligible
	}
	return text, nil
}

// Close releases the underlying gRPC connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}

func buildRequest(cfg Config, audio stt.Audio) *speechpb.RecognizeRequest {
	rate := cfg.SampleRateHz
	if audio.SampleRateHz > 0 {
		rate = int32(audio.SampleRateHz)
	}
	channels := int32(audio.Channels)
	if channels <= 0 {
		channels = 1
	}

	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   parseAudioEncoding(cfg.AudioEncoding),
			SampleRateHertz:            rate,
			AudioChannelCount:          channels,
			LanguageCode:               cfg.LanguageCode,
			Model:                      cfg.Model,
			EnableAutomaticPunctuation: cfg.AutomaticPunctuation,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio.PCM},
		},
	}
}

func transcriptFrom(resp *speechpb.RecognizeResponse) string {
	if resp == nil {
		return ""
	}
	parts := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// parseAudioEncoding converts an encoding string to the Google enum value.
// Unknown or differently cased values fall back to LINEAR16.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	switch encoding {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
