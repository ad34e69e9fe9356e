// Package config loads service configuration from the environment and an
// optional YAML file.
//
// Precedence is environment, then file, then built-in defaults. Values that
// fail to parse fall back to the next source.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Model         ModelConfig         `yaml:"model"`
	OCR           OCRConfig           `yaml:"ocr"`
	Audio         AudioConfig         `yaml:"audio"`
	STT           STTConfig           `yaml:"stt"`
	Upload        UploadConfig        `yaml:"upload"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Inbox         InboxConfig         `yaml:"inbox"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServiceConfig holds listener configuration.
type ServiceConfig struct {
	Principal   string   `yaml:"principal"`
	HTTPPort    string   `yaml:"httpPort"`
	GRPCPort    string   `yaml:"grpcPort"`
	MetricsPort string   `yaml:"metricsPort"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// ModelConfig selects and configures the language model backend.
type ModelConfig struct {
	Provider string        `yaml:"provider"` // ollama, openai
	URL      string        `yaml:"url"`      // ollama /api/generate endpoint
	BaseURL  string        `yaml:"baseUrl"`  // OpenAI-compatible /v1 base
	Name     string        `yaml:"name"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
}

// OCRConfig configures the tesseract executable.
type OCRConfig struct {
	TesseractPath string `yaml:"tesseractPath"`
	Language      string `yaml:"language"`
}

// AudioConfig configures transcoding and clip limits.
type AudioConfig struct {
	FFmpegPath    string        `yaml:"ffmpegPath"`
	SampleRateHz  int           `yaml:"sampleRateHz"`
	Channels      int           `yaml:"channels"`
	TempDir       string        `yaml:"tempDir"`
	MaxAudioBytes int64         `yaml:"maxAudioBytes"`
	MaxDuration   time.Duration `yaml:"maxDuration"`
}

// STTConfig selects and configures the speech recognizer.
type STTConfig struct {
	Provider      string `yaml:"provider"` // mock, google
	LanguageCode  string `yaml:"languageCode"`
	SampleRateHz  int    `yaml:"sampleRateHz"`
	AudioEncoding string `yaml:"audioEncoding"`
	Model         string `yaml:"model"`
}

// UploadConfig bounds uploads at the API boundary.
type UploadConfig struct {
	MaxBytes int64 `yaml:"maxBytes"`
}

// KafkaConfig configures event publishing.
type KafkaConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Brokers          []string `yaml:"brokers"`
	TopicDocuments   string   `yaml:"topicDocuments"`
	TopicTranscripts string   `yaml:"topicTranscripts"`
	TopicAnswers     string   `yaml:"topicAnswers"`
	Principal        string   `yaml:"principal"`
}

// InboxConfig configures the watched drop directory. An empty Dir disables it.
type InboxConfig struct {
	Dir string `yaml:"dir"`
}

// ObservabilityConfig configures logging and metrics.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"logLevel"`
	LogFormat      string `yaml:"logFormat"`
	MetricsEnabled bool   `yaml:"metricsEnabled"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Principal:   "svc-offline-assistant",
			HTTPPort:    "8080",
			GRPCPort:    "50051",
			MetricsPort: "9090",
			CORSOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Model: ModelConfig{
			Provider: "ollama",
			URL:      "http://localhost:11434/api/generate",
			BaseURL:  "http://localhost:11434/v1",
			Name:     "llama3",
			Timeout:  120 * time.Second,
		},
		OCR: OCRConfig{
			TesseractPath: "tesseract",
			Language:      "eng",
		},
		Audio: AudioConfig{
			FFmpegPath:    "ffmpeg",
			SampleRateHz:  16000,
			Channels:      1,
			MaxAudioBytes: 10 * 1024 * 1024,
			MaxDuration:   time.Minute,
		},
		STT: STTConfig{
			Provider:      "mock",
			LanguageCode:  "en-US",
			SampleRateHz:  16000,
			AudioEncoding: "LINEAR16",
		},
		Upload: UploadConfig{
			MaxBytes: 64 * 1024 * 1024,
		},
		Kafka: KafkaConfig{
			TopicDocuments:   "assistant.documents.extracted",
			TopicTranscripts: "assistant.voice.transcribed",
			TopicAnswers:     "assistant.answers.produced",
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsEnabled: true,
		},
	}
}

// Load reads CONFIG_PATH when set and applies the environment on top. A
// file that cannot be read is logged and skipped.
func Load() *Config {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Ignoring config file")
		}
	}
	cfg.overlayEnv()
	return cfg
}

// LoadFile reads path and applies the environment on top.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if err := cfg.overlayFile(path); err != nil {
		return nil, err
	}
	cfg.overlayEnv()
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", c.Service.Principal)
	c.Service.HTTPPort = envOrDefault("HTTP_PORT", c.Service.HTTPPort)
	c.Service.GRPCPort = envOrDefault("GRPC_PORT", c.Service.GRPCPort)
	c.Service.MetricsPort = envOrDefault("METRICS_PORT", c.Service.MetricsPort)
	c.Service.CORSOrigins = envOrDefaultList("CORS_ALLOWED_ORIGINS", c.Service.CORSOrigins)

	c.Model.Provider = envOrDefault("MODEL_PROVIDER", c.Model.Provider)
	c.Model.URL = envOrDefault("MODEL_URL", c.Model.URL)
	c.Model.BaseURL = envOrDefault("MODEL_BASE_URL", c.Model.BaseURL)
	c.Model.Name = envOrDefault("MODEL_NAME", c.Model.Name)
	c.Model.APIKey = envOrDefault("MODEL_API_KEY", c.Model.APIKey)
	c.Model.Timeout = envOrDefaultDuration("MODEL_TIMEOUT", c.Model.Timeout)

	c.OCR.TesseractPath = envOrDefault("TESSERACT_PATH", c.OCR.TesseractPath)
	c.OCR.Language = envOrDefault("OCR_LANGUAGE", c.OCR.Language)

	c.Audio.FFmpegPath = envOrDefault("FFMPEG_PATH", c.Audio.FFmpegPath)
	c.Audio.SampleRateHz = envOrDefaultInt("AUDIO_SAMPLE_RATE_HZ", c.Audio.SampleRateHz)
	c.Audio.Channels = envOrDefaultInt("AUDIO_CHANNELS", c.Audio.Channels)
	c.Audio.TempDir = envOrDefault("AUDIO_TEMP_DIR", c.Audio.TempDir)
	c.Audio.MaxAudioBytes = envOrDefaultInt64("AUDIO_MAX_BYTES", c.Audio.MaxAudioBytes)
	c.Audio.MaxDuration = envOrDefaultDuration("AUDIO_MAX_DURATION", c.Audio.MaxDuration)

	c.STT.Provider = envOrDefault("STT_PROVIDER", c.STT.Provider)
	c.STT.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", c.STT.LanguageCode)
	c.STT.SampleRateHz = envOrDefaultInt("STT_SAMPLE_RATE_HZ", c.STT.SampleRateHz)
	c.STT.AudioEncoding = envOrDefault("STT_AUDIO_ENCODING", c.STT.AudioEncoding)
	c.STT.Model = envOrDefault("STT_MODEL", c.STT.Model)

	c.Upload.MaxBytes = envOrDefaultInt64("UPLOAD_MAX_BYTES", c.Upload.MaxBytes)

	c.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = envOrDefaultList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.TopicDocuments = envOrDefault("KAFKA_TOPIC_DOCUMENTS", c.Kafka.TopicDocuments)
	c.Kafka.TopicTranscripts = envOrDefault("KAFKA_TOPIC_TRANSCRIPTS", c.Kafka.TopicTranscripts)
	c.Kafka.TopicAnswers = envOrDefault("KAFKA_TOPIC_ANSWERS", c.Kafka.TopicAnswers)
	c.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", c.Kafka.Principal)
	if c.Kafka.Principal == "" {
		c.Kafka.Principal = c.Service.Principal
	}

	c.Inbox.Dir = envOrDefault("INBOX_DIR", c.Inbox.Dir)

	c.Observability.LogLevel = envOrDefault("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = envOrDefault("LOG_FORMAT", c.Observability.LogFormat)
	c.Observability.MetricsEnabled = envOrDefaultBool("METRICS_ENABLED", c.Observability.MetricsEnabled)
}

// Validate reports configuration the service cannot start with.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	switch c.STT.Provider {
	case "mock", "google":
	default:
		return fmt.Errorf("unknown STT provider %q", c.STT.Provider)
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("model timeout must be positive, got %v", c.Model.Timeout)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka enabled without brokers")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
