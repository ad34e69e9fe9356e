// Package events publishes pipeline events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/observability/metrics"
	"ai-offline-assistant/internal/schema"
)

// Publisher publishes pipeline events to one Kafka topic per event type.
// With Kafka disabled it only logs.
type Publisher struct {
	writers   map[string]*kafka.Writer // keyed by event type
	topics    map[string]string        // event type -> topic
	principal string
	enabled   bool
	validator *schema.Validator
	metrics   *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers          []string
	TopicDocuments   string
	TopicTranscripts string
	TopicAnswers     string
	Principal        string
	Enabled          bool
}

// New creates a new Kafka event publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			topics:    map[string]string{},
			enabled:   false,
			validator: schema.New(),
			metrics:   m,
		}
	}

	topics := map[string]string{
		models.EventDocumentExtracted: cfg.TopicDocuments,
		models.EventVoiceTranscribed:  cfg.TopicTranscripts,
		models.EventAnswerProduced:    cfg.TopicAnswers,
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			topics:    topics,
			principal: cfg.Principal,
			enabled:   false,
			validator: schema.New(),
			metrics:   m,
		}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writers := make(map[string]*kafka.Writer, len(topics))
	for eventType, topic := range topics {
		writers[eventType] = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicDocuments", cfg.TopicDocuments).
		Str("topicTranscripts", cfg.TopicTranscripts).
		Str("topicAnswers", cfg.TopicAnswers).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writers:   writers,
		topics:    topics,
		principal: cfg.Principal,
		enabled:   true,
		validator: schema.New(),
		metrics:   m,
	}
}

// PublishDocument publishes a document.extracted event.
func (p *Publisher) PublishDocument(ctx context.Context, key string, event models.DocumentExtracted) error {
	return p.publish(ctx, models.EventDocumentExtracted, key, event)
}

// PublishTranscript publishes a voice.transcribed event.
func (p *Publisher) PublishTranscript(ctx context.Context, key string, event models.VoiceTranscribed) error {
	return p.publish(ctx, models.EventVoiceTranscribed, key, event)
}

// PublishAnswer publishes an answer.produced event.
func (p *Publisher) PublishAnswer(ctx context.Context, key string, event models.AnswerProduced) error {
	return p.publish(ctx, models.EventAnswerProduced, key, event)
}

// Principal returns the principal stamped on every event.
func (p *Publisher) Principal() string {
	return p.principal
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, event any) error {
	start := time.Now()
	topic := p.topics[eventType]

	if p.validator != nil {
		if err := p.validator.Validate(event); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("Rejected invalid event")
			return err
		}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	writer := p.writers[eventType]
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes every Kafka writer.
func (p *Publisher) Close() error {
	var errs []error
	for eventType, w := range p.writers {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil {
			log.Error().Err(err).Str("eventType", eventType).Msg("Error closing writer")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
