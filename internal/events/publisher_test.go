package events

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/schema"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if len(p.writers) != 0 {
				t.Errorf("expected no writers when disabled, got %d", len(p.writers))
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	cfg := &Config{
		Enabled:          false,
		Brokers:          []string{"localhost:9092"},
		TopicDocuments:   "test.documents",
		TopicTranscripts: "test.transcripts",
		TopicAnswers:     "test.answers",
		Principal:        "test-principal",
	}

	p := New(cfg)

	if p.Principal() != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.Principal())
	}
	want := map[string]string{
		models.EventDocumentExtracted: "test.documents",
		models.EventVoiceTranscribed:  "test.transcripts",
		models.EventAnswerProduced:    "test.answers",
	}
	for eventType, topic := range want {
		if p.topics[eventType] != topic {
			t.Errorf("expected topic %s for %s, got %s", topic, eventType, p.topics[eventType])
		}
	}
}

func TestNew_EnabledCreatesWriterPerTopic(t *testing.T) {
	p := New(&Config{
		Enabled:          true,
		Brokers:          []string{"localhost:9092"},
		TopicDocuments:   "docs",
		TopicTranscripts: "voice",
		TopicAnswers:     "answers",
	})
	defer p.Close()

	if !p.enabled {
		t.Fatal("expected publisher to be enabled")
	}
	if len(p.writers) != 3 {
		t.Fatalf("expected 3 writers, got %d", len(p.writers))
	}
	if w := p.writers[models.EventAnswerProduced]; w == nil || w.Topic != "answers" {
		t.Errorf("expected answers writer, got %+v", w)
	}
	if _, ok := p.writers[models.EventDocumentExtracted].Balancer.(*kafka.LeastBytes); !ok {
		t.Error("expected LeastBytes balancer")
	}
}

func TestPublisher_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})
	ctx := context.Background()

	doc := models.DocumentExtracted{EventType: models.EventDocumentExtracted, EventID: "e1", SessionID: "s1", Timestamp: 1, Name: "a.pdf"}
	if err := p.PublishDocument(ctx, "s1", doc); err != nil {
		t.Errorf("expected no error publishing document when disabled, got %v", err)
	}
	voice := models.VoiceTranscribed{EventType: models.EventVoiceTranscribed, EventID: "e2", SessionID: "s1", Timestamp: 1, Text: "hi"}
	if err := p.PublishTranscript(ctx, "s1", voice); err != nil {
		t.Errorf("expected no error publishing transcript when disabled, got %v", err)
	}
	answer := models.AnswerProduced{EventType: models.EventAnswerProduced, EventID: "e3", SessionID: "s1", Timestamp: 1, Mode: "chat", Answer: "ok"}
	if err := p.PublishAnswer(ctx, "s1", answer); err != nil {
		t.Errorf("expected no error publishing answer when disabled, got %v", err)
	}
}

func TestPublisher_RejectsInvalidEvent(t *testing.T) {
	p := New(&Config{Enabled: false})

	err := p.PublishAnswer(context.Background(), "s1", models.AnswerProduced{Answer: "ok"})
	if !errors.Is(err, schema.ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestPublisher_UnknownEvent(t *testing.T) {
	p := New(&Config{Enabled: false})

	err := p.publish(context.Background(), models.EventAnswerProduced, "k", make(chan int))
	if err == nil {
		t.Error("expected error for unknown event")
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_Close_NilPublisherFields(t *testing.T) {
	p := &Publisher{writers: map[string]*kafka.Writer{models.EventAnswerProduced: nil}}

	if err := p.Close(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
