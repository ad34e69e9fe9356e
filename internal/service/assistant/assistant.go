// Package assistant wires the ingestion pipeline to session state: chat,
// document ingestion, voice transcription and grounded document questions.
package assistant

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/observability/logging"
	"ai-offline-assistant/internal/service/format"
	"ai-offline-assistant/internal/service/llm"
	"ai-offline-assistant/internal/service/prompt"
	"ai-offline-assistant/internal/session"
)

var (
	// ErrEmptyQuestion is returned for a blank chat message or question.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrNoDocument is returned when a question has no extracted text to
	// ground it.
	ErrNoDocument = errors.New("no extracted document text in session")
	// ErrNoTranscriber is returned when voice input is not configured.
	ErrNoTranscriber = errors.New("voice transcription is not configured")
)

// maxEventText bounds the extracted text carried by a document event.
const maxEventText = 8 << 10

// Source tags where a document came from.
type Source string

const (
	SourceUpload Source = "upload"
	SourceInbox  Source = "inbox"
	SourceMCP    Source = "mcp"
)

// Answer modes recorded on answer events.
const (
	ModeChat     = "chat"
	ModeDocument = "document"
)

// Extractor converts a document artifact to a Result.
type Extractor interface {
	Extract(ctx context.Context, artifact models.UploadedArtifact) models.Result
}

// Transcriber converts a voice artifact to a Result.
type Transcriber interface {
	Transcribe(ctx context.Context, artifact models.UploadedArtifact) (models.Result, error)
}

// Events receives pipeline events.
type Events interface {
	PublishDocument(ctx context.Context, key string, event models.DocumentExtracted) error
	PublishTranscript(ctx context.Context, key string, event models.VoiceTranscribed) error
	PublishAnswer(ctx context.Context, key string, event models.AnswerProduced) error
}

// Config holds service configuration.
type Config struct {
	Principal string
}

// Service runs pipeline operations against a session.
type Service struct {
	extractor   Extractor
	transcriber Transcriber
	model       llm.Client
	events      Events
	principal   string
	logger      zerolog.Logger
}

// New creates a service. transcriber and events may be nil.
func New(cfg Config, extractor Extractor, transcriber Transcriber, model llm.Client, events Events) *Service {
	return &Service{
		extractor:   extractor,
		transcriber: transcriber,
		model:       model,
		events:      events,
		principal:   cfg.Principal,
		logger:      logging.WithComponent("assistant"),
	}
}

// Chat records the user message, sends it to the model as is and records
// the answer. Model failures come back as error text in the answer.
func (s *Service) Chat(ctx context.Context, sess *session.Session, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyQuestion
	}

	sess.Append(models.RoleUser, input)
	start := time.Now()
	answer, err := llm.AskWithError(ctx, s.model, input)
	sess.Append(models.RoleAssistant, answer)

	s.publishAnswer(ctx, sess.ID, ModeChat, input, answer, err, time.Since(start))
	return answer, nil
}

// IngestDocument extracts an uploaded document into the session.
func (s *Service) IngestDocument(ctx context.Context, sess *session.Session, artifact models.UploadedArtifact) models.Result {
	return s.Ingest(ctx, sess, artifact, SourceUpload)
}

// Ingest extracts a document and makes its text the session's grounding.
// The previous text is replaced even when extraction yields nothing.
func (s *Service) Ingest(ctx context.Context, sess *session.Session, artifact models.UploadedArtifact, source Source) models.Result {
	kind := format.Detect(artifact.Name)
	logger := logging.WithArtifact("assistant", sess.ID, artifact.Name, string(kind))

	var res models.Result
	if kind.IsDocument() {
		res = s.extractor.Extract(ctx, artifact)
	} else {
		res = models.Result{Outcome: models.OutcomeExtractionFailed, Err: format.ErrUnsupported}
	}
	sess.SetDocument(artifact.Name, res.Text)

	logger.Info().
		Str("source", string(source)).
		Str("outcome", string(res.Outcome)).
		Int("chars", len(res.Text)).
		Bool("blank", res.Blank()).
		Msg("Document ingested")

	if s.events != nil {
		ev := models.DocumentExtracted{
			EventType: models.EventDocumentExtracted,
			EventID:   uuid.NewString(),
			SessionID: sess.ID,
			Principal: s.principal,
			Timestamp: time.Now().UnixMilli(),
			Source:    string(source),
			Name:      artifact.Name,
			Kind:      string(kind),
			Outcome:   string(res.Outcome),
			Chars:     len(res.Text),
			Text:      truncate(res.Text, maxEventText),
		}
		if err := s.events.PublishDocument(ctx, sess.ID, ev); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish document event")
		}
	}
	return res
}

// TranscribeVoice turns a voice clip into question text. Recognition
// failures are sentinel texts in the Result; transcoding failures are
// returned as errors.
func (s *Service) TranscribeVoice(ctx context.Context, sess *session.Session, artifact models.UploadedArtifact) (models.Result, error) {
	if s.transcriber == nil {
		return models.Result{}, ErrNoTranscriber
	}
	logger := logging.WithArtifact("assistant", sess.ID, artifact.Name, string(format.Audio))

	res, err := s.transcriber.Transcribe(ctx, artifact)
	if err != nil {
		logger.Error().Err(err).Msg("Voice transcription failed")
		return models.Result{}, err
	}

	if s.events != nil {
		ev := models.VoiceTranscribed{
			EventType: models.EventVoiceTranscribed,
			EventID:   uuid.NewString(),
			SessionID: sess.ID,
			Principal: s.principal,
			Timestamp: time.Now().UnixMilli(),
			Name:      artifact.Name,
			Outcome:   string(res.Outcome),
			Text:      res.Text,
		}
		if err := s.events.PublishTranscript(ctx, sess.ID, ev); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish transcript event")
		}
	}
	return res, nil
}

// AskDocument answers a question grounded on the session's extracted text.
// It refuses when the question is blank or there is no readable text.
func (s *Service) AskDocument(ctx context.Context, sess *session.Session, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}
	_, text := sess.Document()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoDocument
	}

	start := time.Now()
	answer, err := llm.AskWithError(ctx, s.model, prompt.Compose(text, question))
	s.publishAnswer(ctx, sess.ID, ModeDocument, question, answer, err, time.Since(start))
	return answer, nil
}

// AskByVoice transcribes a clip and, when it produced a question, asks it
// against the session's document. answer is empty when the transcript is
// a sentinel.
func (s *Service) AskByVoice(ctx context.Context, sess *session.Session, artifact models.UploadedArtifact) (transcript models.Result, answer string, err error) {
	transcript, err = s.TranscribeVoice(ctx, sess, artifact)
	if err != nil || !transcript.OK() || transcript.Blank() {
		return transcript, "", err
	}
	answer, err = s.AskDocument(ctx, sess, transcript.Text)
	return transcript, answer, err
}

func (s *Service) publishAnswer(ctx context.Context, sessionID, mode, question, answer string, callErr error, latency time.Duration) {
	if s.events == nil {
		return
	}
	outcome := models.OutcomeOK
	if callErr != nil {
		outcome = models.OutcomeModelUnavailable
	}
	ev := models.AnswerProduced{
		EventType: models.EventAnswerProduced,
		EventID:   uuid.NewString(),
		SessionID: sessionID,
		Principal: s.principal,
		Timestamp: time.Now().UnixMilli(),
		Mode:      mode,
		Question:  question,
		Answer:    answer,
		Outcome:   string(outcome),
		LatencyMs: latency.Milliseconds(),
	}
	if err := s.events.PublishAnswer(ctx, sessionID, ev); err != nil {
		s.logger.Warn().Err(err).Str("sessionId", sessionID).Msg("Failed to publish answer event")
	}
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
