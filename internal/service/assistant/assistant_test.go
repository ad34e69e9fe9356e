package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/service/format"
	"ai-offline-assistant/internal/service/llm"
	"ai-offline-assistant/internal/session"
)

type fakeModel struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeModel) Name() string { return "fake" }

type fakeExtractor struct {
	result models.Result
	calls  int
}

func (f *fakeExtractor) Extract(_ context.Context, _ models.UploadedArtifact) models.Result {
	f.calls++
	return f.result
}

type fakeTranscriber struct {
	result models.Result
	err    error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ models.UploadedArtifact) (models.Result, error) {
	return f.result, f.err
}

type recordingEvents struct {
	mu          sync.Mutex
	documents   []models.DocumentExtracted
	transcripts []models.VoiceTranscribed
	answers     []models.AnswerProduced
	err         error
}

func (r *recordingEvents) PublishDocument(_ context.Context, _ string, ev models.DocumentExtracted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents = append(r.documents, ev)
	return r.err
}

func (r *recordingEvents) PublishTranscript(_ context.Context, _ string, ev models.VoiceTranscribed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcripts = append(r.transcripts, ev)
	return r.err
}

func (r *recordingEvents) PublishAnswer(_ context.Context, _ string, ev models.AnswerProduced) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, ev)
	return r.err
}

func newService(ex Extractor, tr Transcriber, model llm.Client, ev Events) *Service {
	return New(Config{Principal: "test"}, ex, tr, model, ev)
}

func doc(name string) models.UploadedArtifact {
	return models.UploadedArtifact{Name: name, Body: strings.NewReader("bytes")}
}

func TestChat_AppendsBothTurns(t *testing.T) {
	model := &fakeModel{answer: "Hello!"}
	ev := &recordingEvents{}
	svc := newService(&fakeExtractor{}, nil, model, ev)
	sess := session.NewStore().Create()

	answer, err := svc.Chat(context.Background(), sess, "hi there")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if answer != "Hello!" {
		t.Errorf("expected 'Hello!', got %q", answer)
	}
	if model.prompts[0] != "hi there" {
		t.Errorf("expected raw input as prompt, got %q", model.prompts[0])
	}

	h := sess.History()
	if len(h) != 2 || h[0].Role != models.RoleUser || h[0].Content != "hi there" || h[1].Role != models.RoleAssistant || h[1].Content != "Hello!" {
		t.Errorf("unexpected history %+v", h)
	}
	if len(ev.answers) != 1 || ev.answers[0].Mode != ModeChat || ev.answers[0].Outcome != string(models.OutcomeOK) {
		t.Errorf("unexpected answer events %+v", ev.answers)
	}
}

func TestChat_ModelFailureIsErrorText(t *testing.T) {
	ev := &recordingEvents{}
	svc := newService(&fakeExtractor{}, nil, &fakeModel{err: errors.New("connection refused")}, ev)
	sess := session.NewStore().Create()

	answer, err := svc.Chat(context.Background(), sess, "hi")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.HasPrefix(answer, llm.ErrorMarker) {
		t.Errorf("expected error text, got %q", answer)
	}
	if h := sess.History(); len(h) != 2 || h[1].Content != answer {
		t.Errorf("expected error text recorded as assistant turn, got %+v", h)
	}
	if ev.answers[0].Outcome != string(models.OutcomeModelUnavailable) {
		t.Errorf("expected model_unavailable outcome, got %s", ev.answers[0].Outcome)
	}
}

func TestChat_EmptyInput(t *testing.T) {
	model := &fakeModel{}
	svc := newService(&fakeExtractor{}, nil, model, nil)
	sess := session.NewStore().Create()

	if _, err := svc.Chat(context.Background(), sess, "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("expected ErrEmptyQuestion, got %v", err)
	}
	if len(model.prompts) != 0 || len(sess.History()) != 0 {
		t.Error("expected no model call and no history for empty input")
	}
}

func TestIngest_SetsSessionDocument(t *testing.T) {
	ev := &recordingEvents{}
	ex := &fakeExtractor{result: models.Result{Text: "Invoice total 40", Outcome: models.OutcomeOK}}
	svc := newService(ex, nil, &fakeModel{}, ev)
	sess := session.NewStore().Create()

	res := svc.IngestDocument(context.Background(), sess, doc("invoice.pdf"))
	if res.Text != "Invoice total 40" {
		t.Errorf("unexpected result %+v", res)
	}
	name, text := sess.Document()
	if name != "invoice.pdf" || text != "Invoice total 40" {
		t.Errorf("expected session document set, got %s/%q", name, text)
	}
	if len(ev.documents) != 1 {
		t.Fatalf("expected 1 document event, got %d", len(ev.documents))
	}
	got := ev.documents[0]
	if got.Kind != string(format.PDF) || got.Source != string(SourceUpload) || got.Chars != 16 || got.Principal != "test" {
		t.Errorf("unexpected document event %+v", got)
	}
}

func TestIngest_FailureClearsPreviousDocument(t *testing.T) {
	ex := &fakeExtractor{result: models.Result{Outcome: models.OutcomeExtractionFailed, Err: errors.New("bad zip")}}
	svc := newService(ex, nil, &fakeModel{}, nil)
	sess := session.NewStore().Create()
	sess.SetDocument("old.pdf", "old text")

	res := svc.IngestDocument(context.Background(), sess, doc("new.docx"))
	if res.Outcome != models.OutcomeExtractionFailed {
		t.Errorf("expected extraction failure, got %s", res.Outcome)
	}
	if _, text := sess.Document(); text != "" {
		t.Errorf("expected previous text replaced, got %q", text)
	}
}

func TestIngest_UnsupportedNeverReachesExtractor(t *testing.T) {
	ex := &fakeExtractor{}
	svc := newService(ex, nil, &fakeModel{}, nil)
	sess := session.NewStore().Create()

	res := svc.Ingest(context.Background(), sess, doc("memo.mp3"), SourceInbox)
	if !errors.Is(res.Err, format.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", res.Err)
	}
	if ex.calls != 0 {
		t.Errorf("expected extractor not called, got %d calls", ex.calls)
	}
}

func TestIngest_PublishFailureDoesNotFail(t *testing.T) {
	ev := &recordingEvents{err: errors.New("broker down")}
	ex := &fakeExtractor{result: models.Result{Text: "x", Outcome: models.OutcomeOK}}
	svc := newService(ex, nil, &fakeModel{}, ev)

	res := svc.IngestDocument(context.Background(), session.NewStore().Create(), doc("a.png"))
	if res.Text != "x" {
		t.Errorf("expected result despite publish failure, got %+v", res)
	}
}

func TestAskDocument_ComposesGroundedPrompt(t *testing.T) {
	model := &fakeModel{answer: "40 EUR"}
	ev := &recordingEvents{}
	svc := newService(&fakeExtractor{}, nil, model, ev)
	sess := session.NewStore().Create()
	sess.SetDocument("invoice.pdf", "Invoice total: 40 EUR")

	answer, err := svc.AskDocument(context.Background(), sess, "What is the total?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer != "40 EUR" {
		t.Errorf("expected '40 EUR', got %q", answer)
	}
	want := "Use the extracted content below to answer:\n\nInvoice total: 40 EUR\n\nQuestion: What is the total?"
	if model.prompts[0] != want {
		t.Errorf("expected prompt %q, got %q", want, model.prompts[0])
	}
	if len(sess.History()) != 0 {
		t.Error("expected document questions to stay out of chat history")
	}
	if ev.answers[0].Mode != ModeDocument {
		t.Errorf("expected document mode, got %s", ev.answers[0].Mode)
	}
}

func TestAskDocument_Gate(t *testing.T) {
	tests := []struct {
		name     string
		document string
		question string
		want     error
	}{
		{"no document", "", "What?", ErrNoDocument},
		{"blank document", " \n\t", "What?", ErrNoDocument},
		{"empty question", "text", "", ErrEmptyQuestion},
		{"blank question", "text", "   ", ErrEmptyQuestion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{answer: "never"}
			svc := newService(&fakeExtractor{}, nil, model, nil)
			sess := session.NewStore().Create()
			sess.SetDocument("a.pdf", tt.document)

			_, err := svc.AskDocument(context.Background(), sess, tt.question)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(model.prompts) != 0 {
				t.Error("expected no model call")
			}
		})
	}
}

func TestTranscribeVoice(t *testing.T) {
	ev := &recordingEvents{}
	tr := &fakeTranscriber{result: models.Result{Text: "what is the total", Outcome: models.OutcomeOK}}
	svc := newService(&fakeExtractor{}, tr, &fakeModel{}, ev)

	res, err := svc.TranscribeVoice(context.Background(), session.NewStore().Create(), doc("q.wav"))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if res.Text != "what is the total" {
		t.Errorf("unexpected result %+v", res)
	}
	if len(ev.transcripts) != 1 || ev.transcripts[0].Outcome != string(models.OutcomeOK) {
		t.Errorf("unexpected transcript events %+v", ev.transcripts)
	}
}

func TestTranscribeVoice_ErrorPropagates(t *testing.T) {
	ev := &recordingEvents{}
	svc := newService(&fakeExtractor{}, &fakeTranscriber{err: errors.New("ffmpeg exit status 1")}, &fakeModel{}, ev)

	_, err := svc.TranscribeVoice(context.Background(), session.NewStore().Create(), doc("q.mp4"))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ev.transcripts) != 0 {
		t.Error("expected no transcript event for a transcoding failure")
	}
}

func TestTranscribeVoice_NotConfigured(t *testing.T) {
	svc := newService(&fakeExtractor{}, nil, &fakeModel{}, nil)
	_, err := svc.TranscribeVoice(context.Background(), session.NewStore().Create(), doc("q.wav"))
	if !errors.Is(err, ErrNoTranscriber) {
		t.Errorf("expected ErrNoTranscriber, got %v", err)
	}
}

func TestAskByVoice(t *testing.T) {
	t.Run("asks with transcript", func(t *testing.T) {
		model := &fakeModel{answer: "40 EUR"}
		tr := &fakeTranscriber{result: models.Result{Text: "what is the total", Outcome: models.OutcomeOK}}
		svc := newService(&fakeExtractor{}, tr, model, nil)
		sess := session.NewStore().Create()
		sess.SetDocument("a.pdf", "total 40 EUR")

		transcript, answer, err := svc.AskByVoice(context.Background(), sess, doc("q.wav"))
		if err != nil {
			t.Fatalf("ask by voice: %v", err)
		}
		if transcript.Text != "what is the total" || answer != "40 EUR" {
			t.Errorf("unexpected transcript %q answer %q", transcript.Text, answer)
		}
	})

	t.Run("sentinel transcript is not asked", func(t *testing.T) {
		model := &fakeModel{answer: "never"}
		tr := &fakeTranscriber{result: models.Result{Text: "❌ Could not understand audio.", Outcome: models.OutcomeUnintelligible}}
		svc := newService(&fakeExtractor{}, tr, model, nil)
		sess := session.NewStore().Create()
		sess.SetDocument("a.pdf", "text")

		transcript, answer, err := svc.AskByVoice(context.Background(), sess, doc("q.wav"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if transcript.Outcome != models.OutcomeUnintelligible || answer != "" {
			t.Errorf("unexpected transcript %+v answer %q", transcript, answer)
		}
		if len(model.prompts) != 0 {
			t.Error("expected no model call for a sentinel transcript")
		}
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "h"},
		{"", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d): expected %q, got %q", tt.in, tt.n, tt.want, got)
		}
	}
}
