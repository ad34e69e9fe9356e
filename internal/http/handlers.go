package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/service/assistant"
	"ai-offline-assistant/internal/service/audio"
	"ai-offline-assistant/internal/service/format"
	"ai-offline-assistant/internal/session"
)

// uploadField is the multipart field carrying the file.
const uploadField = "file"

type handlers struct {
	sessions  *session.Store
	assistant Assistant
	maxUpload int64
	logger    zerolog.Logger
}

type sessionResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

type historyResponse struct {
	SessionID string               `json:"sessionId"`
	Messages  []models.ChatMessage `json:"messages"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type askRequest struct {
	Question string `json:"question"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

type documentResponse struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Outcome string `json:"outcome"`
	Chars   int    `json:"chars"`
	Text    string `json:"text"`
	Error   string `json:"error,omitempty"`
}

type voiceResponse struct {
	Transcript string `json:"transcript"`
	Outcome    string `json:"outcome"`
	Answer     string `json:"answer,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) createSession(w http.ResponseWriter, _ *http.Request) {
	s := h.sessions.Create()
	h.logger.Info().Str("sessionId", s.ID).Msg("Session opened")
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: s.ID, CreatedAt: s.CreatedAt})
}

func (h *handlers) closeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.sessions.Close(id); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info().Str("sessionId", id).Msg("Session closed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	msgs := s.History()
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: s.ID, Messages: msgs})
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	answer, err := h.assistant.Chat(r.Context(), s, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Answer: answer})
}

func (h *handlers) ask(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	answer, err := h.assistant.AskDocument(r.Context(), s, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Answer: answer})
}

func (h *handlers) uploadDocument(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	artifact, closeFn, ok := h.artifact(w, r, func(k format.Kind) bool { return k.IsDocument() }, format.DocumentSuffixes())
	if !ok {
		return
	}
	defer closeFn()

	res := h.assistant.IngestDocument(r.Context(), s, artifact)
	resp := documentResponse{
		Name:    artifact.Name,
		Kind:    string(format.Detect(artifact.Name)),
		Outcome: string(res.Outcome),
		Chars:   len(res.Text),
		Text:    res.Text,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) uploadVoice(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	artifact, closeFn, ok := h.artifact(w, r, func(k format.Kind) bool { return k == format.Audio }, format.AudioSuffixes())
	if !ok {
		return
	}
	defer closeFn()

	askNow, _ := strconv.ParseBool(r.URL.Query().Get("ask"))

	var (
		res    models.Result
		answer string
		err    error
	)
	if askNow {
		res, answer, err = h.assistant.AskByVoice(r.Context(), s, artifact)
		// The transcript is still shown when there is nothing to ask against.
		if errors.Is(err, assistant.ErrNoDocument) || errors.Is(err, assistant.ErrEmptyQuestion) {
			err = nil
		}
	} else {
		res, err = h.assistant.TranscribeVoice(r.Context(), s, artifact)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voiceResponse{
		Transcript: res.Display(),
		Outcome:    string(res.Outcome),
		Answer:     answer,
	})
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return s, true
}

// artifact reads the uploaded file, rejecting suffixes accept refuses.
func (h *handlers) artifact(w http.ResponseWriter, r *http.Request, accept func(format.Kind) bool, allowed []string) (models.UploadedArtifact, func(), bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "upload too large"})
			return models.UploadedArtifact{}, nil, false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("missing %q file field", uploadField)})
		return models.UploadedArtifact{}, nil, false
	}
	if !accept(format.Detect(header.Filename)) {
		file.Close()
		writeJSON(w, http.StatusUnsupportedMediaType, errorResponse{
			Error: fmt.Sprintf("unsupported file type %q, expected one of %s", format.Ext(header.Filename), strings.Join(allowed, ", ")),
		})
		return models.UploadedArtifact{}, nil, false
	}
	return models.UploadedArtifact{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}, func() { file.Close() }, true
}

func writeError(w http.ResponseWriter, err error) {
	var transcode *audio.TranscodeError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, assistant.ErrEmptyQuestion):
		status = http.StatusBadRequest
	case errors.Is(err, assistant.ErrNoDocument):
		status = http.StatusConflict
	case errors.Is(err, assistant.ErrNoTranscriber):
		status = http.StatusServiceUnavailable
	case errors.Is(err, audio.ErrClipTooLarge), errors.Is(err, audio.ErrClipTooLong):
		status = http.StatusRequestEntityTooLarge
	case errors.As(err, &transcode):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
