// Package session holds per-session chat history and extracted document text.
// Nothing here outlives the process.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-offline-assistant/internal/models"
	"ai-offline-assistant/internal/observability/metrics"
)

// ErrNotFound is returned for an unknown or closed session.
var ErrNotFound = errors.New("session not found")

// Session is one user's conversation state.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	history  []models.ChatMessage
	document string
	docName  string
}

func newSession(id string) *Session {
	return &Session{ID: id, CreatedAt: time.Now()}
}

// Append adds a message to the end of the chat history.
func (s *Session) Append(role models.Role, content string) models.ChatMessage {
	msg := models.ChatMessage{Role: role, Content: content, Timestamp: time.Now()}
	s.mu.Lock()
	s.history = append(s.history, msg)
	s.mu.Unlock()
	return msg
}

// History returns a copy of the chat history in append order.
func (s *Session) History() []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// SetDocument replaces the extracted text used to ground questions.
func (s *Session) SetDocument(name, text string) {
	s.mu.Lock()
	s.docName, s.document = name, text
	s.mu.Unlock()
}

// Document returns the current extracted text and the name it came from.
func (s *Session) Document() (name, text string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docName, s.document
}

// Clear drops the chat history and the extracted text.
func (s *Session) Clear() {
	s.mu.Lock()
	s.history = nil
	s.document, s.docName = "", ""
	s.mu.Unlock()
}

// Store keeps the open sessions of the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	metrics  *metrics.Metrics
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		metrics:  metrics.DefaultMetrics,
	}
}

// Create opens a session with a random id.
func (st *Store) Create() *Session {
	s := newSession(uuid.NewString())
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	st.metrics.RecordSessionOpened()
	return s
}

// Ensure returns the session with id, opening it if needed.
func (st *Store) Ensure(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	s := newSession(id)
	st.sessions[id] = s
	st.metrics.RecordSessionOpened()
	return s
}

// Get returns an open session.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close clears and forgets a session.
func (st *Store) Close(id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Clear()
	st.metrics.RecordSessionClosed()
	return nil
}

// CloseAll tears down every session, at shutdown.
func (st *Store) CloseAll() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()
	for _, s := range sessions {
		s.Clear()
		st.metrics.RecordSessionClosed()
	}
}

// Len returns the number of open sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
