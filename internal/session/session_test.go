package session

import (
	"errors"
	"sync"
	"testing"

	"ai-offline-assistant/internal/models"
)

func TestSession_HistoryStartsEmpty(t *testing.T) {
	s := NewStore().Create()
	if len(s.History()) != 0 {
		t.Errorf("expected empty history, got %d messages", len(s.History()))
	}
	if _, text := s.Document(); text != "" {
		t.Errorf("expected no document, got %q", text)
	}
}

func TestSession_AppendPreservesOrder(t *testing.T) {
	s := NewStore().Create()
	s.Append(models.RoleUser, "hi")
	s.Append(models.RoleAssistant, "hello")
	s.Append(models.RoleUser, "bye")

	h := s.History()
	want := []struct {
		role    models.Role
		content string
	}{
		{models.RoleUser, "hi"},
		{models.RoleAssistant, "hello"},
		{models.RoleUser, "bye"},
	}
	if len(h) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(h))
	}
	for i, w := range want {
		if h[i].Role != w.role || h[i].Content != w.content {
			t.Errorf("message %d: expected %s/%q, got %s/%q", i, w.role, w.content, h[i].Role, h[i].Content)
		}
	}
}

func TestSession_HistoryIsACopy(t *testing.T) {
	s := NewStore().Create()
	s.Append(models.RoleUser, "original")
	h := s.History()
	h[0].Content = "mutated"
	if s.History()[0].Content != "original" {
		t.Error("expected History to return a copy")
	}
}

func TestSession_SetDocumentReplaces(t *testing.T) {
	s := NewStore().Create()
	s.SetDocument("a.pdf", "first")
	s.SetDocument("b.docx", "second")
	name, text := s.Document()
	if name != "b.docx" || text != "second" {
		t.Errorf("expected latest document, got %s/%q", name, text)
	}
}

func TestStore_CloseClearsAndForgets(t *testing.T) {
	st := NewStore()
	s := st.Create()
	s.Append(models.RoleUser, "hi")
	s.SetDocument("a.pdf", "text")

	if err := st.Close(s.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(s.History()) != 0 {
		t.Error("expected history cleared on close")
	}
	if _, text := s.Document(); text != "" {
		t.Error("expected document cleared on close")
	}
	if _, err := st.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after close, got %v", err)
	}
	if err := st.Close(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double close, got %v", err)
	}
}

func TestStore_EnsureIsIdempotent(t *testing.T) {
	st := NewStore()
	a := st.Ensure("inbox")
	b := st.Ensure("inbox")
	if a != b {
		t.Error("expected Ensure to return the same session")
	}
	if st.Len() != 1 {
		t.Errorf("expected 1 session, got %d", st.Len())
	}
}

func TestStore_CreateUniqueIDs(t *testing.T) {
	st := NewStore()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := st.Create().ID
		if seen[id] {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = true
	}
	st.CloseAll()
	if st.Len() != 0 {
		t.Errorf("expected no sessions after CloseAll, got %d", st.Len())
	}
}

func TestStore_ConcurrentSessions(t *testing.T) {
	st := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := st.Create()
			s.Append(models.RoleUser, "q")
			if _, err := st.Get(s.ID); err != nil {
				t.Errorf("get: %v", err)
			}
			st.Close(s.ID)
		}()
	}
	wg.Wait()
	if st.Len() != 0 {
		t.Errorf("expected all sessions closed, got %d", st.Len())
	}
}
