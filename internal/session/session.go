package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"habitat-server/internal/editor"
)

// Session is one editing canvas. Every operation runs under its mutex, so
// the wrapped editor sees a single event-driven thread no matter how many
// requests or websocket frames arrive.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	editor     *editor.SceneEditor
	lastActive time.Time

	hub     *Hub
	cancel  context.CancelFunc
	now     func() time.Time
	metrics *Metrics
	logger  *slog.Logger
}

// Update applies fn and, when it reports a change, broadcasts the new view
// to every subscriber. The view is returned either way unless fn fails.
func (s *Session) Update(op string, fn func(e *editor.SceneEditor) (bool, error)) (editor.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = s.now()
	changed, err := fn(s.editor)
	if err != nil {
		return editor.View{}, err
	}
	s.metrics.IncOperation(op)

	view := s.editor.View()
	if changed {
		s.publish(view)
	}
	return view, nil
}

// Read runs fn without broadcasting. fn must not mutate the editor.
func (s *Session) Read(fn func(e *editor.SceneEditor)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = s.now()
	fn(s.editor)
}

func (s *Session) View() editor.View {
	var v editor.View
	s.Read(func(e *editor.SceneEditor) { v = e.View() })
	return v
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) Hub() *Hub { return s.hub }

func (s *Session) publish(view editor.View) {
	msg, err := EncodeMessage(MessageView, view)
	if err != nil {
		s.logger.Error("Failed to encode view", "error", err)
		return
	}
	s.hub.Broadcast(msg)
}

func (s *Session) close() {
	s.cancel()
}

func EncodeMessage(typ string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: typ, Payload: raw})
}
