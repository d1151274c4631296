package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"habitat-server/internal/catalog"
	"habitat-server/internal/editor"
	"habitat-server/internal/shared/errors"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubTokens struct{}

func (stubTokens) GenerateJWT(id string) (string, error) { return "token-" + id, nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, cfg Config, opts ...ManagerOption) *Manager {
	t.Helper()
	return newTestManagerWithMetrics(t, cfg, nil, opts...)
}

func newTestManagerWithMetrics(t *testing.T, cfg Config, metrics *Metrics, opts ...ManagerOption) *Manager {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default() failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if cfg.IdleTTL == 0 {
		cfg.IdleTTL = time.Hour
	}
	opts = append([]ManagerOption{WithEditorOptions(editor.WithRand(rand.New(rand.NewPCG(7, 7))))}, opts...)
	return NewManager(ctx, c, editor.DefaultSettings(), cfg, metrics, discardLogger(), opts...)
}

// subscribe attaches a connectionless client so tests can read what the hub sends.
func subscribe(t *testing.T, s *Session) *Client {
	t.Helper()
	c := &Client{hub: s.hub, send: make(chan []byte, sendBuffer)}
	if !s.hub.Register(c, nil) {
		t.Fatal("hub already stopped")
	}
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		if !ok {
			t.Fatal("client channel closed")
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("invalid frame %q: %v", raw, err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
	}
	return Message{}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected frame %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_Lifecycle(t *testing.T) {
	m := newTestManager(t, Config{MaxSessions: 2})

	a, err := m.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err := m.Create(); err != nil {
		t.Fatalf("second Create() failed: %v", err)
	}

	_, err = m.Create()
	if errors.GetType(err) != errors.ErrorTypeUnavailable {
		t.Errorf("Create() beyond limit = %v, want unavailable", err)
	}

	got, err := m.Get(a.ID)
	if err != nil || got != a {
		t.Fatalf("Get(%s) = %v, %v", a.ID, got, err)
	}

	if err := m.Delete(a.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := m.Get(a.ID); errors.GetType(err) != errors.ErrorTypeNotFound {
		t.Errorf("Get() after delete = %v, want not found", err)
	}
	if err := m.Delete(a.ID); errors.GetType(err) != errors.ErrorTypeNotFound {
		t.Errorf("second Delete() = %v, want not found", err)
	}

	select {
	case <-a.hub.Done():
	case <-time.After(2 * time.Second):
		t.Error("hub of a deleted session should stop")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}

func TestManager_ExpireIdle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := newTestManager(t, Config{IdleTTL: 10 * time.Minute}, WithClock(clock.Now))

	idle, _ := m.Create()
	active, _ := m.Create()

	clock.Advance(8 * time.Minute)
	active.View()
	clock.Advance(5 * time.Minute)

	if n := m.Expire(clock.Now()); n != 1 {
		t.Fatalf("Expire() = %d, want 1", n)
	}
	if _, err := m.Get(idle.ID); err == nil {
		t.Error("idle session should be evicted")
	}
	if _, err := m.Get(active.ID); err != nil {
		t.Error("recently used session should survive")
	}
}

func TestSession_BroadcastsMutations(t *testing.T) {
	m := newTestManager(t, Config{})
	s, _ := m.Create()
	a := subscribe(t, s)
	b := subscribe(t, s)

	view, err := s.Update("add_module", func(e *editor.SceneEditor) (bool, error) {
		_, err := e.AddModule("vivienda", "box", 4)
		return true, err
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if len(view.Modules) != 1 {
		t.Fatalf("view has %d modules", len(view.Modules))
	}

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		if msg.Type != MessageView {
			t.Fatalf("frame type = %q, want view", msg.Type)
		}
		var v editor.View
		if err := json.Unmarshal(msg.Payload, &v); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if len(v.Modules) != 1 || v.Effectiveness != 71 {
			t.Errorf("broadcast view = %d modules, %d%%", len(v.Modules), v.Effectiveness)
		}
	}

	if _, err := s.Update("noop", func(e *editor.SceneEditor) (bool, error) { return false, nil }); err != nil {
		t.Fatal(err)
	}
	expectSilence(t, a)
}

func TestSession_ConcurrentUpdatesAreSerialized(t *testing.T) {
	m := newTestManager(t, Config{})
	s, _ := m.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update("add_module", func(e *editor.SceneEditor) (bool, error) {
				_, err := e.AddModule("energia", "dome", 1)
				return false, err
			})
		}()
	}
	wg.Wait()

	seen := make(map[editor.ModuleID]bool)
	for _, mv := range s.View().Modules {
		if seen[mv.ID] {
			t.Fatalf("duplicate module id %d", mv.ID)
		}
		seen[mv.ID] = true
	}
	if len(seen) != 50 {
		t.Errorf("modules = %d, want 50", len(seen))
	}
}

func TestService_HandleMessage(t *testing.T) {
	m := newTestManager(t, Config{})
	svc := NewService(m, stubTokens{}, nil, discardLogger())
	s, _ := m.Create()
	sender := subscribe(t, s)
	other := subscribe(t, s)

	t.Run("add_module broadcasts", func(t *testing.T) {
		svc.HandleMessage(s, sender, []byte(`{"type":"add_module","payload":{"type":"vivienda","shape":"box","occupants":"4"}}`))
		for _, c := range []*Client{sender, other} {
			if msg := receive(t, c); msg.Type != MessageView {
				t.Errorf("frame type = %q, want view", msg.Type)
			}
		}
	})

	t.Run("errors go to the sender only", func(t *testing.T) {
		svc.HandleMessage(s, sender, []byte(`{"type":"add_module","payload":{"type":"reactor","shape":"box"}}`))
		msg := receive(t, sender)
		if msg.Type != MessageError {
			t.Fatalf("frame type = %q, want error", msg.Type)
		}
		var p ErrorPayload
		_ = json.Unmarshal(msg.Payload, &p)
		if p.Error != string(errors.ErrorTypeValidation) {
			t.Errorf("error type = %q", p.Error)
		}
		expectSilence(t, other)
	})

	t.Run("unknown type", func(t *testing.T) {
		svc.HandleMessage(s, sender, []byte(`{"type":"teleport"}`))
		if msg := receive(t, sender); msg.Type != MessageError {
			t.Errorf("frame type = %q, want error", msg.Type)
		}
	})

	t.Run("refresh replies to the sender only", func(t *testing.T) {
		svc.HandleMessage(s, sender, []byte(`{"type":"refresh"}`))
		if msg := receive(t, sender); msg.Type != MessageView {
			t.Errorf("frame type = %q, want view", msg.Type)
		}
		expectSilence(t, other)
	})

	t.Run("input dispatches", func(t *testing.T) {
		svc.HandleMessage(s, sender, []byte(`{"type":"input","payload":{"kind":"wheel","x":0,"y":0,"delta_y":-1}}`))
		msg := receive(t, other)
		var v editor.View
		_ = json.Unmarshal(msg.Payload, &v)
		if v.Camera.Scale <= editor.DefaultSettings().InitialScale {
			t.Errorf("scale = %v, want zoomed in", v.Camera.Scale)
		}
		receive(t, sender)
	})

	t.Run("remove_last", func(t *testing.T) {
		svc.HandleMessage(s, sender, []byte(`{"type":"remove_last"}`))
		msg := receive(t, other)
		var v editor.View
		_ = json.Unmarshal(msg.Payload, &v)
		if len(v.Modules) != 0 {
			t.Errorf("modules = %d, want 0", len(v.Modules))
		}
	})
}

func TestService_Operations(t *testing.T) {
	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	m := newTestManagerWithMetrics(t, Config{}, metrics)
	svc := NewService(m, stubTokens{}, metrics, discardLogger())

	created, err := svc.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	if created.Token != "token-"+created.ID {
		t.Errorf("token = %q", created.Token)
	}
	if created.View.Camera.Scale != 0.2 {
		t.Errorf("initial scale = %v", created.View.Camera.Scale)
	}

	if _, err := svc.AddModule(created.ID, AddModuleRequest{Type: "", Shape: "box"}); errors.GetType(err) != errors.ErrorTypeValidation {
		t.Errorf("AddModule() without type = %v, want validation", err)
	}
	if _, err := svc.AddModule("missing", AddModuleRequest{Type: "vivienda", Shape: "box"}); errors.GetType(err) != errors.ErrorTypeNotFound {
		t.Errorf("AddModule() on unknown session = %v, want not found", err)
	}

	res, err := svc.AddModule(created.ID, AddModuleRequest{Type: "vivienda", Shape: "box", Occupants: 4})
	if err != nil {
		t.Fatalf("AddModule() failed: %v", err)
	}
	center := res.Module.Bounds.Center()

	conn, err := svc.BeginConnection(created.ID, center)
	if err != nil || !conn.Started {
		t.Fatalf("BeginConnection() = %+v, %v", conn, err)
	}
	view, _ := svc.CancelGesture(created.ID)
	if view.Gesture != editor.GestureNone {
		t.Errorf("gesture after cancel = %s", view.Gesture)
	}

	if _, err := svc.Zoom(created.ID, ZoomRequest{Direction: "sideways"}); errors.GetType(err) != errors.ErrorTypeValidation {
		t.Errorf("Zoom() with bad direction = %v, want validation", err)
	}

	eff, err := svc.Effectiveness(created.ID)
	if err != nil || eff.Effectiveness != 71 {
		t.Errorf("Effectiveness() = %+v, %v", eff, err)
	}

	removed, _ := svc.RemoveLast(created.ID)
	if removed.Removed == nil || removed.Removed.ID != res.Module.ID {
		t.Errorf("RemoveLast() = %+v", removed.Removed)
	}
	removed, _ = svc.RemoveLast(created.ID)
	if removed.Removed != nil {
		t.Error("RemoveLast() on empty layout should report nothing removed")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	got := make(map[string]bool)
	for _, mf := range families {
		got[mf.GetName()] = true
		if mf.GetName() == MetricSessionsCreated {
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 1 {
				t.Errorf("sessions created = %v, want 1", v)
			}
		}
	}
	for _, name := range []string{MetricEditorOperations, MetricLayoutEffectiveness, MetricSessionsActive} {
		if !got[name] {
			t.Errorf("%s not recorded", name)
		}
	}
}

func TestOccupants_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Occupants
	}{
		{`4`, 4},
		{`"6"`, 6},
		{`"2.5"`, 2},
		{`3.9`, 3},
		{`"many"`, 1},
		{`0`, 1},
		{`-2`, 1},
		{`null`, 1},
	}

	for _, tt := range tests {
		var req AddModuleRequest
		if err := json.Unmarshal([]byte(`{"occupants":`+tt.in+`}`), &req); err != nil {
			t.Errorf("Unmarshal(%s) failed: %v", tt.in, err)
			continue
		}
		if req.Occupants != tt.want {
			t.Errorf("occupants %s = %d, want %d", tt.in, req.Occupants, tt.want)
		}
	}
}
