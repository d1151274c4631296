package session

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"habitat-server/internal/editor"
	"habitat-server/internal/shared/errors"
)

type TokenIssuer interface {
	GenerateJWT(sessionID string) (string, error)
}

type Service struct {
	manager *Manager
	tokens  TokenIssuer
	metrics *Metrics
	logger  *slog.Logger
}

func NewService(manager *Manager, tokens TokenIssuer, metrics *Metrics, logger *slog.Logger) *Service {
	return &Service{
		manager: manager,
		tokens:  tokens,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *Service) Manager() *Manager { return s.manager }

func (s *Service) CreateSession() (*CreateResult, error) {
	logger := s.logger.With("component", "session_service", "operation", "create_session")

	sess, err := s.manager.Create()
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateJWT(sess.ID)
	if err != nil {
		logger.Error("Failed to issue session token", "session_id", sess.ID, "error", err)
		_ = s.manager.Delete(sess.ID)
		return nil, errors.WrapInternal("failed to issue session token", err)
	}

	return &CreateResult{ID: sess.ID, Token: token, View: sess.View()}, nil
}

func (s *Service) DeleteSession(id string) error {
	return s.manager.Delete(id)
}

func (s *Service) GetView(id string) (editor.View, error) {
	sess, err := s.manager.Get(id)
	if err != nil {
		return editor.View{}, err
	}
	return sess.View(), nil
}

func (s *Service) update(id, op string, fn func(e *editor.SceneEditor) (bool, error)) (editor.View, error) {
	sess, err := s.manager.Get(id)
	if err != nil {
		return editor.View{}, err
	}
	return sess.Update(op, fn)
}

func (s *Service) AddModule(id string, req AddModuleRequest) (*ModuleResult, error) {
	sess, err := s.manager.Get(id)
	if err != nil {
		return nil, err
	}
	return s.addModule(sess, req)
}

func (s *Service) addModule(sess *Session, req AddModuleRequest) (*ModuleResult, error) {
	var added editor.PlacedModule
	view, err := sess.Update("add_module", func(e *editor.SceneEditor) (bool, error) {
		m, err := e.AddModule(req.Type, req.Shape, int(req.Occupants))
		if err != nil {
			return false, err
		}
		added = m
		return true, nil
	})
	if err != nil {
		if stderrors.Is(err, editor.ErrInvalidInput) {
			return nil, errors.WrapValidation("cannot add module", err)
		}
		return nil, errors.WrapInternal("failed to add module", err)
	}

	sess.logger.Debug("Module added", "module_id", added.ID, "type", added.Type, "shape", added.Shape)
	return &ModuleResult{Module: added, View: view}, nil
}

func (s *Service) RemoveLast(id string) (*RemoveResult, error) {
	sess, err := s.manager.Get(id)
	if err != nil {
		return nil, err
	}
	return s.removeLast(sess)
}

func (s *Service) removeLast(sess *Session) (*RemoveResult, error) {
	var removed *editor.PlacedModule
	view, err := sess.Update("remove_last", func(e *editor.SceneEditor) (bool, error) {
		m, ok := e.RemoveLast()
		if ok {
			removed = &m
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}
	return &RemoveResult{Removed: removed, View: view}, nil
}

func (s *Service) SelectAt(id string, p editor.Vec2) (editor.View, error) {
	return s.update(id, "select", func(e *editor.SceneEditor) (bool, error) {
		e.SelectAt(p)
		return true, nil
	})
}

func (s *Service) DragTo(id string, p editor.Vec2) (editor.View, error) {
	return s.update(id, "drag", func(e *editor.SceneEditor) (bool, error) {
		dragging := e.Gesture() == editor.GestureDrag
		e.DragTo(p)
		return dragging, nil
	})
}

func (s *Service) EndDrag(id string) (editor.View, error) {
	return s.update(id, "drag_end", func(e *editor.SceneEditor) (bool, error) {
		before := e.Gesture()
		e.EndDrag()
		return before != e.Gesture(), nil
	})
}

func (s *Service) BeginConnection(id string, p editor.Vec2) (*ConnectionResult, error) {
	var started bool
	view, err := s.update(id, "connection_begin", func(e *editor.SceneEditor) (bool, error) {
		started = e.BeginConnection(p)
		return started, nil
	})
	if err != nil {
		return nil, err
	}
	return &ConnectionResult{Started: started, View: view}, nil
}

func (s *Service) UpdatePendingConnectionCursor(id string, p editor.Vec2) (editor.View, error) {
	return s.update(id, "connection_cursor", func(e *editor.SceneEditor) (bool, error) {
		pending := e.Gesture() == editor.GestureConnection
		e.UpdatePendingConnectionCursor(p)
		return pending, nil
	})
}

func (s *Service) CancelGesture(id string) (editor.View, error) {
	return s.update(id, "gesture_cancel", func(e *editor.SceneEditor) (bool, error) {
		active := e.Gesture() != editor.GestureNone
		e.CancelGesture()
		return active, nil
	})
}

func (s *Service) Pan(id string, req PanRequest) (editor.View, error) {
	return s.update(id, "pan", func(e *editor.SceneEditor) (bool, error) {
		e.Pan(editor.Vec2{X: req.DX, Y: req.DY})
		return true, nil
	})
}

func (s *Service) Zoom(id string, req ZoomRequest) (editor.View, error) {
	if req.Direction != editor.ZoomIn && req.Direction != editor.ZoomOut {
		return editor.View{}, errors.Validationf("zoom direction must be %q or %q", editor.ZoomIn, editor.ZoomOut)
	}
	return s.update(id, "zoom", func(e *editor.SceneEditor) (bool, error) {
		e.Zoom(editor.Vec2{X: req.X, Y: req.Y}, req.Direction)
		return true, nil
	})
}

func (s *Service) Input(id string, ev editor.PointerEvent) (*InputResult, error) {
	sess, err := s.manager.Get(id)
	if err != nil {
		return nil, err
	}
	return s.input(sess, ev)
}

func (s *Service) input(sess *Session, ev editor.PointerEvent) (*InputResult, error) {
	var changed bool
	view, err := sess.Update("input", func(e *editor.SceneEditor) (bool, error) {
		changed = e.Dispatch(ev)
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	return &InputResult{Changed: changed, View: view}, nil
}

func (s *Service) Effectiveness(id string) (*EffectivenessResult, error) {
	sess, err := s.manager.Get(id)
	if err != nil {
		return nil, err
	}

	var balance editor.Balance
	sess.Read(func(e *editor.SceneEditor) { balance = e.Balance() })
	s.metrics.ObserveEffectiveness(balance.Percent)

	return &EffectivenessResult{Effectiveness: balance.Percent, Balance: balance}, nil
}

// HandleMessage applies one inbound websocket frame. Mutations reach every
// subscriber through the session broadcast; errors and refreshes go back to
// the sender only.
func (s *Service) HandleMessage(sess *Session, c *Client, data []byte) {
	if err := s.handleMessage(sess, c, data); err != nil {
		sess.logger.Debug("Rejected websocket message", "error", err)
		msg, encErr := EncodeMessage(MessageError, ErrorPayload{
			Error:   string(errors.GetType(err)),
			Message: err.Error(),
		})
		if encErr != nil {
			sess.logger.Error("Failed to encode error message", "error", encErr)
			return
		}
		c.Reply(msg)
	}
}

func (s *Service) handleMessage(sess *Session, c *Client, data []byte) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return errors.WrapValidation("invalid message", err)
	}

	switch msg.Type {
	case MessageInput:
		var ev editor.PointerEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return errors.WrapValidation("invalid input payload", err)
		}
		_, err := s.input(sess, ev)
		return err

	case MessageAddModule:
		var req AddModuleRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return errors.WrapValidation("invalid add_module payload", err)
		}
		_, err := s.addModule(sess, req)
		return err

	case MessageRemoveLast:
		_, err := s.removeLast(sess)
		return err

	case MessageRefresh:
		reply, err := EncodeMessage(MessageView, sess.View())
		if err != nil {
			return errors.WrapInternal("failed to encode view", err)
		}
		c.Reply(reply)
		return nil

	default:
		return errors.Validationf("unknown message type %q", msg.Type)
	}
}
