package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"habitat-server/internal/editor"
	"habitat-server/internal/middleware"
	"habitat-server/internal/session"
	"habitat-server/internal/shared/cookies"
	"habitat-server/internal/shared/errors"
	"habitat-server/internal/shared/response"
)

const maxBodyBytes = 64 << 10

type SessionHandler struct {
	service *session.Service
}

func NewSessionHandler(service *session.Service) *SessionHandler {
	return &SessionHandler{service: service}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.WrapValidation("invalid JSON in request body", err)
	}
	return nil
}

// requestLogger tags handler logs with the request id and, behind session
// auth, the token subject.
func requestLogger(r *http.Request, handler string) *slog.Logger {
	logger := slog.With("handler", handler, "request_id", middleware.GetRequestID(r.Context()))
	if id := r.PathValue("id"); id != "" {
		logger = logger.With("session_id", id)
	}
	if claims := middleware.GetSessionClaims(r); claims != nil {
		logger = logger.With("token_subject", claims.Subject)
	}
	return logger
}

func requireMethod(w http.ResponseWriter, r *http.Request, logger *slog.Logger, method string) bool {
	if r.Method != method {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return false
	}
	return true
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "create_session")

	if !requireMethod(w, r, logger, http.MethodPost) {
		return
	}

	created, err := h.service.CreateSession()
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	cookies.SetSessionCookie(w, created.Token)
	response.Success(w, http.StatusCreated, created)
}

// Session serves GET (current view) and DELETE (tear down) on one session.
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "session")

	switch r.Method {
	case http.MethodGet:
		view, err := h.service.GetView(r.PathValue("id"))
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}
		response.Success(w, http.StatusOK, view)

	case http.MethodDelete:
		if err := h.service.DeleteSession(r.PathValue("id")); err != nil {
			response.Error(w, r, logger, err)
			return
		}
		cookies.ClearSessionCookie(w)
		response.Success(w, http.StatusNoContent, nil)

	default:
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
	}
}

func (h *SessionHandler) AddModule(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "add_module")

	if !requireMethod(w, r, logger, http.MethodPost) {
		return
	}

	var req session.AddModuleRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result, err := h.service.AddModule(r.PathValue("id"), req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	response.Success(w, http.StatusCreated, result)
}

func (h *SessionHandler) RemoveLast(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "remove_last")

	if !requireMethod(w, r, logger, http.MethodDelete) {
		return
	}

	result, err := h.service.RemoveLast(r.PathValue("id"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	response.Success(w, http.StatusOK, result)
}

// pointHandler adapts a world-point operation to a POST {x, y} endpoint.
func (h *SessionHandler) pointHandler(name string, op func(id string, p editor.Vec2) (editor.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(r, name)

		if !requireMethod(w, r, logger, http.MethodPost) {
			return
		}

		var req session.PointRequest
		if err := decode(w, r, &req); err != nil {
			response.Error(w, r, logger, err)
			return
		}

		view, err := op(r.PathValue("id"), req.Vec())
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}
		response.Success(w, http.StatusOK, view)
	}
}

// actionHandler adapts a body-less operation to a POST endpoint.
func (h *SessionHandler) actionHandler(name string, op func(id string) (editor.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(r, name)

		if !requireMethod(w, r, logger, http.MethodPost) {
			return
		}

		view, err := op(r.PathValue("id"))
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}
		response.Success(w, http.StatusOK, view)
	}
}

func (h *SessionHandler) SelectAt() http.HandlerFunc {
	return h.pointHandler("select", h.service.SelectAt)
}

func (h *SessionHandler) DragTo() http.HandlerFunc {
	return h.pointHandler("drag", h.service.DragTo)
}

func (h *SessionHandler) EndDrag() http.HandlerFunc {
	return h.actionHandler("drag_end", h.service.EndDrag)
}

func (h *SessionHandler) UpdateCursor() http.HandlerFunc {
	return h.pointHandler("connection_cursor", h.service.UpdatePendingConnectionCursor)
}

func (h *SessionHandler) CancelGesture() http.HandlerFunc {
	return h.actionHandler("gesture_cancel", h.service.CancelGesture)
}

func (h *SessionHandler) BeginConnection(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "connection_begin")

	if !requireMethod(w, r, logger, http.MethodPost) {
		return
	}

	var req session.PointRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result, err := h.service.BeginConnection(r.PathValue("id"), req.Vec())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	response.Success(w, http.StatusOK, result)
}

func (h *SessionHandler) Pan(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "pan")

	if !requireMethod(w, r, logger, http.MethodPost) {
		return
	}

	var req session.PanRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	view, err := h.service.Pan(r.PathValue("id"), req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	response.Success(w, http.StatusOK, view)
}

func (h *SessionHandler) Zoom(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "zoom")

	if !requireMethod(w, r, logger, http.MethodPost) {
		return
	}

	var req session.ZoomRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	view, err := h.service.Zoom(r.PathValue("id"), req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	response.Success(w, http.StatusOK, view)
}

func (h *SessionHandler) Input(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "input")

	if !requireMethod(w, r, logger, http.MethodPost) {
		return
	}

	var ev editor.PointerEvent
	if err := decode(w, r, &ev); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result, err := h.service.Input(r.PathValue("id"), ev)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	response.Success(w, http.StatusOK, result)
}

func (h *SessionHandler) Effectiveness(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "effectiveness")

	if !requireMethod(w, r, logger, http.MethodGet) {
		return
	}

	result, err := h.service.Effectiveness(r.PathValue("id"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	response.Success(w, http.StatusOK, result)
}
