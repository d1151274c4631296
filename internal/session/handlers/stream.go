package handlers

import (
	"net/http"
	"net/url"

	"habitat-server/internal/session"
	"habitat-server/internal/shared/errors"
	"habitat-server/internal/shared/response"

	"github.com/gorilla/websocket"
)

type StreamHandler struct {
	service  *session.Service
	upgrader websocket.Upgrader
}

// NewStreamHandler accepts websocket upgrades from allowedOrigin, or from
// any origin when allowedOrigin is empty.
func NewStreamHandler(service *session.Service, allowedOrigin string) *StreamHandler {
	return &StreamHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigin),
		},
	}
}

func originChecker(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowed == "" || origin == "" {
			return true
		}
		want, err := url.Parse(allowed)
		if err != nil {
			return false
		}
		got, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return got.Scheme == want.Scheme && got.Host == want.Host
	}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	logger := requestLogger(r, "session_stream")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	sess, err := h.service.Manager().Get(id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	initial, err := session.EncodeMessage(session.MessageView, sess.View())
	if err != nil {
		response.Error(w, r, logger, errors.WrapInternal("failed to encode view", err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.Debug("Websocket upgrade failed", "error", err)
		return
	}

	logger.Debug("Websocket connected", "remote_addr", r.RemoteAddr)
	client := session.NewClient(sess.Hub(), conn, func(c *session.Client, data []byte) {
		h.service.HandleMessage(sess, c, data)
	})
	client.Serve(initial)
	logger.Debug("Websocket disconnected")
}
