// Package server exposes the session manager over HTTP and streams session
// events over a websocket.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/vburojevic/pricewatch/internal/domain"
	"github.com/vburojevic/pricewatch/internal/output"
	"github.com/vburojevic/pricewatch/internal/session"
	"github.com/vburojevic/pricewatch/internal/stream"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxRequestBody = 64 << 10
)

// Controller is the session surface served over HTTP.
type Controller interface {
	Start(req session.StartRequest) (domain.Snapshot, error)
	Stop() bool
	Status() domain.Snapshot
	SetInterval(d time.Duration) error
}

type Server struct {
	ctrl   Controller
	hub    *stream.Hub
	logger *zap.Logger
}

func New(ctrl Controller, hub *stream.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{ctrl: ctrl, hub: hub, logger: logger}
}

// StartRequest is the POST /api/session body.
type StartRequest struct {
	URL             string `json:"url"`
	Recipient       string `json:"recipient"`
	IntervalSeconds int    `json:"interval_seconds,omitempty"`
}

// IntervalRequest is the PUT /api/session/interval body.
type IntervalRequest struct {
	IntervalSeconds int `json:"interval_seconds"`
}

// StopResponse reports whether DELETE /api/session stopped anything.
type StopResponse struct {
	Stopped bool            `json:"stopped"`
	Session domain.Snapshot `json:"session"`
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handleStatus)
		r.Post("/session", s.handleStart)
		r.Delete("/session", s.handleStop)
		r.Put("/session/interval", s.handleInterval)
		r.Get("/events", s.handleEvents)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), "send JSON like {\"url\":\"…\",\"recipient\":\"…\"}")
		return
	}

	interval := session.DefaultInterval
	if body.IntervalSeconds != 0 {
		interval = time.Duration(body.IntervalSeconds) * time.Second
	}
	snap, err := s.ctrl.Start(session.StartRequest{
		Target:    body.URL,
		Recipient: body.Recipient,
		Interval:  interval,
	})
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Code, verr.Message, verr.Hint)
	case errors.Is(err, session.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "ALREADY_RUNNING", err.Error(), "stop the current session first")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "START_FAILED", err.Error())
	default:
		s.logger.Info("session started over http", zap.String("session", snap.SessionID))
		writeJSON(w, http.StatusCreated, snap)
	}
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	stopped := s.ctrl.Stop()
	writeJSON(w, http.StatusOK, StopResponse{Stopped: stopped, Session: s.ctrl.Status()})
}

func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request) {
	var body IntervalRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), "send JSON like {\"interval_seconds\":120}")
		return
	}

	err := s.ctrl.SetInterval(time.Duration(body.IntervalSeconds) * time.Second)
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Code, verr.Message, verr.Hint)
	case errors.Is(err, session.ErrNotRunning):
		writeError(w, http.StatusConflict, "NOT_RUNNING", err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "INTERVAL_FAILED", err.Error())
	default:
		writeJSON(w, http.StatusOK, s.ctrl.Status())
	}
}

// handleEvents replays the current session's history and then streams live
// events until the client goes away or the hub closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(true)
	defer sub.Cancel()
	s.logger.Debug("ws client connected", zap.String("remote", r.RemoteAddr))

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			s.logger.Debug("ws client disconnected", zap.String("remote", r.RemoteAddr))
			return
		case ev, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream closed"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("ws write failed", zap.Error(err))
				return
			}
		}
	}
}

// checkOrigin allows same-host and loopback origins.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	switch host := u.Hostname(); {
	case host == "localhost", host == "127.0.0.1", host == "::1":
		return true
	case strings.HasSuffix(host, ".localhost"):
		return true
	}
	return false
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, hint ...string) {
	out := output.ErrorOutput{
		Type:          "error",
		SchemaVersion: output.SchemaVersion,
		Code:          code,
		Message:       message,
	}
	if len(hint) > 0 {
		out.Hint = hint[0]
	}
	writeJSON(w, status, out)
}
