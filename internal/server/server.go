// Package server exposes the detection loop over HTTP.
//
// Endpoints:
//
//	POST /api/v1/start    body: {"phrases": [...]} (optional)
//	POST /api/v1/stop
//	GET  /api/v1/status
//	GET  /api/v1/events   server sent events, one "notified" event per notification
//	GET  /api/v1/history  query: limit=N, 404 if history is disabled
//	GET  /metrics         prometheus exposition
//
// Control endpoints answer with {"is_running": bool}, errors are reported as
// application/problem+json.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/CZERTAINLY/Spotter/internal/metrics"
	"github.com/CZERTAINLY/Spotter/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	apiPath         = "/api/v1"
	shutdownTimeout = 5 * time.Second
	maxBodySize     = 1 << 16
)

// Controller drives the detection loop.
type Controller interface {
	Start(phrases []string) model.Status
	Stop() model.Status
	Status() model.Status
}

// Events provides a stream of notifications for every subscriber.
type Events interface {
	Subscribe() (<-chan model.Notification, func())
}

// History returns recently stored notifications.
type History interface {
	Recent(ctx context.Context, limit int) ([]model.Notification, error)
}

type Server struct {
	ctrl    Controller
	events  Events
	history History
}

// NewHandler returns the router. events and history may be nil, the
// respective endpoints then answer 404.
func NewHandler(ctrl Controller, events Events, history History) http.Handler {
	s := &Server{
		ctrl:    ctrl,
		events:  events,
		history: history,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route(apiPath, func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Post("/stop", s.handleStop)
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleEvents)
		r.Get("/history", s.handleHistory)
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}

// New returns a server for handler. WriteTimeout is not set as event streams
// are long lived.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// ListenAndServe serves srv until ctx is canceled, then shuts it down.
// Requests inherit ctx, so open event streams end together with it.
func ListenAndServe(ctx context.Context, srv *http.Server) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	srv.BaseContext = func(net.Listener) context.Context { return ctx }
	slog.InfoContext(ctx, "listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shCtx)
	if serr := <-errCh; !errors.Is(serr, http.ErrServerClosed) {
		err = errors.Join(err, serr)
	}
	return err
}

type startRequest struct {
	Phrases []string `json:"phrases"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&body)
	if err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	for _, p := range body.Phrases {
		if p == "" {
			writeProblem(w, http.StatusBadRequest, "phrases must not be empty strings")
			return
		}
	}
	st := s.ctrl.Start(body.Phrases)
	slog.InfoContext(r.Context(), "start requested", "phrases", body.Phrases, "is_running", st.Running)
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.Stop()
	slog.InfoContext(r.Context(), "stop requested", "is_running", st.Running)
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeProblem(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "limit must be a non negative number")
			return
		}
		limit = n
	}
	recent, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "reading history failed", "err", err)
		writeProblem(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recent == nil {
		recent = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, recent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeProblem(w, http.StatusNotFound, "events are disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ch, unsubscribe := s.events.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	slog.DebugContext(r.Context(), "event stream opened", "remote", r.RemoteAddr)

	for {
		select {
		case <-r.Context().Done():
			slog.DebugContext(r.Context(), "event stream closed", "remote", r.RemoteAddr)
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				slog.ErrorContext(r.Context(), "encoding notification failed", "err", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: notified\ndata: %s\n\n", n.ID, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response failed", "err", err)
	}
}

type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func writeProblem(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(problem{
		Title:  http.StatusText(code),
		Status: code,
		Detail: detail,
	})
}
