package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orgcal/internal/clock"
	"orgcal/internal/config"
	"orgcal/internal/expand"
	"orgcal/internal/fullcalendar"
	"orgcal/internal/ics"
	appLog "orgcal/internal/log"
	"orgcal/internal/model"
	"orgcal/internal/scheduler"
)

// Server exposes the current snapshot as a FullCalendar JSON feed and an
// iCalendar feed.
type Server struct {
	cfg       *config.Config
	refresher *scheduler.Refresher
	mux       *http.ServeMux
}

// embeddedStatic contains the calendar page served at /.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, refresher *scheduler.Refresher) *Server {
	s := &Server{
		cfg:       cfg,
		refresher: refresher,
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials leave auth off.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="orgcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func StartServer(ctx context.Context, cfg *config.Config, refresher *scheduler.Refresher) error {
	s := NewServer(cfg, refresher)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/events.ics", s.handleICS)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Everything else is the embedded calendar page.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded files under internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Unknown API paths get a 404, never the HTML page.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// snapshotEvents resolves the mode query parameter and returns the
// matching events of the current snapshot.
func (s *Server) snapshotEvents(w http.ResponseWriter, r *http.Request) ([]model.Event, bool) {
	q := r.URL.Query()
	modeParam := q.Get("mode")
	if modeParam == "" {
		modeParam = s.cfg.Mode
	}
	mode, err := fullcalendar.ParseMode(modeParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	snap := s.refresher.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return nil, false
	}
	return snap.Events(mode), true
}

// handleEvents returns the snapshot as FullCalendar event objects.
//
// GET /api/events?mode=plan|clock|all&start=...&end=...
//   - mode:  traversal, defaults to the configured mode
//   - start, end: when both are given (FullCalendar's feed parameters),
//     recurring events are expanded into concrete occurrences in
//     [start, end]
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, ok := s.snapshotEvents(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	if q.Get("start") != "" || q.Get("end") != "" {
		ref := time.Now()
		start, err := clock.Parse(q.Get("start"), ref)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start: "+err.Error())
			return
		}
		end, err := clock.Parse(q.Get("end"), ref)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end: "+err.Error())
			return
		}
		res, err := expand.Occurrences(events, expand.Config{RangeStart: start, RangeEnd: end})
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		appLog.Debug("api events expanded", "start", start, "end", end, "events", len(res.Events), "truncated", len(res.TruncatedEvents))
		events = res.Events
	}

	var buf bytes.Buffer
	if err := fullcalendar.EncodeJSON(&buf, events); err != nil {
		appLog.Error("failed to encode events", err)
		writeError(w, http.StatusInternalServerError, "failed to encode events")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleICS returns the snapshot as an iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	events, ok := s.snapshotEvents(w, r)
	if !ok {
		return
	}
	body := ics.Export(events, ics.Options{Name: s.cfg.CalendarName})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// handleRefresh rebuilds the snapshot immediately.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.refresher.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snap := s.refresher.Snapshot()
	writeJSON(w, http.StatusOK, refreshResponse{
		Documents: len(snap.Documents),
		BuiltAt:   snap.BuiltAt,
	})
}

type refreshResponse struct {
	Documents int       `json:"documents"`
	BuiltAt   time.Time `json:"built_at"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
