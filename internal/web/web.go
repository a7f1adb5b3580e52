package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"missiontl/internal/band"
	"missiontl/internal/cache"
	"missiontl/internal/config"
	appLog "missiontl/internal/log"
	"missiontl/internal/refresh"
	"missiontl/internal/timeline"
)

// Refresher reloads the timeline sources. *refresh.Scheduler implements it.
type Refresher interface {
	RunOnce(ctx context.Context) error
	Status() refresh.Status
}

// Options holds the optional collaborators of a Server.
type Options struct {
	// Cache stores rendered pages. Nil disables render caching.
	Cache cache.Cache
	// Refresh backs POST /api/refresh. Nil answers 503.
	Refresh Refresher
}

// Server exposes the timeline over HTTP: the JSON API, the rendered pages
// and the embedded UI.
type Server struct {
	cfg  *config.Config
	tl   *timeline.Timeline
	opts Options
	mux  *http.ServeMux

	index  *template.Template
	bearer *jwt.Parser
}

// embeddedStatic contains the UI page and its assets.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, tl *timeline.Timeline, opts Options) *Server {
	s := &Server{
		cfg:  cfg,
		tl:   tl,
		opts: opts,
		mux:  http.NewServeMux(),
	}
	idx, err := template.ParseFS(embeddedStatic, "static/index.html")
	if err != nil {
		appLog.Error("failed to parse embedded index page", err)
	}
	s.index = idx
	if s.jwtEnabled() {
		s.bearer = newBearerParser(cfg.Auth.JWT.Issuer)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.jwtEnabled() {
		appLog.Info("JWT auth enabled on POST endpoints")
		h = s.jwtMiddleware(h)
	}
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.Auth.Basic == nil {
		return false
	}
	// 빈 사용자명 또는 비밀번호가 설정된 경우에는 비활성화로 취급한다.
	return s.cfg.Auth.Basic.Username != "" && s.cfg.Auth.Basic.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.Auth.Basic.Username
	password := s.cfg.Auth.Basic.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health 는 항상 무인증으로 노출한다.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		// A valid bearer token stands in for basic credentials.
		if s.validBearer(r) {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="missiontl", charset="UTF-8"`)
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

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/timeline", s.handleTimeline)
	s.mux.HandleFunc("POST /api/view", s.handleView)
	s.mux.HandleFunc("POST /api/pointer", s.handlePointer)
	s.mux.HandleFunc("POST /api/bands/{id}/children", s.handleChildren)
	s.mux.HandleFunc("POST /api/bands/{id}/overlays", s.handleOverlays)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /api/refresh", s.handleRefreshStatus)

	s.mux.HandleFunc("GET /render.svg", s.renderHandler("svg", "image/svg+xml", s.tl.RenderSVG))
	s.mux.HandleFunc("GET /render.png", s.renderHandler("png", "image/png", s.tl.RenderPNG))
	s.mux.HandleFunc("GET /render.planes", s.renderHandler("planes", "application/octet-stream", s.writePlanes))

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.Handle("GET /", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleIndex serves the UI page with the current SVG inlined. The page
// root carries data-ready="true" once the SVG is in place.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		return
	}
	svg, err := s.rendered(r.Context(), "svg", s.tl.RenderSVG)
	if err != nil {
		appLog.Error("index render failed", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	width, height := s.tl.Size()
	data := struct {
		SVG           template.HTML
		Width, Height float64
	}{template.HTML(svg), width, height}

	var buf bytes.Buffer
	if err := s.index.Execute(&buf, data); err != nil {
		appLog.Error("index template failed", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// staticFileServer serves the embedded assets under internal/web/static.
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

		// 절대 /api/* 요청은 정적 UI에서 서빙하지 않는다.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
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

// writeErr maps engine errors to status codes.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, band.ErrUnknownBand):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, timeline.ErrInvalidView):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		appLog.Error("request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
