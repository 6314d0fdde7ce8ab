// Package server exposes growth sessions over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/soypat/growform/bud"
	"github.com/soypat/growform/render"
	"github.com/soypat/growform/script"
	"github.com/soypat/growform/session"
)

const (
	maxScriptSize = 1 << 20
	defaultGrow   = 100
	maxGrow       = 100_000
)

// Server holds the live sessions.
type Server struct {
	opts        session.Options
	smooth      int
	previewSize int
	log         *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// New returns a server that starts sessions with opts and renders snapshots
// after smooth rounds of smoothing.
func New(opts session.Options, smooth, previewSize int, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		opts:        opts,
		smooth:      smooth,
		previewSize: previewSize,
		log:         log,
		sessions:    make(map[string]*session.Session),
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recovery)
	r.Use(s.logger)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	r.HandleFunc("/sessions", s.create).Methods("POST")
	r.HandleFunc("/sessions/{id}", s.stats).Methods("GET")
	r.HandleFunc("/sessions/{id}", s.delete).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/grow", s.grow).Methods("POST")
	r.HandleFunc("/sessions/{id}/exec", s.exec).Methods("POST")
	r.HandleFunc("/sessions/{id}/mesh", s.mesh).Methods("GET")
	r.HandleFunc("/sessions/{id}/mesh.stl", s.stl).Methods("GET")
	r.HandleFunc("/sessions/{id}/preview.png", s.preview).Methods("GET")
	r.HandleFunc("/sessions/{id}/watch", s.watch)
	return r
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	id := mux.Vars(r)["id"]
	s.mu.RLock()
	sess := s.sessions[id]
	s.mu.RUnlock()
	if sess == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	return sess
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	src, err := io.ReadAll(io.LimitReader(r.Body, maxScriptSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	sess, err := session.New(string(src), s.opts, s.log)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, sess.Stats())
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	if sess := s.session(w, r); sess != nil {
		writeJSON(w, http.StatusOK, sess.Stats())
	}
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) grow(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	n := defaultGrow
	if q := r.URL.Query().Get("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 0 || v > maxGrow {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be an integer in 0..100000"})
			return
		}
		n = v
	}
	acted, err := sess.Run(r.Context(), n)
	if err != nil {
		s.log.Info("grow interrupted", "session", sess.ID(), "acted", acted, "error", err)
	}
	writeJSON(w, http.StatusOK, sess.Stats())
}

type execRequest struct {
	Cohort string `json:"cohort"`
	Index  int    `json:"index"`
	Line   string `json:"line"`
}

func (s *Server) exec(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req execRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := sess.Exec(req.Cohort, req.Index, req.Line); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, bud.ErrNoBud) || errors.Is(err, script.ErrUnknownCohort) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sess.Stats())
}

func (s *Server) mesh(w http.ResponseWriter, r *http.Request) {
	if sess := s.session(w, r); sess != nil {
		writeJSON(w, http.StatusOK, sess.Snapshot(s.smooth))
	}
}

func (s *Server) stl(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	model, err := render.RenderAll(render.NewMeshRenderer(sess.Snapshot(s.smooth)))
	if err != nil {
		s.log.Error("render mesh failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	w.Header().Set("Content-Type", "model/stl")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sess.ID()+`.stl"`)
	if err := render.WriteSTL(w, model); err != nil {
		s.log.Debug("write stl", "error", err)
	}
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	size := s.previewSize
	if q := r.URL.Query().Get("size"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v <= 0 || v > 4096 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "size must be an integer in 1..4096"})
			return
		}
		size = v
	}
	img, err := render.Preview(sess.Snapshot(s.smooth), size, render.DefaultView)
	if err != nil {
		s.log.Error("render preview failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		s.log.Debug("write png", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.log.Error("panic serving request", "path", r.URL.Path, "panic", v)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}
