// Package apitest runs an in-memory rooms/boards API for tests and local demos. It speaks
// the same JSON contract as the real service, including archive cascades, forced column
// deletes and promotion confirmation.
package apitest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type Server struct {
	store   *store
	log     *slog.Logger
	now     func() time.Time
	secret  []byte
	handler http.Handler
}

type Option func(*Server)

func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock fixes the time used for invite expiry and session tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

func WithSecret(secret []byte) Option {
	return func(s *Server) {
		if len(secret) > 0 {
			s.secret = secret
		}
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		secret: []byte(uuid.NewString()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = newStore(s.now)
	s.handler = withLogging(s.log, s.routes())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

// AddUser registers an account and returns its public id. displayName may be empty.
func (s *Server) AddUser(name, displayName string) string {
	var dn *string
	if displayName != "" {
		dn = &displayName
	}
	email := name + "@example.com"
	return s.store.addUser(name, dn, &email)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)

		r.Get("/api/rooms", s.handleRooms)
		r.Post("/api/rooms", s.handleCreateRoom)
		r.Post("/api/invites/{code}/accept", s.handleAcceptInvite)

		r.Route("/api/rooms/{roomID}", func(r chi.Router) {
			r.Get("/", s.handleRoom)
			r.Delete("/", s.handleDeleteRoom)
			r.Delete("/membership", s.handleLeaveRoom)
			r.Get("/members", s.handleMembers)
			r.Patch("/members/{memberID}", s.handleUpdateRole)
			r.Get("/invites", s.handleInvites)
			r.Post("/invites", s.handleCreateInvite)
			r.Delete("/invites/{code}", s.handleRevokeInvite)

			r.Get("/boards", s.handleBoards)
			r.Post("/boards", s.handleCreateBoard)
			r.Route("/boards/{boardID}", func(r chi.Router) {
				r.Get("/", s.handleBoard)
				r.Patch("/", s.handleRenameBoard)
				r.Get("/archive", s.handleArchive)
				r.Delete("/archive/columns/{columnID}", s.handleHardDeleteColumn)

				r.Post("/columns", s.handleCreateColumn)
				r.Patch("/columns/reorder", s.handleReorderColumns)
				r.Patch("/columns/{columnID}", s.handleUpdateColumn)
				r.Delete("/columns/{columnID}", s.handleArchiveColumn)
				r.Post("/columns/{columnID}/restore", s.handleRestoreColumn)

				r.Post("/columns/{columnID}/cards", s.handleCreateCard)
				r.Patch("/columns/{columnID}/cards/reorder", s.handleReorderCards)
				r.Patch("/columns/{columnID}/cards/{cardID}", s.handleUpdateCard)
				r.Delete("/columns/{columnID}/cards/{cardID}", s.handleArchiveCard)
				r.Post("/columns/{columnID}/cards/{cardID}/restore", s.handleRestoreCard)
				r.Delete("/columns/{columnID}/cards/{cardID}/hard", s.handleHardDeleteCard)
			})
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{"ok": true, "ts": s.now().UTC().Format(time.RFC3339)})
}

func parseID(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

// writeFail answers with the status carried by err, or 500.
func (s *Server) writeFail(w http.ResponseWriter, op string, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		writeError(w, ae.status, ae.msg)
		return
	}
	s.log.Error(op, "err", err)
	writeError(w, 500, "internal error")
}

func withLogging(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Info("http", "method", r.Method, "path", r.URL.Path, "status", sw.status, "dur_ms", time.Since(start).Milliseconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }
