// Package api exposes address book sessions over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addressbook-cli/internal/form"
	"github.com/sells-group/addressbook-cli/internal/lookup"
	"github.com/sells-group/addressbook-cli/internal/model"
	"github.com/sells-group/addressbook-cli/internal/store"
	"github.com/sells-group/addressbook-cli/internal/workflow"
)

// Book is the address book the API commits into and lists from.
type Book interface {
	workflow.AddressBook
	List(ctx context.Context, filter store.ListFilter) ([]model.Entry, error)
}

// Server holds the live sessions and the collaborators they share.
type Server struct {
	client lookup.Client
	book   Book

	mu       sync.RWMutex
	sessions map[string]*workflow.Session
}

// New creates a Server.
func New(client lookup.Client, book Book) *Server {
	return &Server{
		client:   client,
		book:     book,
		sessions: make(map[string]*workflow.Session),
	}
}

// Handler returns the fully configured router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	s.Register(r)
	return r
}

// Register registers the API routes with the chi router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/addresses", s.handleListAddresses)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Patch("/fields", s.handleMergeFields)
			r.Post("/search", s.handleSearch)
			r.Post("/select", s.handleSelect)
			r.Post("/commit", s.handleCommit)
			r.Post("/clear", s.handleClear)
		})
	})
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*workflow.Session, bool) {
	id := chi.URLParam(r, "id")
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
	}
	return sess, ok
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSessionResponse struct {
	ID      string        `json:"id"`
	Session workflow.View `json:"session"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id := uuid.New().String()
	sess := workflow.NewSession(s.client, s.book)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	zap.L().Debug("api: session created", zap.String("session", id))
	writeJSON(w, http.StatusCreated, createSessionResponse{ID: id, Session: sess.View()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMergeFields(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var fields form.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess.MergeFields(fields)
	writeJSON(w, http.StatusOK, sess.View())
}

type searchRequest struct {
	PostCode    *string `json:"postCode"`
	HouseNumber *string `json:"houseNumber"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	inputs := form.Fields{}
	if req.PostCode != nil {
		inputs[workflow.FieldPostcode] = *req.PostCode
	}
	if req.HouseNumber != nil {
		inputs[workflow.FieldHouseNumber] = *req.HouseNumber
	}
	if len(inputs) > 0 {
		sess.MergeFields(inputs)
	}

	if err := sess.Search(r.Context()); err != nil {
		if errors.Is(err, workflow.ErrSuperseded) {
			writeError(w, http.StatusConflict, "search superseded by a newer request")
			return
		}
		zap.L().Info("api: search failed",
			zap.String("session", chi.URLParam(r, "id")),
			zap.Error(err),
		)
	}
	writeJSON(w, http.StatusOK, sess.View())
}

type selectRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess.Select(req.ID)
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	entry, err := sess.Commit(r.Context())
	if err != nil {
		var storeErr *workflow.StoreError
		if errors.As(err, &storeErr) {
			zap.L().Error("api: commit failed",
				zap.String("session", chi.URLParam(r, "id")),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, workflow.Message(err))
			return
		}
		writeError(w, http.StatusUnprocessableEntity, workflow.Message(err))
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.ClearAll()
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListFilter{Postcode: q.Get("postcode")}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	entries, err := s.book.List(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list addresses", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list addresses")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, eris.Wrapf(err, "api: parse integer %q", v)
	}
	if n < 0 {
		return 0, eris.Errorf("api: negative integer %d", n)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
