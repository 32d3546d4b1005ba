// Package web exposes the deck service as a JSON HTTP API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/conorfennell/recall/internal/sync"
	"github.com/google/uuid"
)

// SourceStore is the storage the source routes and sync need.
type SourceStore interface {
	sync.Store
	DeleteSource(ctx context.Context, id int64) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	deck     *deck.Service
	sources  SourceStore
	reposDir string
	log      *slog.Logger
	router   *http.ServeMux
}

// NewServer creates and configures a new server.
func NewServer(svc *deck.Service, sources SourceStore, reposDir string, log *slog.Logger) *Server {
	s := &Server{
		deck:     svc,
		sources:  sources,
		reposDir: reposDir,
		log:      log,
		router:   http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /cards", s.handleListCards())
	s.router.HandleFunc("POST /cards", s.handleAddCard())
	s.router.HandleFunc("GET /cards/{id}", s.handleGetCard())
	s.router.HandleFunc("PUT /cards/{id}", s.handleUpdateCard())
	s.router.HandleFunc("DELETE /cards/{id}", s.handleDeleteCard())
	s.router.HandleFunc("POST /cards/{id}/answer", s.handleAnswer())

	s.router.HandleFunc("GET /queue", s.handleQueue())
	s.router.HandleFunc("GET /stats", s.handleStats())
	s.router.HandleFunc("GET /dashboard", s.handleDashboard())

	// Source management routes
	s.router.HandleFunc("GET /sources", s.handleGetSources())
	s.router.HandleFunc("POST /sources", s.handlePostSource())
	s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /sync", s.handlePostSync())
}

// cardView is a card with its current due status.
type cardView struct {
	domain.Card
	Status domain.DueStatus `json:"status"`
}

func (s *Server) handleListCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cards, err := s.deck.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if cards == nil {
			cards = []domain.Card{}
		}
		s.respond(w, http.StatusOK, cards)
	}
}

func (s *Server) handleAddCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in deck.CardInput
		if !s.decode(w, r, &in) {
			return
		}
		card, err := s.deck.AddCard(r.Context(), in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusCreated, card)
	}
}

func (s *Server) handleGetCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.cardID(w, r)
		if !ok {
			return
		}
		card, status, err := s.deck.CardStatus(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, cardView{Card: card, Status: status})
	}
}

func (s *Server) handleUpdateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.cardID(w, r)
		if !ok {
			return
		}
		var in deck.CardInput
		if !s.decode(w, r, &in) {
			return
		}
		card, err := s.deck.UpdateCard(r.Context(), id, in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, card)
	}
}

func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.cardID(w, r)
		if !ok {
			return
		}
		if err := s.deck.DeleteCard(r.Context(), id); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type answerRequest struct {
	Difficulty domain.Difficulty `json:"difficulty"`
}

// handleAnswer records a review and returns the rescheduled card.
func (s *Server) handleAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.cardID(w, r)
		if !ok {
			return
		}
		var req answerRequest
		if !s.decode(w, r, &req) {
			return
		}
		res, err := s.deck.RecordAnswer(r.Context(), id, req.Difficulty)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, res)
	}
}

func (s *Server) handleQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queue, err := s.deck.Queue(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, queue)
	}
}

func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.deck.Stats(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, st)
	}
}

func (s *Server) handleDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := s.deck.Dashboard(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, d)
	}
}

// handleGetSources lists the registered sources.
func (s *Server) handleGetSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.sources.GetAllSources(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if sources == nil {
			sources = []storage.Source{}
		}
		s.respond(w, http.StatusOK, sources)
	}
}

// handlePostSource adds a new source.
func (s *Server) handlePostSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		if !s.decode(w, r, &req) {
			return
		}
		src, err := sync.AddSource(r.Context(), s.log, s.sources, req.Path)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusCreated, src)
	}
}

// handleDeleteSource deletes a source; its cards are kept.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}
		if err := s.sources.DeleteSource(r.Context(), id); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type syncResponse struct {
	sync.Report
	Errors []string `json:"errors"`
}

// handlePostSync runs a sync in the foreground and reports what changed.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := sync.Run(r.Context(), s.log, s.sources, s.reposDir, s.deck.Now())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		resp := syncResponse{Report: report, Errors: []string{}}
		for _, e := range report.Errors {
			resp.Errors = append(resp.Errors, e.Error())
		}
		s.respond(w, http.StatusOK, resp)
	}
}

func (s *Server) cardID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid card ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Error encoding response", "error", err)
	}
}

// fail maps domain errors to client errors and logs everything else.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidDifficulty):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
