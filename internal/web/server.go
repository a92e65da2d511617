package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/CI5co22/MindSprout/internal/bundle"
	"github.com/CI5co22/MindSprout/internal/domain"
	"github.com/CI5co22/MindSprout/internal/session"
	"github.com/CI5co22/MindSprout/internal/srs"
	"github.com/CI5co22/MindSprout/internal/stats"
	"github.com/CI5co22/MindSprout/internal/storage"
	syncsrc "github.com/CI5co22/MindSprout/internal/sync"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Server holds the dependencies for the HTTP server. Review sessions are
// single-user: one active session lives in the server, guarded by a mutex
// because HTTP handlers run concurrently.
type Server struct {
	db        *storage.DB
	router    *http.ServeMux
	templates *template.Template
	reposDir  string

	mu      sync.Mutex
	active  *session.Session
	deck    *domain.Deck
	shownAt time.Time
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, reposDir string) (*Server, error) {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		db:        db,
		router:    http.NewServeMux(),
		templates: tpl,
		reposDir:  reposDir,
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		slog.Error("failed to create sub-filesystem for static assets", "error", err)
	} else {
		s.router.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	s.router.HandleFunc("/", s.handleIndex())

	// HTMX fragments
	s.router.HandleFunc("/decks", s.handleDecks())
	s.router.HandleFunc("/decks/", s.handleDeckByID())
	s.router.HandleFunc("/cards", s.handleCreateCard())
	s.router.HandleFunc("/session/start", s.handleStartSession())
	s.router.HandleFunc("/session/next", s.handleNextCard())
	s.router.HandleFunc("/session/reveal", s.handleReveal())
	s.router.HandleFunc("/session/grade", s.handleGrade())
	s.router.HandleFunc("/stats", s.handleStats())

	// Deck transfer
	s.router.HandleFunc("/export/", s.handleExport())
	s.router.HandleFunc("/import", s.handleImport())

	// Source management
	s.router.HandleFunc("/sources", s.handleSources())
	s.router.HandleFunc("/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/sync", s.handlePostSync())
}

func (s *Server) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		s.render(w, "index", nil)
	}
}

// deckView is a deck plus the counts the overview displays.
type deckView struct {
	Deck domain.Deck
	Due  int
	New  int
}

func (s *Server) handleDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.renderDeckList(w)
		case http.MethodPost:
			s.createDeck(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) renderDeckList(w http.ResponseWriter) {
	decks, err := s.db.GetAllDecks()
	if err != nil {
		s.internalError(w, "failed to list decks", err)
		return
	}
	now := time.Now()

	views := make([]deckView, 0, len(decks))
	for _, d := range decks {
		cards, err := s.db.GetCardsByDeckID(d.ID)
		if err != nil {
			s.internalError(w, "failed to load deck cards", err)
			return
		}
		v := deckView{Deck: d}
		for _, c := range cards {
			if c.New() {
				v.New++
			} else if c.Due(now) {
				v.Due++
			}
		}
		views = append(views, v)
	}
	s.render(w, "deck_list", map[string]any{"Decks": views})
}

func (s *Server) createDeck(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PostFormValue("name"))
	if name == "" {
		http.Error(w, "Deck name cannot be empty", http.StatusBadRequest)
		return
	}
	color := r.PostFormValue("color")
	if color == "" {
		color = syncsrc.DefaultDeckColor
	}

	deck := domain.NewDeck(name, color, time.Now())
	if strategy := domain.Strategy(r.PostFormValue("strategy")); strategy != "" {
		if err := strategy.Validate(); err != nil {
			http.Error(w, "Unknown strategy", http.StatusBadRequest)
			return
		}
		deck.Settings.Strategy = strategy
	}

	if err := s.db.InsertDeck(deck); err != nil {
		s.internalError(w, "failed to create deck", err)
		return
	}
	s.renderDeckList(w)
}

func (s *Server) handleDeckByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/decks/")

		switch r.Method {
		case http.MethodDelete:
			if err := s.db.DeleteDeck(id); err != nil {
				s.internalError(w, "failed to delete deck", err)
				return
			}
			s.renderDeckList(w)
		case http.MethodPost:
			s.updateDeckSettings(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// updateDeckSettings changes a deck's session limit and strategy. Existing
// cards keep their scheduling state; the new strategy only affects future
// gradings.
func (s *Server) updateDeckSettings(w http.ResponseWriter, r *http.Request, id string) {
	deck, err := s.db.FindDeckByID(id)
	if err != nil {
		s.internalError(w, "failed to look up deck", err)
		return
	}
	if deck == nil {
		http.Error(w, "Deck not found", http.StatusNotFound)
		return
	}

	if limitStr := r.PostFormValue("session_limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			http.Error(w, "Session limit must be a positive number", http.StatusBadRequest)
			return
		}
		deck.Settings.SessionLimit = limit
	}
	if strategy := domain.Strategy(r.PostFormValue("strategy")); strategy != "" {
		if err := strategy.Validate(); err != nil {
			http.Error(w, "Unknown strategy", http.StatusBadRequest)
			return
		}
		deck.Settings.Strategy = strategy
	}

	if err := s.db.UpdateDeck(*deck); err != nil {
		s.internalError(w, "failed to update deck", err)
		return
	}
	s.renderDeckList(w)
}

func (s *Server) handleCreateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		deckID := r.PostFormValue("deck")
		front := strings.TrimSpace(r.PostFormValue("front"))
		if deckID == "" || front == "" {
			http.Error(w, "Deck and question are required", http.StatusBadRequest)
			return
		}
		deck, err := s.db.FindDeckByID(deckID)
		if err != nil {
			s.internalError(w, "failed to look up deck", err)
			return
		}
		if deck == nil {
			http.Error(w, "Deck not found", http.StatusNotFound)
			return
		}

		now := time.Now()
		var card domain.Card
		if r.PostFormValue("type") == string(domain.CardTypeCloze) {
			card, err = domain.NewClozeCard(deckID, front, now)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		} else {
			card = domain.NewCard(deckID, front, r.PostFormValue("back"), now)
		}

		if err := s.db.InsertCard(card, ""); err != nil {
			s.internalError(w, "failed to insert card", err)
			return
		}
		s.renderDeckList(w)
	}
}

func (s *Server) handleStartSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		deckID := r.PostFormValue("deck")
		deck, err := s.db.FindDeckByID(deckID)
		if err != nil {
			s.internalError(w, "failed to look up deck", err)
			return
		}
		if deck == nil {
			http.Error(w, "Deck not found", http.StatusNotFound)
			return
		}

		cards, err := s.db.GetCardsByDeckID(deckID)
		if err != nil {
			s.internalError(w, "failed to load deck cards", err)
			return
		}

		settings := deck.Settings.Normalized()
		planned := session.Plan(cards, settings.SessionLimit, time.Now())

		s.mu.Lock()
		s.active = session.Start(planned)
		s.deck = deck
		s.mu.Unlock()

		s.renderCurrentCard(w)
	}
}

func (s *Server) handleNextCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderCurrentCard(w)
	}
}

// renderCurrentCard shows the front of the card at the head of the session
// queue, stamping the presentation time for the answer-duration measurement.
func (s *Server) renderCurrentCard(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		s.render(w, "session_done", map[string]any{"Done": 0, "Total": 0})
		return
	}
	card, ok := s.active.Current()
	if !ok {
		done, total := s.active.Progress()
		s.render(w, "session_done", map[string]any{"Done": done, "Total": total})
		return
	}

	s.shownAt = time.Now()
	done, total := s.active.Progress()
	s.render(w, "card_front", map[string]any{
		"Card":  card,
		"Done":  done,
		"Total": total,
	})
}

func (s *Server) handleReveal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.active == nil {
			http.Error(w, "No active session", http.StatusConflict)
			return
		}
		card, ok := s.active.Current()
		if !ok {
			http.Error(w, "Session is finished", http.StatusConflict)
			return
		}

		s.render(w, "card_back", map[string]any{
			"Card":   card,
			"Answer": card.AnswerText(),
		})
	}
}

func (s *Server) handleGrade() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		difficulty := domain.Difficulty(r.PostFormValue("difficulty"))

		s.mu.Lock()
		if s.active == nil || s.deck == nil {
			s.mu.Unlock()
			http.Error(w, "No active session", http.StatusConflict)
			return
		}
		card, ok := s.active.Current()
		if !ok {
			s.mu.Unlock()
			http.Error(w, "Session is finished", http.StatusConflict)
			return
		}
		strategy := s.deck.Settings.Normalized().Strategy
		shownAt := s.shownAt
		s.mu.Unlock()

		now := time.Now()
		var duration time.Duration
		if !shownAt.IsZero() {
			duration = now.Sub(shownAt)
		}

		scheduled, err := srs.Schedule(card, difficulty, strategy, duration, now)
		if err != nil {
			http.Error(w, "Invalid grade", http.StatusBadRequest)
			return
		}

		// Persist before advancing: if the write fails the card stays at
		// the front of the queue rather than being presented as done.
		if err := s.db.SaveReview(scheduled); err != nil {
			s.internalError(w, "failed to save review", err)
			return
		}

		s.mu.Lock()
		s.active.Advance()
		s.mu.Unlock()

		s.renderCurrentCard(w)
	}
}

func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cards, err := s.db.GetAllCards()
		if err != nil {
			s.internalError(w, "failed to load cards", err)
			return
		}
		decks, err := s.db.GetAllDecks()
		if err != nil {
			s.internalError(w, "failed to load decks", err)
			return
		}

		report := stats.Compute(cards, decks, time.Now())
		s.render(w, "stats", map[string]any{"Report": report})
	}
}

func (s *Server) handleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID := strings.TrimPrefix(r.URL.Path, "/export/")
		deck, err := s.db.FindDeckByID(deckID)
		if err != nil {
			s.internalError(w, "failed to look up deck", err)
			return
		}
		if deck == nil {
			http.NotFound(w, r)
			return
		}

		cards, err := s.db.GetCardsByDeckID(deckID)
		if err != nil {
			s.internalError(w, "failed to load deck cards", err)
			return
		}

		data, err := bundle.Export(*deck, cards)
		if err != nil {
			s.internalError(w, "failed to export deck", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", deck.Name+".json"))
		_, _ = w.Write(data)
	}
}

func (s *Server) handleImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		file, _, err := r.FormFile("bundle")
		if err != nil {
			http.Error(w, "Missing bundle file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			s.internalError(w, "failed to read bundle", err)
			return
		}

		deck, cards, err := bundle.Import(data, time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := s.db.InsertDeck(deck); err != nil {
			s.internalError(w, "failed to store imported deck", err)
			return
		}
		for _, c := range cards {
			if err := s.db.InsertCard(c, ""); err != nil {
				s.internalError(w, "failed to store imported card", err)
				return
			}
		}
		s.renderDeckList(w)
	}
}

// handleSources handles both GET and POST for the sources page.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.renderSourceList(w)
		case http.MethodPost:
			path := strings.TrimSpace(r.PostFormValue("path"))
			if path == "" {
				http.Error(w, "Path cannot be empty", http.StatusBadRequest)
				return
			}
			if _, err := syncsrc.AddSource(s.db, path, time.Now()); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.renderSourceList(w)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) renderSourceList(w http.ResponseWriter) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		s.internalError(w, "failed to list sources", err)
		return
	}
	s.render(w, "source_list", map[string]any{"Sources": sources})
}

func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/sources/")
		var id int64
		if _, err := fmt.Sscanf(idStr, "%d", &id); err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}

		if err := s.db.DeleteSource(id); err != nil {
			s.internalError(w, "failed to delete source", err)
			return
		}
		s.renderSourceList(w)
	}
}

// handlePostSync triggers a manual sync and re-renders the source list.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Run in the foreground so the source list reflects the result.
		if err := syncsrc.RunSync(r.Context(), s.db, s.reposDir, time.Now()); err != nil {
			s.internalError(w, "sync failed", err)
			return
		}
		s.renderSourceList(w)
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
