// Package api provides the HTTP REST API server for sentimentcal.
//
// It serves the stored earnings week, the sentiment batch, the built
// calendar, and the refresh controls, and streams refresh completions over a
// WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phuslu/log"

	"github.com/lukeacampbell/Stock-News-Sentiment/internal/calendar"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/config"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/logging"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/pipeline"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/scheduler"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/store"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/utils"
)

// NewsFetcher fetches fresh articles for one company.
type NewsFetcher interface {
	CompanyNews(ctx context.Context, ticker string, from, to time.Time) []models.NewsArticle
}

// Deps are the collaborators a Server serves from. Store and Runner are
// required; News and Scheduler may be nil.
type Deps struct {
	Store     *store.Store
	Runner    *pipeline.Runner
	News      NewsFetcher
	Scheduler *scheduler.Scheduler
	Names     models.NameMap
	Version   string
}

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	store   *store.Store
	runner  *pipeline.Runner
	news    NewsFetcher
	sched   *scheduler.Scheduler
	names   models.NameMap
	version string
	wsHub   *WSHub
	now     func() time.Time
}

// NewServer creates a configured API server with all routes and middleware.
// Every completed refresh is broadcast to WebSocket clients.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Runner == nil {
		return nil, errors.New("api: store and runner are required")
	}
	if deps.Names == nil {
		deps.Names = models.NameMap{}
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}

	srv := &Server{
		cfg:     cfg,
		store:   deps.Store,
		runner:  deps.Runner,
		news:    deps.News,
		sched:   deps.Scheduler,
		names:   deps.Names,
		version: deps.Version,
		wsHub:   NewWSHub(),
		now:     utils.NowET,
	}
	deps.Runner.OnComplete(srv.broadcastRun)

	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled or
// the process receives SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()
	defer s.wsHub.Stop()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// The WebSocket is long-lived and stays outside the request timeout.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/status", s.handleStatus)
			r.Get("/config", s.handleGetConfig)

			// Stored data
			r.Get("/earnings", s.handleEarnings)
			r.Get("/sentiment", s.handleSentiment)
			r.Get("/names", s.handleNames)
			r.Get("/companies", s.handleCompanies)
			r.Get("/company/{ticker}", s.handleCompany)

			// Calendar
			r.Get("/calendar", s.handleCalendar)
			r.Get("/suggest", s.handleSuggest)

			// Refresh
			r.Post("/update", s.handleUpdate)
			r.Get("/trigger-update", s.handleTriggerUpdate)
		})
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse is the payload of /api/status.
type StatusResponse struct {
	models.Status
	NextUpdate  string `json:"next_update,omitempty"`
	Connections int    `json:"websocket_clients"`
}

// CalendarResponse is the payload of /api/calendar.
type CalendarResponse struct {
	EarningsWeek string             `json:"earnings_week"`
	Query        string             `json:"query,omitempty"`
	Days         []calendar.Slot    `json:"days"`
	Total        int                `json:"total"`
	Rejected     []models.Rejection `json:"rejected,omitempty"`
	Placeholder  bool               `json:"placeholder,omitempty"` // neutral scores, no analysis stored yet
}

// SuggestResponse is the payload of /api/suggest.
type SuggestResponse struct {
	Query      string `json:"query"`
	Suggestion string `json:"suggestion,omitempty"`
	Ghost      string `json:"ghost,omitempty"`
	Found      bool   `json:"found"`
}

// UpdateResponse is returned when a refresh is accepted.
type UpdateResponse struct {
	Message string           `json:"message"`
	RunID   string           `json:"run_id"`
	Options pipeline.Options `json:"options"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, earningsErr := s.store.Earnings(ctx)
	_, sentimentErr := s.store.Sentiment(ctx)

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":    "healthy",
			"version":   s.version,
			"timestamp": s.now().Format(time.RFC3339),
			"services": map[string]bool{
				"scheduler":      s.sched != nil,
				"earnings_data":  earningsErr == nil,
				"sentiment_data": sentimentErr == nil,
			},
		},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:      s.runner.Status(r.Context()),
		Connections: s.wsHub.ClientCount(),
	}
	if s.sched != nil {
		if next, ok := s.sched.NextRun(scheduler.RefreshJobName); ok {
			resp.NextUpdate = next.Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Earnings(r.Context())
	if err != nil {
		s.writeStoreError(w, err, "Earnings data not available. Update may be in progress.")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: doc})
}

// handleSentiment serves the stored batch, or a neutral placeholder derived
// from the earnings week when no analysis has been stored yet.
func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	doc, _, err := s.sentiment(r.Context())
	if err != nil {
		s.writeStoreError(w, err, "Sentiment data not available. Update may be in progress.")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: doc})
}

func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.names})
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Companies(r.Context())
	if err != nil {
		s.writeStoreError(w, err, "Earnings data not available.")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: list})
}

// handleCompany serves one stored company. With ?fetch=true the company's
// news is re-fetched and stored before responding.
func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))
	if !utils.IsValidTicker(ticker) {
		writeError(w, http.StatusBadRequest, "invalid ticker: "+chi.URLParam(r, "ticker"))
		return
	}

	ctx := r.Context()
	company, err := s.store.Company(ctx, ticker)
	if err != nil {
		s.writeStoreError(w, err, fmt.Sprintf("Company %s not found in earnings data", ticker))
		return
	}

	fetched := false
	if fetch, _ := strconv.ParseBool(r.URL.Query().Get("fetch")); fetch && s.news != nil {
		now := s.now()
		articles := s.news.CompanyNews(ctx, ticker, now.AddDate(0, 0, -s.cfg.Sources.NewsDaysBack), now)
		company.Articles = articles
		company.ArticleCount = len(articles)
		if err := s.store.MergeCompanies(ctx, "", map[string]models.EarningsCompany{ticker: *company}); err != nil {
			log.Warn().Err(err).Str("ticker", ticker).Msg("failed to store fetched news")
		}
		fetched = true
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: models.CompanyDetail{
			Ticker:       ticker,
			EarningsDate: company.EarningsDate,
			EarningsDay:  company.EarningsDay,
			ArticleCount: company.ArticleCount,
			Articles:     articlesOrEmpty(company.Articles),
			Fetched:      fetched,
		},
	})
}

// handleCalendar builds the week calendar from the stored earnings and
// sentiment, filtered by ?q= when present.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	earnings, err := s.store.Earnings(ctx)
	if err != nil {
		s.writeStoreError(w, err, "Earnings data not available. Update may be in progress.")
		return
	}
	sent, placeholder, err := s.sentiment(ctx)
	if err != nil {
		s.writeStoreError(w, err, "Sentiment data not available.")
		return
	}

	report := calendar.BuildReport(sent.Results, earnings.DayMap(), s.names)
	query := r.URL.Query().Get("q")
	view := calendar.Filter(report.Calendar, query)

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: CalendarResponse{
			EarningsWeek: earnings.EarningsWeek,
			Query:        query,
			Days:         calendar.Slots(view, calendar.WeekStart(earnings.EarningsWeek), strings.TrimSpace(query) == ""),
			Total:        view.Count(),
			Rejected:     report.Rejected,
			Placeholder:  placeholder,
		},
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")
	resp := SuggestResponse{Query: query}

	earnings, err := s.store.Earnings(ctx)
	if err != nil {
		s.writeStoreError(w, err, "Earnings data not available.")
		return
	}
	sent, _, err := s.sentiment(ctx)
	if err != nil {
		s.writeStoreError(w, err, "Sentiment data not available.")
		return
	}

	companies := calendar.Flatten(calendar.Build(sent.Results, earnings.DayMap(), s.names))
	if suggestion, ok := calendar.Suggest(companies, query); ok {
		resp.Suggestion = suggestion
		resp.Ghost = calendar.GhostText(query, suggestion)
		resp.Found = true
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

// handleUpdate starts a refresh. The optional JSON body overrides the
// configured defaults.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	opts := s.defaultOptions()
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if opts.WeeksAhead < 0 {
		writeError(w, http.StatusBadRequest, "weeks_ahead must not be negative")
		return
	}
	if opts.Ticker != "" {
		opts.Ticker = utils.NormalizeTicker(opts.Ticker)
		if !utils.IsValidTicker(opts.Ticker) {
			writeError(w, http.StatusBadRequest, "invalid ticker: "+opts.Ticker)
			return
		}
	}
	s.trigger(w, opts)
}

func (s *Server) handleTriggerUpdate(w http.ResponseWriter, r *http.Request) {
	s.trigger(w, s.defaultOptions())
}

func (s *Server) trigger(w http.ResponseWriter, opts pipeline.Options) {
	id, err := s.runner.Trigger(opts)
	if errors.Is(err, pipeline.ErrUpdateInProgress) {
		writeError(w, http.StatusConflict, "Update already in progress")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.wsHub.Broadcast(WSMessage{Type: MsgUpdateStarted, Data: map[string]any{"run_id": id, "options": opts}})
	writeJSON(w, http.StatusAccepted, APIResponse{
		Success: true,
		Data:    UpdateResponse{Message: "Update started", RunID: id, Options: opts},
	})
}

// ============================================================
// Helpers
// ============================================================

func (s *Server) defaultOptions() pipeline.Options {
	return pipeline.Options{
		WeeksAhead:   s.cfg.Analysis.WeeksAhead,
		RunSentiment: s.cfg.Analysis.RunSentiment,
	}
}

// sentiment returns the stored batch, falling back to the neutral
// placeholder. The bool reports whether the placeholder was used.
func (s *Server) sentiment(ctx context.Context) (*models.SentimentDocument, bool, error) {
	doc, err := s.store.Sentiment(ctx)
	if err == nil {
		return doc, false, nil
	}
	if !errors.Is(err, store.ErrNoData) {
		return nil, false, err
	}
	doc, err = s.store.NeutralSentiment(ctx)
	return doc, true, err
}

// broadcastRun forwards a finished refresh to WebSocket clients.
func (s *Server) broadcastRun(ev pipeline.Event) {
	msgType := MsgUpdateComplete
	if ev.Error != "" {
		msgType = MsgUpdateFailed
	}
	s.wsHub.Broadcast(WSMessage{Type: msgType, Data: ev})
}

// writeStoreError maps store sentinels to 404 and anything else to 500.
func (s *Server) writeStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNoData) || errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	log.Error().Err(err).Msg("store read failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func articlesOrEmpty(a []models.NewsArticle) []models.NewsArticle {
	if a == nil {
		return []models.NewsArticle{}
	}
	return a
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// ============================================================
// WebSocket Hub
// ============================================================

// WebSocket message types.
const (
	MsgUpdateStarted  = "update_started"
	MsgUpdateComplete = "update_complete"
	MsgUpdateFailed   = "update_failed"
	MsgSubscribed     = "subscribed"
	MsgPong           = "pong"
)

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
	reply      chan clientMessage
	quit       chan struct{}
	stopOnce   sync.Once
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
}

// clientMessage is a message addressed to a single client.
type clientMessage struct {
	client *WSClient
	msg    WSMessage
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		reply:      make(chan clientMessage),
		quit:       make(chan struct{}),
	}
}

// Run starts the hub event loop. It returns after Stop.
func (h *WSHub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case cm := <-h.reply:
			h.mu.Lock()
			if _, ok := h.clients[cm.client]; ok {
				select {
				case cm.client.send <- cm.msg:
				default:
				}
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; disconnect
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop ends the event loop and closes every client.
func (h *WSHub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Reply queues msg for one client. Clients the hub has already dropped get
// nothing.
func (h *WSHub) Reply(client *WSClient, msg WSMessage) {
	select {
	case h.reply <- clientMessage{client: client, msg: msg}:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}
