package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	dispatchDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/dispatch/domain"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	feedService "github.com/reshetovitsme/insta-autoreply/internal/modules/feed/service"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/config"
	appErrors "github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/metrics"
	sloghttp "github.com/samber/slog-http"
)

// Dispatcher handles one normalized inbound event
type Dispatcher interface {
	Dispatch(ctx context.Context, ev eventDomain.Event) dispatchDomain.Outcome
}

// Server exposes the Instagram webhook, transcript feeds, health and metrics
type Server struct {
	cfg         *config.Config
	dispatcher  Dispatcher
	feedService *feedService.Service
	logger      *slog.Logger

	mu     sync.Mutex
	server *http.Server
}

// New creates a new HTTP server
func New(cfg *config.Config, dispatcher Dispatcher, feedService *feedService.Service) *Server {
	return &Server{
		cfg:         cfg,
		dispatcher:  dispatcher,
		feedService: feedService,
		logger:      slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Handler returns the routed handler with logging, recovery and metrics middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Instagram webhook: verification handshake and event delivery
	mux.HandleFunc("GET /webhooks/instagram", s.handleVerify)
	mux.HandleFunc("POST /webhooks/instagram", s.handleWebhook)

	// Transcript feed per automation
	mux.HandleFunc("GET /feed/{automationID}", s.handleFeed)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := metrics.Middleware(mux)
	handler = sloghttp.Recovery(handler)
	handler = sloghttp.New(s.logger)(handler)
	return handler
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("HTTP server starting", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return nil
	}
	s.server = server
	s.mu.Unlock()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		// Start has not run yet; a sentinel keeps it from listening afterwards
		s.server = &http.Server{}
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if !s.feedAuthorized(r) {
		s.logger.Warn("Feed request rejected", "remote_addr", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	automationID := r.PathValue("automationID")
	if automationID == "" {
		http.Error(w, "Automation ID is required", http.StatusBadRequest)
		return
	}

	baseURL := fmt.Sprintf("%s://%s", getScheme(r), r.Host)

	feed, err := s.feedService.GenerateFeed(r.Context(), automationID, baseURL)
	if err != nil {
		if errors.Is(err, appErrors.ErrAutomationNotFound) {
			http.Error(w, "Automation not found", http.StatusNotFound)
			return
		}
		s.logger.Error("Error generating feed", "automation_id", automationID, "error", err)
		http.Error(w, "Failed to generate feed", http.StatusInternalServerError)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.logger.Error("Error converting feed to RSS", "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

// feedAuthorized accepts the feed token as a bearer token or a token query
// parameter. Feeds stay closed while no token is configured.
func (s *Server) feedAuthorized(r *http.Request) bool {
	if s.cfg.FeedToken == "" {
		return false
	}

	token := r.URL.Query().Get("token")
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.FeedToken)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
