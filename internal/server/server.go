package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/brand-foundation/internal/analyzers"
	"github.com/jonathan/brand-foundation/internal/config"
	"github.com/jonathan/brand-foundation/internal/db"
	"github.com/jonathan/brand-foundation/internal/fetch"
	"github.com/jonathan/brand-foundation/internal/foundation"
	"github.com/jonathan/brand-foundation/internal/llm"
	"github.com/jonathan/brand-foundation/internal/orchestrator"
	"github.com/jonathan/brand-foundation/internal/runs"
	"github.com/jonathan/brand-foundation/internal/server/middleware"
	"github.com/jonathan/brand-foundation/internal/server/ratelimit"
)

// ProjectStore is the project storage used by the handlers. *db.DB
// implements it; tests substitute an in-memory version.
type ProjectStore interface {
	CreateProject(ctx context.Context, name string) (*db.Project, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*db.Project, error)
	ListProjects(ctx context.Context, limit int) ([]db.Project, error)
	DeleteProject(ctx context.Context, projectID uuid.UUID) error
	SaveRecord(ctx context.Context, projectID uuid.UUID, patch *foundation.Patch) error
}

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	projects    ProjectStore
	runStore    runs.Store
	registry    *analyzers.Registry
	orch        *orchestrator.Orchestrator
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	tokenConfig *config.TokenConfig
	validator   *validator.Validate
}

// Config holds server configuration.
type Config struct {
	Port        int
	DatabaseURL string
	APIKey      string
	UseBrowser  bool
}

// New creates a server instance wired against Postgres and Gemini.
func New(ctx context.Context, cfg Config) (*Server, error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	catalog := foundation.DefaultCatalog()
	registry, err := analyzers.DefaultRegistry(catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to build analyzer registry: %w", err)
	}

	client, err := llm.NewGeminiClient(ctx, cfg.APIKey, llm.DefaultModels())
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	fetcher := fetch.NewSiteFetcher(&fetch.SiteFetcherConfig{BrowserEnabled: cfg.UseBrowser})
	executor := llm.NewExecutor(client, fetcher)

	manager := runs.NewManager(database)
	orch := orchestrator.New(registry, database, manager, executor)

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	tokenConfig, err := config.NewTokenConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create token config: %w", err)
	}

	s := newServer(database, database, registry, orch, jwtConfig, tokenConfig)
	s.db = database
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// newServer wires the handler graph without any external connections.
func newServer(projects ProjectStore, runStore runs.Store, registry *analyzers.Registry, orch *orchestrator.Orchestrator, jwtConfig *config.JWTConfig, tokenConfig *config.TokenConfig) *Server {
	return &Server{
		projects:    projects,
		runStore:    runStore,
		registry:    registry,
		orch:        orch,
		rateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		jwtService:  NewJWTService(jwtConfig),
		tokenConfig: tokenConfig,
		validator:   validator.New(),
	}
}

// Handler builds the full route tree with middleware applied.
func (s *Server) Handler() http.Handler {
	requireAuth := middleware.Auth(s.jwtService)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /auth/token", s.handleTokenExchange)

	api := http.NewServeMux()
	api.HandleFunc("POST /projects", s.handleCreateProject)
	api.HandleFunc("GET /projects", s.handleListProjects)
	api.HandleFunc("GET /projects/{id}", s.handleGetProject)
	api.HandleFunc("PATCH /projects/{id}", s.handleUpdateProject)
	api.HandleFunc("DELETE /projects/{id}", s.handleDeleteProject)
	api.HandleFunc("GET /projects/{id}/completion", s.handleGetCompletion)
	api.HandleFunc("POST /projects/{id}/analyze", s.handleAnalyze)
	api.HandleFunc("GET /projects/{id}/runs", s.handleListRuns)
	api.HandleFunc("GET /runs/{id}", s.handleGetRun)

	mux.Handle("/", requireAuth(api))

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start begins listening and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Let in-flight analyzer work settle before closing the pool.
	s.orch.Wait()

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.db != nil {
		s.db.Close()
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			if info.RetryAfter > 0 {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
			}
			s.errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID identifies the client by IP address.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}
