package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/terra-clan/build-directory/internal/catalog"
	"github.com/terra-clan/build-directory/internal/config"
	"github.com/terra-clan/build-directory/internal/listing"
	"github.com/terra-clan/build-directory/internal/models"
	"github.com/terra-clan/build-directory/internal/services"
	"github.com/terra-clan/build-directory/internal/storage"
)

// Marketplace is the part of the remote marketplace API used outside the
// listing itself
type Marketplace interface {
	FeaturedProfessionals(ctx context.Context, profession string, limit int) ([]models.Professional, error)
	GetProfessional(ctx context.Context, id int64) (*models.Professional, error)
	ListReviews(ctx context.Context, professionalID int64) ([]models.Review, error)
	ListProjects(ctx context.Context, professionalID int64) ([]models.Project, error)
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	CreateReview(ctx context.Context, professionalID int64, review models.CreateReviewRequest) (*models.Review, error)
}

// ListingCache is flushed after writes that change ratings or review counts
type ListingCache interface {
	InvalidateAll(ctx context.Context) error
}

// Deps are the collaborators of the HTTP server. Bookmarks may be nil, in
// which case the bookmark routes answer 503. ListingCache is nil when
// listings are not cached.
type Deps struct {
	Fetcher      listing.Fetcher
	ListingCache ListingCache
	Marketplace  Marketplace
	Bookmarks    storage.BookmarkRepository
	Catalogs     *catalog.Loader
	Region       string
	Registry     *services.Registry
	Log          *zap.Logger
}

// Server represents the HTTP API server
type Server struct {
	config    config.ServerConfig
	router    *chi.Mux
	fetcher   listing.Fetcher
	cache     ListingCache
	market    Marketplace
	bookmarks storage.BookmarkRepository
	catalogs  *catalog.Loader
	region    string
	registry  *services.Registry
	log       *zap.Logger
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = services.NewRegistry()
	}
	catalogs := deps.Catalogs
	if catalogs == nil {
		catalogs = catalog.NewLoader(log)
	}

	s := &Server{
		config:    cfg,
		fetcher:   deps.Fetcher,
		cache:     deps.ListingCache,
		market:    deps.Marketplace,
		bookmarks: deps.Bookmarks,
		catalogs:  catalogs,
		region:    deps.Region,
		registry:  registry,
		log:       log.Named("api"),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	allowedOrigins := s.config.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", customerHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Health check and metrics (outside versioned API)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		withTimeout := middleware.Timeout(timeout)

		r.Route("/professionals", func(r chi.Router) {
			r.With(withTimeout).Get("/", s.handleListProfessionals)
			// long-lived, so outside the request timeout
			r.Get("/ws", s.handleListingWS)
			r.With(withTimeout).Get("/featured", s.handleFeaturedProfessionals)
			r.With(withTimeout).Get("/{id}", s.handleGetProfessional)
			r.With(withTimeout).Post("/{id}/reviews", s.handleCreateReview)
		})

		r.With(withTimeout).Get("/projects/{id}", s.handleGetProject)

		r.Route("/bookmarks", func(r chi.Router) {
			r.Use(withTimeout, s.requireBookmarks, RequireCustomer)
			r.Get("/", s.handleListBookmarks)
			r.Post("/", s.handleCreateBookmark)
			r.Delete("/{id}", s.handleDeleteBookmark)
		})

		r.With(withTimeout).Get("/catalog", s.handleGetCatalog)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
