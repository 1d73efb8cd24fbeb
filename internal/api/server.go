package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tessera/internal/cache"
	"tessera/internal/config"
	"tessera/internal/database"
	"tessera/internal/handlers"
	"tessera/internal/logger"
	"tessera/internal/messaging"
	"tessera/internal/metrics"
	"tessera/internal/middleware"
	"tessera/internal/repository"
	"tessera/internal/search"
	"tessera/internal/service"
)

// Server wires the HTTP API: database, NATS, the optional search index and
// availability cache, and the gin router on top.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	redis    *cache.Client
	services *service.Services
	repos    *repository.Repositories
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}

	repos := repository.NewRepositories(db)
	notifier := messaging.NewNotifier(natsClient)

	deps := service.Deps{
		Events:       repos.Events,
		Reservations: repos.Reservations,
		Reviews:      repos.Reviews,
		Users:        repos.Users,
		Notifier:     notifier,
	}

	// Search is optional; an empty URL disables it and listing falls back
	// to SQL filters.
	esCfg := config.LoadElasticsearchConfig()
	if esCfg.URL != "" {
		esClient, err := search.NewElasticsearchClient(esCfg)
		if err != nil {
			logger.Get().Warn("Elasticsearch unavailable, search disabled", "error", err)
		} else {
			deps.Search = esClient
		}
	}

	// The availability cache is advisory; a missing Redis only costs reads.
	var redisClient *cache.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.New(cfg.Redis)
		if err != nil {
			logger.Get().Warn("Redis unavailable, availability cache disabled", "error", err)
			redisClient = nil
		} else {
			deps.Cache = redisClient
		}
	}

	services := service.NewServices(deps)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		redis:    redisClient,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	api.Use(middleware.Identity(s.repos.Users))
	{
		events := api.Group("/events")
		{
			events.POST("", h.CreateEvent)
			events.GET("", h.ListEvents)
			events.GET("/:id", h.GetEvent)
			events.PATCH("/:id", h.UpdateEvent)
			events.DELETE("/:id", h.DeleteEvent)
			events.POST("/:id/publish", h.PublishEvent)
			events.POST("/:id/cancel", h.CancelEvent)
		}

		reservations := api.Group("/reservations")
		{
			reservations.POST("", h.CreateReservation)
			reservations.GET("", h.ListMyReservations)
			reservations.POST("/:id/confirm", h.ConfirmReservation)
			reservations.POST("/:id/cancel", h.CancelReservation)
			reservations.PUT("/:id/review", h.SaveReview)
		}

		api.GET("/reviews/pending", h.ListPendingReviews)
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbHealth.Status,
		"service":  "tessera-api",
		"database": dbHealth,
	})
}

// Router exposes the gin engine for http.Server and tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Cleanup releases the server's connections.
func (s *Server) Cleanup(ctx context.Context) {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logger.Get().Error("Failed to close Redis client", "error", err)
		}
	}
	if err := s.nats.Close(); err != nil {
		logger.Get().Error("Failed to close NATS connection", "error", err)
	}
	if err := s.db.Close(); err != nil {
		logger.Get().Error("Failed to close database connection", "error", err)
	}
}
