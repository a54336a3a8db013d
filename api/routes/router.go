// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"cinetix/internal/auth"
	"cinetix/internal/cancellation"
	"cinetix/internal/eventbus"
	"cinetix/internal/films"
	"cinetix/internal/halls"
	"cinetix/internal/notifications"
	"cinetix/internal/payments"
	"cinetix/internal/realtime"
	"cinetix/internal/screenings"
	"cinetix/internal/seats"
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/database"
	"cinetix/internal/stats"
	"cinetix/internal/transactions"
	"cinetix/pkg/cache"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router assembles the dependency graph of the application: every service
// is constructed once here and handed to the feature routers, so tests can
// substitute fakes at the same seams.
type Router struct {
	config *config.Config
	db     *database.DB

	// Shared infrastructure
	Cache cache.Service
	Bus   eventbus.Publisher

	// Services that outlive a single request
	AuthRepo           auth.Repository
	FilmService        films.Service
	ScreeningService   screenings.Service
	SeatService        seats.Service
	TransactionService transactions.Service
	Hub                *realtime.Hub
	Reaper             *seats.Reaper

	// Sink bus handlers, started as consumers from main
	MetricsHandler eventbus.Handler

	cancellationService cancellation.Service
	statsService        stats.Service
}

// NewRouter builds the full service graph. Cross-service references that
// would form a cycle (seat engine ↔ coordinator, hub ↔ engine) are wired
// through the Set* seams after construction.
func NewRouter(cfg *config.Config, db *database.DB) *Router {
	r := &Router{
		config: cfg,
		db:     db,
	}

	pg := db.GetPostgreSQL()
	redisClient := db.GetRedisClient()

	r.Cache = cache.NewService(redisClient)
	r.Bus = eventbus.NewPublisher(r.Cache)

	// Auth
	r.AuthRepo = auth.NewRepository(pg)

	// Catalog
	filmRepo := films.NewRepository(pg)
	r.FilmService = films.NewService(filmRepo, r.Cache)

	hallRepo := halls.NewRepository(pg)
	hallService := halls.NewService(hallRepo, r.Cache)

	screeningRepo := screenings.NewRepository(pg)
	r.ScreeningService = screenings.NewService(screeningRepo, r.FilmService, hallService, r.Cache, cfg)

	// Seat inventory engine
	seatRepo := seats.NewRepository(pg)
	atomicOps := seats.NewAtomicSeatOps(redisClient)
	locker := seats.NewFunctionLocker(redisClient, cfg)
	r.SeatService = seats.NewService(seatRepo, atomicOps, locker, r.ScreeningService, cfg)

	// Purchase coordinator
	txnRepo := transactions.NewRepository(pg)
	provider := payments.NewSimulatedProvider(cfg)
	r.TransactionService = transactions.NewService(txnRepo, r.SeatService, r.ScreeningService, provider, r.Bus, r.Cache, cfg)
	r.SeatService.SetSoldSeatSource(r.TransactionService)

	// Cancellation audit trail
	cancellationRepo := cancellation.NewRepository(pg)
	cancellationService := cancellation.NewService(cancellationRepo)
	r.TransactionService.SetCancellationRecorder(cancellation.NewTransactionAuditor(cancellationService))
	r.cancellationService = cancellationService

	// Realtime hub, broadcasting from inside the seat engine's critical
	// sections.
	r.Hub = realtime.NewHub(r.SeatService, cfg)
	r.SeatService.SetBroadcaster(r.Hub)
	r.TransactionService.SetSaleAnnouncer(r.Hub)

	// Reaper
	r.Reaper = seats.NewReaper(r.SeatService, cfg)
	r.Reaper.SetTransactionExpirer(r.TransactionService)

	// Stats
	r.statsService = stats.NewService(r.Cache, r.ScreeningService, r.FilmService, r.TransactionService)
	r.MetricsHandler = stats.NewSalesMetricsHandler(r.Cache, r.ScreeningService)

	return r
}

// EmailHandler builds the sink-bus handler feeding the Kafka email
// pipeline. Separate from NewRouter because the producer owns a network
// connection that main may choose not to open.
func (r *Router) EmailHandler(producer notifications.Producer) eventbus.Handler {
	return notifications.NewSaleEmailHandler(
		producer,
		auth.NewUserServiceAdapter(r.AuthRepo),
		r.ScreeningService,
		r.FilmService,
		r.TransactionService,
	)
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		authController := auth.NewController(auth.NewService(r.AuthRepo, r.Cache, r.config))
		auth.NewRouter(authController, r.config).SetupRoutes(api)

		films.SetupFilmRoutes(api, films.NewController(r.FilmService), r.config)

		hallRepo := halls.NewRepository(r.db.GetPostgreSQL())
		hallController := halls.NewController(halls.NewService(hallRepo, r.Cache))
		halls.SetupHallRoutes(api, hallController, r.config)

		screenings.SetupScreeningRoutes(api, screenings.NewController(r.ScreeningService), r.config)

		seats.SetupSeatRoutes(api, seats.NewController(r.SeatService), r.config)

		transactions.SetupTransactionRoutes(api, transactions.NewController(r.TransactionService), r.config)

		cancellation.SetupCancellationRoutes(api, cancellation.NewController(r.cancellationService), r.config)

		stats.SetupStatsRoutes(api, stats.NewController(r.statsService), r.config)

		realtime.SetupRealtimeRoutes(api, r.Hub)
	}

	// Swagger UI
	engine.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "cinetix-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "cinetix-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}
