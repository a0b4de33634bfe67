package ginserver

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"monteur/internal/infra/config"
	"monteur/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Units(c *gin.Context)
	Check(c *gin.Context)
	Quote(c *gin.Context)
	Periods(c *gin.Context)
}

type CalendarHTTP interface {
	Calendar(c *gin.Context)
}

type PublicReservationHTTP interface {
	Create(c *gin.Context)
}

type AdminReservationHTTP interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
	Archive(c *gin.Context)
	Restore(c *gin.Context)
	Complete(c *gin.Context)
	Payment(c *gin.Context)
	Purge(c *gin.Context)
	Statistics(c *gin.Context)
}

type BlockHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Delete(c *gin.Context)
}

type PushHTTP interface {
	VAPIDKey(c *gin.Context)
	Subscribe(c *gin.Context)
}

type Handlers struct {
	Availability      AvailabilityHTTP
	Calendar          CalendarHTTP
	Reservations      PublicReservationHTTP
	AdminReservations AdminReservationHTTP
	Blocks            BlockHTTP
	Push              PushHTTP
	OperatorAuth      gin.HandlerFunc
	// Today scopes cached quotes to the current day; nil uses UTC wall time.
	Today func() time.Time
}

// NewRouter wires the public, operator and health routes.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(obsMW.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if cfg.RateLimitRPS > 0 {
		api.Use(RateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))
	}
	if h.Availability != nil {
		today := h.Today
		if today == nil {
			today = func() time.Time { return time.Now().UTC() }
		}
		cached := func(handler gin.HandlerFunc, _ CacheKey) []gin.HandlerFunc {
			return []gin.HandlerFunc{handler}
		}
		if cfg.CacheTTL > 0 {
			store := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
			cached = func(handler gin.HandlerFunc, key CacheKey) []gin.HandlerFunc {
				return []gin.HandlerFunc{Cache(store, cfg.CacheTTL, key), handler}
			}
		}
		api.GET("/units", cached(h.Availability.Units, RequestKey)...)
		api.POST("/availability", h.Availability.Check)
		api.GET("/units/:unit/periods", h.Availability.Periods)
		api.GET("/quote", cached(h.Availability.Quote, DayKey(today))...)
	}
	if h.Reservations != nil {
		api.POST("/reservations", h.Reservations.Create)
	}
	if h.Push != nil {
		api.GET("/push/vapid-key", h.Push.VAPIDKey)
	}

	if h.OperatorAuth == nil {
		return router
	}
	admin := api.Group("/admin", h.OperatorAuth)
	if h.AdminReservations != nil {
		admin.GET("/reservations", h.AdminReservations.List)
		admin.GET("/reservations/:id", h.AdminReservations.Get)
		admin.POST("/reservations/:id/cancel", h.AdminReservations.Cancel)
		admin.POST("/reservations/:id/archive", h.AdminReservations.Archive)
		admin.POST("/reservations/:id/restore", h.AdminReservations.Restore)
		admin.POST("/reservations/:id/complete", h.AdminReservations.Complete)
		admin.POST("/reservations/:id/payment", h.AdminReservations.Payment)
		admin.DELETE("/reservations/:id", h.AdminReservations.Purge)
		admin.GET("/statistics", h.AdminReservations.Statistics)
	}
	if h.Calendar != nil {
		admin.GET("/calendar", h.Calendar.Calendar)
	}
	if h.Blocks != nil {
		admin.GET("/blocks", h.Blocks.List)
		admin.POST("/blocks", h.Blocks.Create)
		admin.DELETE("/blocks/:id", h.Blocks.Delete)
	}
	if h.Push != nil {
		admin.POST("/push/subscriptions", h.Push.Subscribe)
	}
	return router
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
