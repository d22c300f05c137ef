package routes

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventhub/ledger"
	"eventhub/middlewares"
	"eventhub/models"
	"eventhub/utils"
)

// Deps is everything the handlers need. Redis and Inv are nil when caching
// is disabled; the daily quota is skipped then.
type Deps struct {
	Users  models.UserRepository
	Events models.EventRepository
	Ledger *ledger.Ledger
	Auth   *utils.Authenticator
	Clock  utils.Clock

	Redis      *redis.Client
	Inv        *utils.CacheInvalidator
	DailyQuota int

	// Ping reports storage health on /health. Optional.
	Ping   func(ctx context.Context) error
	Limits *Limits
	Logger *slog.Logger
}

// Limits configures the three token-bucket layers.
type Limits struct {
	Global middlewares.LimiterConfig // per IP, every route
	Auth   middlewares.LimiterConfig // per IP, /auth/register and /auth/login
	User   middlewares.LimiterConfig // per user, protected routes
}

func DefaultLimits() Limits {
	return Limits{
		Global: middlewares.LimiterConfig{Name: "global", RPS: 20, Burst: 40, IdleTTL: 3 * time.Minute},
		Auth:   middlewares.LimiterConfig{Name: "auth", RPS: 0.5, Burst: 2, IdleTTL: 10 * time.Minute},
		User:   middlewares.LimiterConfig{Name: "user", RPS: 5, Burst: 10, IdleTTL: 10 * time.Minute},
	}
}

type handlers struct {
	Deps
}

// RegisterRoutes mounts the API on server. The returned func stops the rate
// limiter sweepers.
func RegisterRoutes(server *gin.Engine, d Deps) (stop func()) {
	if d.Clock == nil {
		d.Clock = utils.NewSystemClock()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	limits := DefaultLimits()
	if d.Limits != nil {
		limits = *d.Limits
	}
	h := &handlers{d}

	globalLimiter := middlewares.NewRateLimiter(limits.Global)
	authLimiter := middlewares.NewRateLimiter(limits.Auth)
	userLimiter := middlewares.NewRateLimiter(limits.User)
	stop = func() {
		globalLimiter.Close()
		authLimiter.Close()
		userLimiter.Close()
	}

	server.Use(globalLimiter.Middleware(func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}))

	server.GET("/health", h.health)

	authGroup := server.Group("/auth")
	authGroup.POST("/register",
		authLimiter.Middleware(func(c *gin.Context) string { return "signup:" + c.ClientIP() }),
		h.signup,
	)
	authGroup.POST("/login",
		authLimiter.Middleware(func(c *gin.Context) string { return "login:" + c.ClientIP() }),
		h.login,
	)

	server.GET("/events", h.getEvents)
	server.GET("/events/:id", h.getEvent)

	protected := server.Group("/")
	protected.Use(middlewares.Authenticate(d.Auth))
	protected.Use(userLimiter.Middleware(func(c *gin.Context) string {
		return "u:" + c.GetString(middlewares.ContextUserID)
	}))
	if d.Redis != nil && d.DailyQuota > 0 {
		protected.Use(middlewares.Quota(d.Redis, middlewares.QuotaRule{
			Limit:  d.DailyQuota,
			Window: 24 * time.Hour,
			KeyFn: func(c *gin.Context) string {
				uid := c.GetString(middlewares.ContextUserID)
				if uid == "" {
					return ""
				}
				return "quota:user:" + uid + ":day"
			},
		}))
	}

	protected.POST("/events", h.createEvent)
	protected.POST("/events/:id/register", h.registerForEvent)
	protected.POST("/events/:id/cancel", h.cancelRegistration)

	protected.GET("/dashboard/registered", h.dashboardRegistered)
	protected.GET("/dashboard/upcoming", h.dashboardUpcoming)
	protected.GET("/dashboard/past", h.dashboardPast)

	return stop
}
