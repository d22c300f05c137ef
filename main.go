package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"eventhub/db"
	"eventhub/ledger"
	"eventhub/middlewares"
	"eventhub/models"
	"eventhub/routes"
	"eventhub/seed"
	"eventhub/utils"
)

const shutdownTimeout = 10 * time.Second

type store struct {
	users  models.UserRepository
	events models.EventRepository
	regs   models.RegistrationRepository
	ping   func(context.Context) error
	close  func()
}

func openStore(ctx context.Context, cfg *utils.Config) (*store, error) {
	switch cfg.StoreDriver {
	case utils.StorePostgres:
		sqldb, err := db.OpenPostgres(ctx, cfg.PgDSN)
		if err != nil {
			return nil, err
		}
		return &store{
			users:  models.NewSQLUserRepository(sqldb),
			events: models.NewSQLEventRepository(sqldb),
			regs:   models.NewSQLRegistrationRepository(sqldb),
			ping:   sqldb.PingContext,
			close:  func() { _ = sqldb.Close() },
		}, nil

	case utils.StoreMemory:
		mem := models.NewMemoryStore()
		return &store{
			users:  mem.Users(),
			events: mem,
			regs:   mem,
			close:  func() {},
		}, nil

	default:
		mg, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		database := mg.Database(cfg.MongoDB)
		if err := db.EnsureMongoIndexes(ctx, database); err != nil {
			_ = mg.Disconnect(context.Background())
			return nil, err
		}
		events := database.Collection(db.EventsCollection)
		users := database.Collection(db.UsersCollection)
		return &store{
			users:  models.NewMongoUserRepository(users),
			events: models.NewMongoEventRepository(events),
			regs:   models.NewMongoRegistrationRepository(mg, events, users),
			ping:   func(ctx context.Context) error { return mg.Ping(ctx, nil) },
			close:  func() { _ = mg.Disconnect(context.Background()) },
		}, nil
	}
}

func connectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func main() {
	utils.LoadEnv()
	cfg := utils.NewConfig()
	logger := utils.SetupLogger(os.Stderr, cfg.LogLevel)
	utils.PasswordCost = cfg.BcryptCost

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("can't open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.close()
	logger.Info("store ready", "driver", cfg.StoreDriver)

	rdb, err := connectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("can't connect to redis", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	var inv *utils.CacheInvalidator
	if rdb != nil {
		defer rdb.Close()
		inv = utils.NewCacheInvalidator(rdb)
	} else {
		logger.Warn("REDIS_ADDR not set, response cache and daily quota disabled")
	}

	if cfg.Seed {
		if _, err := seed.Run(ctx, st.events); err != nil {
			logger.Error("seeding failed", "error", err)
			os.Exit(1)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	server := gin.New()
	server.Use(gin.Recovery())
	server.Use(middlewares.RequestLogger(logger))
	server.Use(middlewares.Metrics())
	server.Use(middlewares.CORS([]string{cfg.FrontendURL}))
	if rdb != nil {
		server.Use(middlewares.ResponseCache(rdb, cfg.CacheTTL))
	}
	server.GET("/metrics", gin.WrapH(promhttp.Handler()))

	stopLimiters := routes.RegisterRoutes(server, routes.Deps{
		Users:      st.users,
		Events:     st.events,
		Ledger:     ledger.New(st.regs, ledger.WithLogger(logger)),
		Auth:       utils.NewAuthenticator(cfg.JWTSecret, cfg.JWTExpire, nil),
		Clock:      utils.NewSystemClock(),
		Redis:      rdb,
		Inv:        inv,
		DailyQuota: cfg.DailyQuota,
		Ping:       st.ping,
		Logger:     logger,
	})
	defer stopLimiters()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		srvErr <- httpServer.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
}
