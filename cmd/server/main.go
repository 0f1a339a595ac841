package main // authorization service entry point

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/hartono/bizman-backend/internal/auth"
	"github.com/hartono/bizman-backend/internal/config"
	"github.com/hartono/bizman-backend/internal/database"
	"github.com/hartono/bizman-backend/internal/handler"
	"github.com/hartono/bizman-backend/internal/middleware"
	"github.com/hartono/bizman-backend/internal/queue"
	"github.com/hartono/bizman-backend/internal/repository"
	"github.com/hartono/bizman-backend/internal/router"
	queue_publisher "github.com/hartono/bizman-backend/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// Redis is optional: without it the service recomputes permission
	// snapshots per request and runs without the login rate limiter.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; permission cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	presets := repository.NewPresetRepo(db)
	keys := repository.NewAccessKeyRepo(db)

	var cache auth.SnapshotCache
	if permCfg := config.LoadPermCacheConfig(); permCfg.Enabled && rdb != nil {
		cache = auth.NewRedisSnapshotCache(rdb, permCfg.TTL, permCfg.Prefix)
	}
	snaps := &auth.SnapshotSource{Presets: presets, Cache: cache}

	sink := queue_publisher.Sink{}
	manager := auth.NewManager(cfg, users, sessions, keys, snaps, sink)
	gate := auth.NewGate(cfg.JWTSecret, snaps, sink)

	// Background audit consumer; reconnects on its own and never takes the
	// API down with it.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, manager, gate, keys), gate, limiter)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
