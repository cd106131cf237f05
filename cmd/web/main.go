package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"members-web/core"
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "web.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	store := core.NewRedisSessionStore(redisClient, cfg)
	userRepo := core.NewPgUserRepository(db)
	hasher := core.NewPasswordHasher()
	authService := core.NewAuthService(userRepo, hasher)

	if err := core.BootstrapAdmin(ctx, userRepo, hasher, cfg); err != nil {
		log.Fatalf("bootstrap admin failed: %v", err)
	}

	if cfg.DevSeedPath != "" {
		if err := core.SeedUsers(ctx, userRepo, hasher, cfg.DevSeedPath); err != nil {
			log.Fatalf("dev seed failed: %v", err)
		}
	}

	router := core.NewRouter(cfg, store, authService, userRepo)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting web server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
