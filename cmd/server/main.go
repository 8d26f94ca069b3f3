package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"arena/internal/api"
	"arena/internal/config"
	"arena/internal/lobby"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  ARENA - GAME SERVER")
	log.Println("🎮 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	cfg := config.Load()
	log.Printf("🎮 Config: %d TPS, %gx%g world, score limit %d",
		cfg.Game.TickRate, cfg.Game.WorldWidth, cfg.Game.WorldHeight, cfg.Game.ScoreLimit)
	log.Printf("🛡️ Resource limits: %d players/match, %d global, %d matches, %d entities",
		cfg.Limits.MaxPlayersPerMatch, cfg.Limits.MaxGlobalPlayers,
		cfg.Limits.MaxMatches, cfg.Limits.MaxEntitiesPerMatch)

	if !cfg.Server.DisableDebugServer {
		debugCfg := api.DefaultObservabilityConfig()
		debugCfg.ListenAddr = fmt.Sprintf("127.0.0.1:%d", cfg.Server.DebugPort)
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	lob := lobby.New(cfg)
	lob.Start()

	var origins []string
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			origins = append(origins, strings.TrimSpace(o))
		}
	}

	router, limiter := api.NewRouter(api.RouterConfig{
		Lobby:       lob,
		Config:      cfg,
		RateLimit:   api.DefaultRateLimitConfig,
		CORSOrigins: origins,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Forced shutdown: %v", err)
	}
	limiter.Stop()
	lob.Shutdown()
	log.Println("👋 Goodbye")
}
