// Command server runs the authentication and user directory API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/ekinsu/auth-service/internal/auth"
	"github.com/ekinsu/auth-service/internal/config"
	"github.com/ekinsu/auth-service/internal/database"
	"github.com/ekinsu/auth-service/internal/handler"
	"github.com/ekinsu/auth-service/internal/metrics"
	"github.com/ekinsu/auth-service/internal/queue"
	"github.com/ekinsu/auth-service/internal/repository"
	"github.com/ekinsu/auth-service/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	if err := database.Migrate(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	codec, err := auth.NewCodec(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, time.Now)
	if err != nil {
		log.Fatalf("token config: %v", err)
	}

	users := repository.NewUserRepo(db)
	ledger := repository.NewTokenRepo(db)
	svc := auth.NewService(users, ledger, codec, cfg.BcryptCost)
	policy := auth.NewPolicy()
	collector := metrics.NewCollector()

	var events *queue.Publisher
	if cfg.AMQPURL != "" {
		events = queue.NewPublisher(cfg.AMQPURL)
		defer events.Close()
		go queue.StartAuditConsumer(cfg.AMQPURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go auth.StartSweeper(ctx, ledger, cfg.SweepInterval, collector.RecordSwept)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Svc:     svc,
		Policy:  policy,
		Auth:    handler.NewAuthHandler(svc, collector, events),
		Users:   handler.NewUserHandler(svc, events),
		Metrics: collector,
		RateCfg: config.LoadRateLimitConfig(),
		Redis:   config.NewRedisClient(),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()
	if err := e.Start(addr); err != nil {
		log.Print(err)
	}
}
