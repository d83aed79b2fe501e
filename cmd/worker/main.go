package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"load-shedding-monitor/internal/cache"
	"load-shedding-monitor/internal/config"
	"load-shedding-monitor/internal/coordinator"
	"load-shedding-monitor/internal/database"
	"load-shedding-monitor/internal/monitor"
	"load-shedding-monitor/internal/mq"
	"load-shedding-monitor/internal/powercheck"
	"load-shedding-monitor/internal/sepush"
)

func main() {
	// Load .env if present.
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.SePushToken == "" {
		log.Fatal("SEPUSH_TOKEN is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Database ---
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database connected and migrated")

	// --- Redis ---
	redisCache, err := cache.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisCache.Close()
	log.Println("redis connected")

	// --- RabbitMQ ---
	publisher, err := mq.NewPublisher(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("rabbitmq publisher: %v", err)
	}
	defer publisher.Close()

	consumer, err := mq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("rabbitmq consumer: %v", err)
	}
	defer consumer.Close()
	log.Println("rabbitmq connected")

	// --- Coordinators ---
	client := sepush.NewClient(cfg.SePushToken)
	stageCoord := coordinator.NewStageCoordinator(client, time.Duration(cfg.StageRefresh)*time.Second)
	areaCoord := coordinator.NewAreaCoordinator(client, stageCoord,
		time.Duration(cfg.AreaRefresh)*time.Second,
		time.Duration(cfg.MinEventDuration)*time.Minute)
	quotaCoord := coordinator.NewQuotaCoordinator(client, time.Duration(cfg.QuotaRefresh)*time.Second)

	// --- Monitor service ---
	notifier := mq.NewNotifier(publisher)
	svc := monitor.NewService(stageCoord, areaCoord, quotaCoord, db, redisCache, notifier)

	if err := svc.LoadAreas(ctx); err != nil {
		log.Fatalf("load areas: %v", err)
	}

	go svc.Start(ctx, cfg.PollInterval)
	go svc.StartRefreshListener(ctx, consumer)
	log.Println("monitor service started")

	// --- Power verification (pings subscriber hosts in outage windows) ---
	verifier := powercheck.NewVerifier(db, areaCoord)
	go verifier.Start(ctx, cfg.PowerCheck)
	log.Println("power verifier started")

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down worker...")
	cancel()
}
