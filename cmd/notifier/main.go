// Command notifier consumes notification events published by the API when
// NOTIFICATION_DISPATCH=kafka and persists them.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/zfogg/bizfeed/backend/internal/config"
	"github.com/zfogg/bizfeed/backend/internal/database"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/notifications"
	"github.com/zfogg/bizfeed/backend/internal/queue"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Initialize(cfg.Logging.Level, cfg.Logging.File); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	if len(cfg.Notifications.KafkaBrokers) == 0 {
		logger.Log.Fatal("KAFKA_BROKERS is required")
	}

	if err := database.Initialize(cfg.Database, false); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	svc := notifications.NewService(database.DB)

	consumer := queue.NewConsumer(
		cfg.Notifications.KafkaBrokers,
		cfg.Notifications.KafkaGroupID,
		cfg.Notifications.KafkaTopic,
		func(ctx context.Context, key, value []byte) error {
			ev, err := notifications.DecodeEvent(value)
			if err != nil {
				return err
			}
			_, err = svc.Create(ctx, ev)
			return err
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Info("Notifier consuming",
		zap.Strings("brokers", cfg.Notifications.KafkaBrokers),
		zap.String("topic", cfg.Notifications.KafkaTopic),
		zap.String("group", cfg.Notifications.KafkaGroupID),
	)
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Log.Error("Consumer stopped", zap.Error(err))
	}
	logger.Log.Info("Notifier exited")
}
