package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-leave/internal/balance"
	"go-leave/internal/config"
	"go-leave/internal/events"
	"go-leave/internal/messaging/kafka/consumer"
	"go-leave/internal/shared/connection"

	"go.uber.org/zap"
)

func RunConsumer(cfg *config.Config) error {
	logger := zap.L().Named("app.consumer")

	if err := cfg.ValidateKafka(); err != nil {
		return err
	}

	gormDB, err := connection.ConnectGORMWithRetry(cfg.PostgresDSN(), cfg.DBConnectRetries, cfg.IsProduction(), logger)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	balanceStore := balance.NewStore(balance.NewRepository(gormDB), balance.Defaults{
		Casual:  cfg.DefaultCasualDays,
		Medical: cfg.DefaultMedicalDays,
	}, logger)

	reader := connection.NewKafkaReader(cfg.KafkaBroker, events.EmployeeCreatedTopic, cfg.KafkaGroupID)
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		consumer.ConsumeEmployeeLifecycle(ctx, reader, balanceStore, logger, time.Second)
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()
	<-done

	return nil
}
