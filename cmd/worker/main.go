package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comicverse/unigraph/internal/config"
	"github.com/comicverse/unigraph/internal/queue"
	"github.com/comicverse/unigraph/internal/timing"
	"github.com/comicverse/unigraph/internal/util"
	"github.com/comicverse/unigraph/pkg/leaselock"
	"github.com/comicverse/unigraph/pkg/logger"
	"github.com/comicverse/unigraph/pkg/logger/console"
	"github.com/comicverse/unigraph/pkg/store"
	pgxstore "github.com/comicverse/unigraph/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
		JSON:  util.GetEnvBool("LOG_JSON", false),
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "err", err)
	}

	// storage and lease; workers on postgres share the lease table
	var (
		graphStorage store.GraphStorage
		locker       leaselock.Locker
	)
	if cfg.Store == config.StorePostgres {
		if err := pgxstore.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("Failed to migrate database", "err", err)
		}
		pgConn, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Unable to connect to database", "err", err)
		}
		defer pgConn.Close()
		graphStorage = pgxstore.NewGraphDBStorageWithConnection(pgConn)
		locker = leaselock.New(pgConn)
	} else {
		graphStorage, err = cfg.OpenStorage(ctx)
		if err != nil {
			logger.Fatal("Failed to open storage", "err", err)
		}
		locker = leaselock.NewLocalLocker()
	}
	defer graphStorage.Close()

	clients, err := cfg.OpenClients(ctx)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "err", err)
	}

	p, err := cfg.NewPipeline(clients, graphStorage)
	if err != nil {
		logger.Fatal("Failed to create pipeline", "err", err)
	}

	// Init rabbitmq
	conn, err := queue.Init()
	if err != nil {
		logger.Fatal("Failed to connect to queue", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to setup queues", "err", err)
	}

	// prefetch=1: one run at a time per worker
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.GraphQueue,
		fmt.Sprintf("%s_consumer", queue.GraphQueue),
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.GraphQueue, "err", err)
	}

	handler := &queue.GraphRunHandler{
		Runner:     p,
		Characters: clients.Files,
		Locker:     locker,
		LeaseOpts:  cfg.LeaseOptions(),
		Events:     ch,
	}

	logger.Info("Listening for messages", "queue", queue.GraphQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.GraphQueue)
				return
			}
			startTime := time.Now()
			logger.Info("Received message", "queue", queue.GraphQueue)

			if err := handler.ProcessGraphRunMessage(ctx, msg.Body); err != nil {
				logger.Error("Error processing message", "queue", queue.GraphQueue, "err", err)
				queue.HandleProcessingError(consumerCh, msg, queue.GraphQueue, err)
			} else {
				if err := msg.Ack(false); err != nil {
					logger.Error("Failed to ack message", "err", err)
				}
				logger.Info("Message processed successfully", "queue", queue.GraphQueue)
			}

			logger.Info("Processing time", "duration", timing.FormatDuration(time.Since(startTime)))
			logger.Info("Waiting for next message")
		}
	}
}
