package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/messaging"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/notification"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/platform"
	"github.com/maxwellt7/ai-hypnosis-generator/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	// --- Configuration ---
	cfg, err := notification.LoadWorkerConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: "json", Service: "notification-worker"})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- RabbitMQ ---
	conn, err := platform.ConnectRabbitMQ(ctx, cfg.RabbitMQURL, platform.DefaultRetry, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()

	// --- Sender ---
	var sender messaging.EmailSender
	if cfg.SMTP.Host == "" {
		log.Warn("SMTP_HOST not set, e-mails will only be logged")
		sender = notification.NewLogSender(log)
	} else {
		smtpSender, err := notification.NewSMTPSender(cfg.SMTP, log)
		if err != nil {
			log.Fatal("Failed to create SMTP sender", zap.Error(err))
		}
		sender = smtpSender
	}

	processor := messaging.NewProcessor(sender, cfg.SendTimeout, log)
	consumer := messaging.NewConsumer(conn, cfg.EmailQueueName, cfg.WorkerConcurrency, processor, log)

	healthSrv := startHealthCheckServer(cfg.HealthCheckPort, log)

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- consumer.Start()
	}()
	log.Info("Notification worker started", zap.String("queue", cfg.EmailQueueName), zap.Int("concurrency", cfg.WorkerConcurrency))

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-consumerErr:
		if err != nil {
			log.Error("Consumer stopped with error, shutting down", zap.Error(err))
		} else {
			log.Info("Consumer stopped, shutting down")
		}
		consumerErr <- err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to stop health check server", zap.Error(err))
	}

	consumer.Stop()
	<-consumerErr
	log.Info("Notification worker stopped")
}

func startHealthCheckServer(port string, log *zap.Logger) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Starting health check server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Health check server failed", zap.Error(err))
		}
	}()
	return srv
}
