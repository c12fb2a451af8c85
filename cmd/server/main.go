package main

import (
	"log"

	"github.com/sirupsen/logrus"

	"github.com/finsight/expense-insights-service/internal/config"
	"github.com/finsight/expense-insights-service/internal/database"
	"github.com/finsight/expense-insights-service/internal/handler"
	"github.com/finsight/expense-insights-service/internal/middleware"
	"github.com/finsight/expense-insights-service/internal/repository"
	"github.com/finsight/expense-insights-service/internal/scheduler"
	"github.com/finsight/expense-insights-service/internal/server"
	"github.com/finsight/expense-insights-service/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg)

	// Connect to the database
	logger.Info("Connecting to database...")
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()
	pool := db.GetPool()

	// Initialize repositories
	transactionRepo := repository.NewPostgresTransactionRepository(pool)
	ruleRepo := repository.NewPostgresRuleRepository(pool)
	merchantRepo := repository.NewPostgresMerchantRepository(pool)
	anomalyRepo := repository.NewPostgresAnomalyRepository(pool)
	insightRepo := repository.NewPostgresInsightRepository(pool)

	// Initialize services
	categorizer := service.NewCategorizer(transactionRepo, ruleRepo, merchantRepo, logger)
	detector := service.NewAnomalyDetector(transactionRepo, anomalyRepo, logger)
	insights := service.NewInsightsService(transactionRepo, anomalyRepo, insightRepo, logger)

	// Start the daily anomaly-detection scheduler
	detectionScheduler := scheduler.New(detector, logger)
	if err := detectionScheduler.Start(cfg.DetectionSchedule); err != nil {
		logger.WithError(err).Fatal("Failed to start detection scheduler")
	}
	defer detectionScheduler.Stop()

	// Create and configure server
	appServer := server.NewServer(cfg, logger)
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	v1 := appServer.GetRouter().Group("/v1")
	handler.NewCategorizeHandler(categorizer).RegisterCategorizeRoutes(v1, authMiddleware)
	handler.NewRuleHandler(categorizer).RegisterRuleRoutes(v1, authMiddleware)
	handler.NewAnomalyHandler(detector).RegisterAnomalyRoutes(v1, authMiddleware)
	handler.NewInsightHandler(insights).RegisterInsightRoutes(v1, authMiddleware)

	// Start server (blocking call)
	logger.WithField("port", cfg.Port).Info("Starting server...")
	if err := appServer.Start(); err != nil {
		logger.WithError(err).Fatal("Server error")
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}
