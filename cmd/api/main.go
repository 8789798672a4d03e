// cmd/api/main.go
// Gin RESTful API 入口

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"welcome-mailer/internal/api/routes"
	"welcome-mailer/internal/config"
	applogger "welcome-mailer/internal/logger"
	"welcome-mailer/internal/metrics"
	"welcome-mailer/internal/services"
)

func main() {
	// 載入設定
	cfg := config.MustLoad()
	applogger.Setup(cfg)

	log.Info().Str("env", cfg.Env).Msg("Starting Welcome Mailer API Server...")

	// 初始化郵件服務
	mailRouter := services.NewMailRouter(cfg)
	if err := mailRouter.ValidateConfiguration(); err != nil {
		log.Warn().Err(err).Str("provider", cfg.MailProvider).Msg("Mail provider configuration incomplete")
	}

	// 初始化資料庫
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	deliveryLog := services.NewDeliveryLogService(db)
	if err := deliveryLog.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	tokenStore := services.NewGormTokenStore(db)
	if err := tokenStore.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate token table")
	}

	// 初始化 Admin Token (已存在且有效時不重新簽發)
	tokenService := services.NewTokenService(cfg, tokenStore)
	if _, err := tokenService.InitializeAdminToken(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize admin token")
	}

	// 初始化 KeyDB
	keydbService, err := services.NewKeyDBService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to KeyDB")
	}
	defer keydbService.Close()

	// 初始化 Prometheus
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	welcomeMetrics := metrics.NewWelcomeMetrics(registry)

	// 初始化 Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// 註冊路由
	routes.RegisterRoutes(router, &routes.Dependencies{
		Config:       cfg,
		MailRouter:   mailRouter,
		TokenService: tokenService,
		DeliveryLog:  deliveryLog,
		KeyDBService: keydbService,
		Metrics:      welcomeMetrics,
		Gatherer:     registry,
	})

	// 建立 HTTP Server
	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 優雅關機
	go func() {
		log.Info().Str("port", cfg.APIPort).Msg("API Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down API server...")

	// 優雅關閉
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("API Server stopped")
}

// initDatabase 初始化資料庫連接
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormLogger := logger.Default
	if cfg.IsProduction() {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 設定連接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info().Msg("Database connected successfully")
	return db, nil
}
