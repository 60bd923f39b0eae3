package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"semelfinder/internal/app/semla/config"
	"semelfinder/internal/app/semla/entity"
	"semelfinder/internal/app/semla/handler"
	"semelfinder/internal/app/semla/infrastructure/messaging"
	"semelfinder/internal/app/semla/infrastructure/storage"
	"semelfinder/internal/app/semla/processor"
	"semelfinder/internal/app/semla/repository"
	"semelfinder/internal/app/semla/seed"
	"semelfinder/internal/app/semla/service"
	"semelfinder/internal/app/semla/util"
	"semelfinder/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logger.Init("semla-service", logLevel)

	db, err := connectDatabase(cfg.Database.DSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	logger.Info().Str("database", cfg.Database.Name).Msg("Connected to PostgreSQL")

	if err := db.AutoMigrate(
		&entity.Semla{},
		&entity.SemlaImage{},
		&entity.Rating{},
		&entity.ActionTracker{},
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	redisCache, err := util.NewRedisClient(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisCache.Close()
	logger.Info().Str("address", cfg.Redis.Address()).Msg("Connected to Redis")

	kafkaProducer := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer kafkaProducer.Close()
	logger.Info().
		Str("topic", cfg.Kafka.Topic).
		Msg("Initialized Kafka producer")

	uploader, err := storage.NewMinioUploader(storage.MinioConfig{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Bucket:    cfg.Minio.Bucket,
		Prefix:    cfg.Minio.Prefix,
		PublicURL: cfg.Minio.PublicURL,
		UseSSL:    cfg.Minio.UseSSL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize MinIO storage")
	}
	logger.Info().Str("bucket", cfg.Minio.Bucket).Msg("Initialized MinIO storage")

	repos := repository.NewRepositories(db)
	atomic := repository.NewAtomic(db)

	if cfg.Seed.CSVPath != "" {
		if err := seed.ImportCSV(context.Background(), repos.Semlor, cfg.Seed.CSVPath); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Seed.CSVPath).Msg("Seed import failed")
		}
	}

	semlaService := service.NewSemlaService(
		repos,
		atomic,
		uploader,
		redisCache,
		kafkaProducer,
		cfg.Limits.DailyCreationCap,
		cfg.Limits.DailyRatingCap,
	)

	semlaHandler := handler.NewSemlaHandler(semlaService)
	router := handler.SetupRoutes(semlaHandler, handler.RouterConfig{
		TrustedProxies: cfg.Server.TrustedProxies,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	scheduler := processor.NewCronScheduler(repos.Trackers, cfg.Cleanup.RetentionDays)
	if err := scheduler.Start(context.Background(), cfg.Cleanup.Schedule); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start cron scheduler")
	}
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("Starting Semla Service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Semla Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Semla Service stopped gracefully")
}

func connectDatabase(dsn string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var db *gorm.DB
	var err error

	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else {
				pingErr := sqlDB.Ping()
				if pingErr != nil {
					err = pingErr
				} else {
					sqlDB.SetMaxOpenConns(25)
					sqlDB.SetMaxIdleConns(5)
					sqlDB.SetConnMaxLifetime(5 * time.Minute)
					sqlDB.SetConnMaxIdleTime(1 * time.Minute)
					return db, nil
				}
			}
		}
		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to database, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after 10 attempts: %w", err)
}
