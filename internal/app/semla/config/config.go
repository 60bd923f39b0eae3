package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Minio    MinioConfig
	Limits   LimitsConfig
	Cleanup  CleanupConfig
	Seed     SeedConfig
}

type ServerConfig struct {
	Host string // Адрес хоста (по умолчанию 0.0.0.0)
	Port string // Порт сервера (по умолчанию 8080)
	// Доверенные прокси: только их X-Forwarded-For учитывается при
	// определении адреса клиента для рейт-лимита
	TrustedProxies []string
	AllowedOrigins []string // CORS origins фронтенда
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string // Список брокеров Kafka (формат: host:port)
	Topic   string   // Топик для событий SEMLA_CREATED / RATING_CREATED
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string // Префикс ключей объектов, по умолчанию images
	PublicURL string // База публичных URL картинок
	UseSSL    bool
}

type LimitsConfig struct {
	DailyCreationCap int // Лимит созданий семлор на идентичность в день
	DailyRatingCap   int // Лимит оценок на идентичность в день
}

type CleanupConfig struct {
	Schedule      string // Cron-расписание чистки счётчиков
	RetentionDays int    // Сколько дней хранить строки счётчиков
}

type SeedConfig struct {
	CSVPath string // Путь к файлу semlor.csv, пусто - импорт отключён
}

func Load() (*Config, error) {
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	creationCap, err := strconv.Atoi(getEnv("DAILY_CREATION_CAP", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DAILY_CREATION_CAP: %w", err)
	}

	ratingCap, err := strconv.Atoi(getEnv("DAILY_RATING_CAP", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DAILY_RATING_CAP: %w", err)
	}

	retentionDays, err := strconv.Atoi(getEnv("TRACKER_RETENTION_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRACKER_RETENTION_DAYS: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			TrustedProxies: splitEnv("TRUSTED_PROXIES", ""),
			AllowedOrigins: splitEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "semelfinder"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers: splitEnv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getEnv("KAFKA_TOPIC", "semla_events"),
		},
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "semla-images"),
			Prefix:    getEnv("MINIO_PREFIX", "images"),
			PublicURL: getEnv("MINIO_PUBLIC_URL", "http://localhost:9000/semla-images"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		},
		Limits: LimitsConfig{
			DailyCreationCap: creationCap,
			DailyRatingCap:   ratingCap,
		},
		Cleanup: CleanupConfig{
			Schedule:      getEnv("CLEANUP_SCHEDULE", "0 3 * * *"),
			RetentionDays: retentionDays,
		},
		Seed: SeedConfig{
			CSVPath: getEnv("SEED_CSV_PATH", ""),
		},
	}, nil
}

func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
