package util

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"semelfinder/internal/app/semla/entity"
	"semelfinder/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const semlorCacheKey = "semlor:all"

const serviceName = "semla"

// SemlaCache интерфейс кеша списка семлор
// Используется для dependency injection и упрощения тестирования
type SemlaCache interface {
	SetSemlor(ctx context.Context, semlor []entity.SemlaWithImages, ttl time.Duration) error
	GetSemlor(ctx context.Context) ([]entity.SemlaWithImages, error)
	DeleteSemlor(ctx context.Context) error
	Close() error
}

type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

func (r *RedisClient) SetSemlor(ctx context.Context, semlor []entity.SemlaWithImages, ttl time.Duration) error {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpSet)
	defer timer.ObserveDuration()

	data, err := json.Marshal(semlor)
	if err != nil {
		return fmt.Errorf("failed to marshal semlor: %w", err)
	}

	if err := r.client.Set(ctx, semlorCacheKey, data, ttl).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpSet)
		return fmt.Errorf("failed to set semlor in cache: %w", err)
	}

	return nil
}

func (r *RedisClient) GetSemlor(ctx context.Context) ([]entity.SemlaWithImages, error) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpGet)
	defer timer.ObserveDuration()

	data, err := r.client.Get(ctx, semlorCacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.RecordCacheMiss(serviceName, "semlor")
			return nil, nil
		}
		metrics.RecordRedisError(serviceName, metrics.RedisOpGet)
		return nil, fmt.Errorf("failed to get semlor from cache: %w", err)
	}

	var semlor []entity.SemlaWithImages
	if err := json.Unmarshal(data, &semlor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal semlor: %w", err)
	}

	metrics.RecordCacheHit(serviceName, "semlor")
	return semlor, nil
}

func (r *RedisClient) DeleteSemlor(ctx context.Context) error {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpDel)
	defer timer.ObserveDuration()

	if err := r.client.Del(ctx, semlorCacheKey).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpDel)
		return fmt.Errorf("failed to delete semlor from cache: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
