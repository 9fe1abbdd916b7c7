package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/tender-portal/internal/notification"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

const (
	keyPrefix  = "notification:job:"
	DefaultTTL = 7 * 24 * time.Hour
)

// RedisStore хранит итоги рассылок в Redis в виде JSON с ограниченным сроком жизни.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient создаёт клиента и проверяет соединение.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось подключиться к Redis")
	}
	return client, nil
}

func (s *RedisStore) Save(ctx context.Context, report notification.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать рассылку")
	}
	if err := s.client.Set(ctx, key(report.JobID), raw, s.ttl).Err(); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сохранить рассылку")
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, jobID uuid.UUID) (*notification.Report, error) {
	raw, err := s.client.Get(ctx, key(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить рассылку")
	}

	var report notification.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "повреждённые данные рассылки")
	}
	return &report, nil
}

func key(jobID uuid.UUID) string {
	return keyPrefix + jobID.String()
}
