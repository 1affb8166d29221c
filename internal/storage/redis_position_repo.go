package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/go-redis/redis/v8"
)

// RedisPositionRepo хранит позиции сущностей в Redis
type RedisPositionRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей; 0 - без истечения
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "tileworld:pos:",
		TTL:       24 * time.Hour,
	}
}

// redisPosition - запись позиции в Redis
type redisPosition struct {
	Position  vec.Vec2Float `json:"position"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewRedisPositionRepo подключается к Redis и проверяет соединение
func NewRedisPositionRepo(config *RedisConfig) (*RedisPositionRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	logging.GetStorageLogger().Info("🔴 Подключено к Redis %s", config.Addr)
	return &RedisPositionRepo{
		client:    client,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}, nil
}

func (r *RedisPositionRepo) key(entityID uint64) string {
	return r.keyPrefix + strconv.FormatUint(entityID, 10)
}

// Save сохраняет позицию сущности
func (r *RedisPositionRepo) Save(ctx context.Context, entityID uint64, pos vec.Vec2Float) error {
	if err := validatePosition(entityID, pos); err != nil {
		return err
	}

	data, err := json.Marshal(redisPosition{Position: pos, UpdatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("ошибка сериализации позиции: %w", err)
	}
	if err := r.client.Set(ctx, r.key(entityID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка сохранения позиции сущности %d в Redis: %w", entityID, err)
	}
	return nil
}

// Load загружает позицию сущности
func (r *RedisPositionRepo) Load(ctx context.Context, entityID uint64) (vec.Vec2Float, bool, error) {
	if entityID == 0 {
		return vec.Vec2Float{}, false, fmt.Errorf("%w: %d", ErrInvalidEntityID, entityID)
	}

	data, err := r.client.Get(ctx, r.key(entityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return vec.Vec2Float{}, false, nil
	}
	if err != nil {
		return vec.Vec2Float{}, false, fmt.Errorf("ошибка чтения позиции сущности %d из Redis: %w", entityID, err)
	}

	var rec redisPosition
	if err := json.Unmarshal(data, &rec); err != nil {
		return vec.Vec2Float{}, false, fmt.Errorf("ошибка десериализации позиции сущности %d: %w", entityID, err)
	}
	return rec.Position, true, nil
}

// Delete удаляет сохраненную позицию
func (r *RedisPositionRepo) Delete(ctx context.Context, entityID uint64) error {
	if entityID == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidEntityID, entityID)
	}

	n, err := r.client.Del(ctx, r.key(entityID)).Result()
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции сущности %d из Redis: %w", entityID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: сущность %d", ErrPositionNotFound, entityID)
	}
	return nil
}

// BatchSave сохраняет позиции одним pipeline
func (r *RedisPositionRepo) BatchSave(ctx context.Context, positions map[uint64]vec.Vec2Float) error {
	if len(positions) == 0 {
		return nil
	}

	now := time.Now()
	pipe := r.client.Pipeline()
	for entityID, pos := range positions {
		if err := validatePosition(entityID, pos); err != nil {
			return err
		}
		data, err := json.Marshal(redisPosition{Position: pos, UpdatedAt: now})
		if err != nil {
			return fmt.Errorf("ошибка сериализации позиции: %w", err)
		}
		pipe.Set(ctx, r.key(entityID), data, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка записи batch в Redis: %w", err)
	}
	return nil
}

// Close закрывает клиент Redis
func (r *RedisPositionRepo) Close() error {
	return r.client.Close()
}
