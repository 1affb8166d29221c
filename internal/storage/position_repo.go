package storage

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/annel0/tileworld/internal/vec"
)

var (
	ErrInvalidEntityID  = errors.New("недействительный ID сущности")
	ErrInvalidPosition  = errors.New("недействительная позиция")
	ErrPositionNotFound = errors.New("позиция не найдена")
)

// PositionRepo определяет интерфейс для сохранения и загрузки позиций сущностей.
// Позиция - минимальный угол хитбокса в координатах тайлов.
type PositionRepo interface {
	// Save сохраняет позицию сущности
	Save(ctx context.Context, entityID uint64, pos vec.Vec2Float) error

	// Load загружает позицию сущности.
	// Возвращает false без ошибки, если позиция не сохранялась.
	Load(ctx context.Context, entityID uint64) (vec.Vec2Float, bool, error)

	// Delete удаляет сохраненную позицию (ErrPositionNotFound, если её нет)
	Delete(ctx context.Context, entityID uint64) error

	// BatchSave сохраняет позиции нескольких сущностей одновременно (для автосохранения)
	BatchSave(ctx context.Context, positions map[uint64]vec.Vec2Float) error

	// Close освобождает соединения
	Close() error
}

// validatePosition проверяет запись перед сохранением
func validatePosition(entityID uint64, pos vec.Vec2Float) error {
	if entityID == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidEntityID, entityID)
	}
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) {
		return fmt.Errorf("%w для сущности %d: %v", ErrInvalidPosition, entityID, pos)
	}
	return nil
}

// NewPositionRepo создаёт репозиторий по имени бэкенда: memory, mysql или redis
func NewPositionRepo(backend, dsn string) (PositionRepo, error) {
	switch backend {
	case "", "memory":
		return NewMemoryPositionRepo(), nil
	case "mysql", "mariadb":
		return NewMariaPositionRepo(dsn)
	case "redis":
		cfg := DefaultRedisConfig()
		if dsn != "" {
			cfg.Addr = dsn
		}
		return NewRedisPositionRepo(cfg)
	default:
		return nil, fmt.Errorf("неизвестный бэкенд позиций: %q", backend)
	}
}
