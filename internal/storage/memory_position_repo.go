package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/annel0/tileworld/internal/vec"
)

// MemoryPositionRepo реализует PositionRepo в памяти.
// Используется, когда внешняя БД не настроена, и в тестах.
// ВНИМАНИЕ: Данные теряются при перезапуске!
type MemoryPositionRepo struct {
	mu   sync.RWMutex
	data map[uint64]vec.Vec2Float // entityID -> позиция
}

// NewMemoryPositionRepo создает новый репозиторий позиций в памяти
func NewMemoryPositionRepo() *MemoryPositionRepo {
	return &MemoryPositionRepo{
		data: make(map[uint64]vec.Vec2Float),
	}
}

// Save сохраняет позицию сущности в памяти
func (r *MemoryPositionRepo) Save(ctx context.Context, entityID uint64, pos vec.Vec2Float) error {
	if err := validatePosition(entityID, pos); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[entityID] = pos
	return nil
}

// Load загружает позицию сущности из памяти
func (r *MemoryPositionRepo) Load(ctx context.Context, entityID uint64) (vec.Vec2Float, bool, error) {
	if entityID == 0 {
		return vec.Vec2Float{}, false, fmt.Errorf("%w: %d", ErrInvalidEntityID, entityID)
	}
	if err := ctx.Err(); err != nil {
		return vec.Vec2Float{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, exists := r.data[entityID]
	return pos, exists, nil
}

// Delete удаляет сохраненную позицию из памяти
func (r *MemoryPositionRepo) Delete(ctx context.Context, entityID uint64) error {
	if entityID == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidEntityID, entityID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[entityID]; !exists {
		return fmt.Errorf("%w: сущность %d", ErrPositionNotFound, entityID)
	}

	delete(r.data, entityID)
	return nil
}

// BatchSave сохраняет позиции нескольких сущностей; при ошибке валидации не сохраняет ничего
func (r *MemoryPositionRepo) BatchSave(ctx context.Context, positions map[uint64]vec.Vec2Float) error {
	if len(positions) == 0 {
		return nil // Нечего сохранять
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Валидация всех записей перед сохранением
	for entityID, pos := range positions {
		if err := validatePosition(entityID, pos); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for entityID, pos := range positions {
		r.data[entityID] = pos
	}
	return nil
}

// Close ничего не делает
func (r *MemoryPositionRepo) Close() error { return nil }

// Count возвращает количество сохраненных позиций
func (r *MemoryPositionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
