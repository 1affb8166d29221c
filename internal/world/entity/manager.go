package entity

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/annel0/tileworld/internal/vec"
)

var (
	ErrUnknownType = errors.New("неизвестный тип сущности")
	ErrTypeExists  = errors.New("тип сущности уже зарегистрирован")
)

// Manager хранит реестр типов сущностей и выдаёт уникальные ID
type Manager struct {
	types  map[string]*Type // Реестр типов по имени
	nextID uint64           // Счетчик для генерации ID
	mu     sync.RWMutex     // Мьютекс для безопасного доступа к реестру
}

// NewManager создаёт менеджер со встроенными типами
func NewManager() *Manager {
	m := &Manager{types: make(map[string]*Type)}
	m.RegisterDefaultTypes()
	return m
}

// RegisterDefaultTypes регистрирует встроенные типы сущностей
func (m *Manager) RegisterDefaultTypes() {
	for _, t := range []*Type{Player, Animal, Crate, Boulder, Ghost, StackType} {
		// Повторная регистрация встроенных типов безопасна
		_ = m.RegisterType(t)
	}
}

// RegisterType регистрирует тип сущности
func (m *Manager) RegisterType(t *Type) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.types[t.Name]; exists {
		return fmt.Errorf("%w: %s", ErrTypeExists, t.Name)
	}
	m.types[t.Name] = t
	return nil
}

// LookupType возвращает тип по имени
func (m *Manager) LookupType(name string) (*Type, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.types[name]
	return t, ok
}

// TypeNames возвращает отсортированные имена зарегистрированных типов
func (m *Manager) TypeNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.types))
	for name := range m.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextID выдаёт новый уникальный ID сущности
func (m *Manager) NextID() uint64 {
	return atomic.AddUint64(&m.nextID, 1)
}

// Spawn создаёт сущность зарегистрированного типа. В мир она не добавляется.
func (m *Manager) Spawn(typeName string, position vec.Vec2Float) (*Entity, error) {
	t, ok := m.LookupType(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	return t.New(m.NextID(), position), nil
}

// SpawnStack создаёт стопку из слоёв указанных типов (снизу вверх)
func (m *Manager) SpawnStack(position vec.Vec2Float, layerTypes ...string) (*Stack, error) {
	stack := NewStack(m.NextID(), StackType, position)
	for _, name := range layerTypes {
		layer, err := m.Spawn(name, position)
		if err != nil {
			return nil, fmt.Errorf("слой стопки: %w", err)
		}
		stack.Push(layer)
	}
	return stack, nil
}

var defaultManager = NewManager()

// RegisterType регистрирует тип в менеджере по умолчанию
func RegisterType(t *Type) error { return defaultManager.RegisterType(t) }

// LookupType ищет тип в менеджере по умолчанию
func LookupType(name string) (*Type, bool) { return defaultManager.LookupType(name) }

// Default возвращает менеджер по умолчанию
func Default() *Manager { return defaultManager }
