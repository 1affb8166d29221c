package tile

import "fmt"

// ID представляет идентификатор типа тайла
type ID uint16

// Константы ID тайлов
const (
	// Базовые типы
	AirID   ID = iota // 0 - пустая клетка
	StoneID           // 1
	GrassID           // 2
	WaterID           // 3
	SandID            // 4
	DirtID            // 5

	// Декоративные тайлы (начиная с 100)
	TreeID   ID = 100
	CactusID ID = 101

	// Постройки (начиная с 200)
	WallID ID = 200
)

// Behavior описывает тип тайла
type Behavior interface {
	ID() ID
	Name() string
	// IsSolid сообщает, блокирует ли тайл движение сущностей
	IsSolid() bool
}

var registry = make(map[ID]Behavior)

// Register добавляет тип тайла в реестр.
// Повторная регистрация того же ID - ошибка программиста.
func Register(behavior Behavior) {
	if existing, ok := registry[behavior.ID()]; ok {
		panic(fmt.Sprintf("tile: ID %d уже занят типом %s", behavior.ID(), existing.Name()))
	}
	registry[behavior.ID()] = behavior
}

// Get возвращает тип тайла по ID
func Get(id ID) (Behavior, bool) {
	behavior, exists := registry[id]
	return behavior, exists
}

// IsValid проверяет, зарегистрирован ли ID
func IsValid(id ID) bool {
	_, exists := registry[id]
	return exists
}

// IsSolid проверяет, твёрдый ли тайл. Незарегистрированный ID считается проходимым.
func IsSolid(id ID) bool {
	behavior, exists := registry[id]
	return exists && behavior.IsSolid()
}

func (id ID) String() string {
	if behavior, ok := registry[id]; ok {
		return behavior.Name()
	}
	return fmt.Sprintf("tile#%d", uint16(id))
}
