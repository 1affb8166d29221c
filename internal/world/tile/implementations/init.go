package implementations

import "github.com/annel0/tileworld/internal/world/tile"

// Регистрируем все типы тайлов при импорте пакета
func init() {
	// Базовые тайлы
	tile.Register(&AirBehavior{})
	tile.Register(&StoneBehavior{})
	tile.Register(&GrassBehavior{})
	tile.Register(&WaterBehavior{})
	tile.Register(&SandBehavior{})
	tile.Register(&DirtBehavior{})

	// Декоративные и постройки
	tile.Register(&TreeBehavior{})
	tile.Register(&CactusBehavior{})
	tile.Register(&WallBehavior{})
}
