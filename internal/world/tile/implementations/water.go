package implementations

import "github.com/annel0/tileworld/internal/world/tile"

// WaterBehavior реализует тайл воды.
// Вода проходима: плавание и замедление относятся к поведению сущностей, а не к коллизиям.
type WaterBehavior struct{}

// ID возвращает идентификатор тайла
func (b *WaterBehavior) ID() tile.ID {
	return tile.WaterID
}

// Name возвращает имя тайла
func (b *WaterBehavior) Name() string {
	return "Water"
}

// IsSolid возвращает false
func (b *WaterBehavior) IsSolid() bool {
	return false
}
