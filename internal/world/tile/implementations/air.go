package implementations

import "github.com/annel0/tileworld/internal/world/tile"

// AirBehavior - пустая клетка. Чанк хранит её как отсутствие тайла.
type AirBehavior struct{}

// ID возвращает идентификатор тайла
func (b *AirBehavior) ID() tile.ID {
	return tile.AirID
}

// Name возвращает имя тайла
func (b *AirBehavior) Name() string {
	return "Air"
}

// IsSolid возвращает false, сквозь воздух можно пройти
func (b *AirBehavior) IsSolid() bool {
	return false
}
