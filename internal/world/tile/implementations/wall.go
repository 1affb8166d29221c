package implementations

import "github.com/annel0/tileworld/internal/world/tile"

// WallBehavior – стена постройки
type WallBehavior struct{}

// ID возвращает идентификатор тайла
func (b *WallBehavior) ID() tile.ID {
	return tile.WallID
}

// Name возвращает имя тайла
func (b *WallBehavior) Name() string {
	return "Wall"
}

// IsSolid возвращает true
func (b *WallBehavior) IsSolid() bool {
	return true
}
