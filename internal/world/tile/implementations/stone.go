package implementations

import "github.com/annel0/tileworld/internal/world/tile"

// StoneBehavior реализует тайл камня
type StoneBehavior struct{}

// ID возвращает идентификатор тайла
func (b *StoneBehavior) ID() tile.ID {
	return tile.StoneID
}

// Name возвращает имя тайла
func (b *StoneBehavior) Name() string {
	return "Stone"
}

// IsSolid возвращает true, камень непроходим
func (b *StoneBehavior) IsSolid() bool {
	return true
}
