package physics

import "github.com/annel0/tileworld/internal/vec"

// TileDescriptor - минимальное описание тайла, нужное для коллизий
type TileDescriptor interface {
	IsSolid() bool
}

// Body - набор возможностей сущности, с которыми работает Resolver.
// Позиция - минимальный угол AABB; AABB вычисляется из позиции правилом типа сущности.
type Body interface {
	Position() vec.Vec2Float
	SetPosition(vec.Vec2Float)
	Velocity() vec.Vec2Float
	SetVelocity(vec.Vec2Float)
	SetOnGround(bool)

	AABB() AABB
	IsRemoved() bool
	CollidesWithTiles() bool
	IsImmovable() bool

	// OnEntityCollision вызывается при касании или расталкивании с другой сущностью
	OnEntityCollision(other Body)
}

// Composite реализуется составными сущностями (стопками).
// При запросах коллизий такая сущность раскрывается в свои цели.
type Composite interface {
	CollisionTargets() []Body
}

// Part реализуется целями, принадлежащими составной сущности
type Part interface {
	Owner() Body
}

// Space - то, что Resolver знает о мире
type Space interface {
	// TileAt возвращает тайл; false, если тайла нет или чанк не загружен
	TileAt(pos vec.TilePos) (TileDescriptor, bool)
	// Bodies возвращает все сущности мира в порядке добавления
	Bodies() []Body
}

// Targets раскрывает сущность в набор целей коллизий
func Targets(b Body) []Body {
	if c, ok := b.(Composite); ok {
		return c.CollisionTargets()
	}
	return []Body{b}
}

// ownerOf возвращает владельца цели (саму цель для обычной сущности)
func ownerOf(b Body) Body {
	if p, ok := b.(Part); ok {
		return p.Owner()
	}
	return b
}
