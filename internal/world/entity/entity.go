package entity

import (
	"github.com/annel0/tileworld/internal/physics"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/google/uuid"
)

// Object - то, что хранит мир: обычная сущность или стопка
type Object interface {
	physics.Body
	// Base возвращает общую часть сущности (ID, тип, состояние)
	Base() *Entity
}

// Entity представляет базовую сущность в мире.
// Позиция - минимальный угол хитбокса в координатах тайлов.
type Entity struct {
	ID       uint64                 // Уникальный идентификатор сущности
	Rotation float64                // Поворот в радианах, на коллизии не влияет
	Payload  map[string]interface{} // Дополнительные данные сущности

	kind       *Type
	position   vec.Vec2Float
	velocity   vec.Vec2Float
	onGround   bool
	removed    bool
	world      uuid.UUID // Мир-владелец; uuid.Nil - сущность не в мире
	collisions uint64
}

// newEntity создаёт сущность указанного типа. Используйте Type.New.
func newEntity(id uint64, kind *Type, position vec.Vec2Float) *Entity {
	return &Entity{
		ID:       id,
		Payload:  make(map[string]interface{}),
		kind:     kind,
		position: position,
	}
}

// Base возвращает саму сущность
func (e *Entity) Base() *Entity { return e }

// Type возвращает дескриптор типа сущности
func (e *Entity) Type() *Type { return e.kind }

// Position возвращает текущую позицию
func (e *Entity) Position() vec.Vec2Float { return e.position }

// SetPosition устанавливает позицию
func (e *Entity) SetPosition(p vec.Vec2Float) { e.position = p }

// Velocity возвращает скорость в тайлах в секунду
func (e *Entity) Velocity() vec.Vec2Float { return e.velocity }

// SetVelocity устанавливает скорость
func (e *Entity) SetVelocity(v vec.Vec2Float) { e.velocity = v }

// OnGround сообщает, стоит ли сущность на твёрдом тайле после последнего шага
func (e *Entity) OnGround() bool { return e.onGround }

// SetOnGround выставляется Resolver'ом
func (e *Entity) SetOnGround(g bool) { e.onGround = g }

// AABB строит хитбокс из позиции по правилу типа
func (e *Entity) AABB() physics.AABB { return e.kind.box(e.position) }

// IsRemoved сообщает, удалена ли сущность из мира
func (e *Entity) IsRemoved() bool { return e.removed }

// CollidesWithTiles сообщает, учитывает ли сущность твёрдые тайлы
func (e *Entity) CollidesWithTiles() bool { return e.kind.CollidesWithTiles }

// IsImmovable сообщает, что сущность не сдвигается коллизиями
func (e *Entity) IsImmovable() bool { return e.kind.Immovable }

// Collisions возвращает число столкновений с момента создания
func (e *Entity) Collisions() uint64 { return e.collisions }

// OnEntityCollision вызывается Resolver'ом при касании с другой сущностью
func (e *Entity) OnEntityCollision(other physics.Body) {
	e.collisions++
	if e.kind.OnCollision != nil {
		e.kind.OnCollision(e, other)
	}
}

// World возвращает мир-владелец (uuid.Nil, если сущность не добавлена)
func (e *Entity) World() uuid.UUID { return e.world }

// Attach привязывает сущность к миру. Вызывается только миром.
func (e *Entity) Attach(world uuid.UUID) { e.world = world }

// Remove помечает сущность удалённой и отвязывает от мира. Удаление необратимо.
func (e *Entity) Remove() {
	e.removed = true
	e.world = uuid.Nil
}
