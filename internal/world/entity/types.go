package entity

import (
	"math"
	"math/rand"

	"github.com/annel0/tileworld/internal/physics"
	"github.com/annel0/tileworld/internal/vec"
)

// StackBehavior определяет участие слоя стопки в коллизиях
type StackBehavior uint8

const (
	StackPerLayer   StackBehavior = iota // Каждый слой участвует отдельно (по умолчанию)
	StackTopOnly                         // Участвует только верхний (последний) слой
	StackBottomOnly                      // Участвует только нижний (первый) слой
	StackAggregate                       // Участвуют все слои
)

func (s StackBehavior) String() string {
	switch s {
	case StackTopOnly:
		return "top_only"
	case StackBottomOnly:
		return "bottom_only"
	case StackAggregate:
		return "aggregate"
	default:
		return "per_layer"
	}
}

// Type описывает тип сущности: размеры, флаги коллизий и хуки поведения
type Type struct {
	Name              string
	Size              vec.Vec2Float // Размер хитбокса (ширина, высота)
	Ticks             bool          // Получает ли сущность обновления каждый тик
	CollidesWithTiles bool
	Immovable         bool
	Stack             StackBehavior // Поведение, когда сущность - слой стопки

	// Box переопределяет правило построения хитбокса из позиции
	Box func(pos vec.Vec2Float) physics.AABB
	// Update вызывается миром перед перемещением: здесь задаётся скорость на тик
	Update func(e *Entity, dt float64)
	// OnCollision вызывается при касании с другой сущностью
	OnCollision func(self *Entity, other physics.Body)
}

// New создаёт сущность этого типа
func (t *Type) New(id uint64, position vec.Vec2Float) *Entity {
	return newEntity(id, t, position)
}

// box строит хитбокс с минимальным углом в позиции
func (t *Type) box(pos vec.Vec2Float) physics.AABB {
	if t.Box != nil {
		return t.Box(pos)
	}
	return physics.BoxAt(pos, t.Size.X, t.Size.Y)
}

// UnitBox - правило хитбокса тайловых сущностей: клетка 1x1 от позиции
func UnitBox(pos vec.Vec2Float) physics.AABB {
	return physics.BoxAt(pos, 1, 1)
}

// Встроенные типы сущностей
var (
	// Player управляется вводом: скорость выставляет внешняя логика
	Player = &Type{
		Name:              "player",
		Size:              vec.Vec2Float{X: 0.8, Y: 0.8},
		Ticks:             true,
		CollidesWithTiles: true,
	}

	// Animal бродит случайно, см. Wander
	Animal = &Type{
		Name:              "animal",
		Size:              vec.Vec2Float{X: 0.9, Y: 0.9},
		Ticks:             true,
		CollidesWithTiles: true,
	}

	// Crate - тайловая сущность: занимает клетку, не двигается и не тикает
	Crate = &Type{
		Name:      "crate",
		Size:      vec.Vec2Float{X: 1, Y: 1},
		Immovable: true,
		Box:       UnitBox,
	}

	// Boulder - тяжёлый неподвижный объект, который всё же получает тики
	Boulder = &Type{
		Name:              "boulder",
		Size:              vec.Vec2Float{X: 2, Y: 2},
		Ticks:             true,
		CollidesWithTiles: true,
		Immovable:         true,
	}

	// Ghost проходит сквозь тайлы, но расталкивается с сущностями
	Ghost = &Type{
		Name:  "ghost",
		Size:  vec.Vec2Float{X: 0.8, Y: 0.8},
		Ticks: true,
	}

	// StackType - тип стопки по умолчанию
	StackType = &Type{
		Name:              "stack",
		Size:              vec.Vec2Float{X: 1, Y: 1},
		Ticks:             true,
		CollidesWithTiles: true,
	}
)

// Wander возвращает хук Update, который раз в period секунд
// выбирает случайное направление со скоростью speed
func Wander(rng *rand.Rand, speed, period float64) func(e *Entity, dt float64) {
	return func(e *Entity, dt float64) {
		left, _ := e.Payload["wanderLeft"].(float64)
		left -= dt
		if left > 0 {
			e.Payload["wanderLeft"] = left
			return
		}
		e.Payload["wanderLeft"] = period

		// Треть времени животное стоит на месте
		if rng.Float64() < 1.0/3.0 {
			e.SetVelocity(vec.Vec2Float{})
			return
		}
		angle := rng.Float64() * 2 * math.Pi
		e.Rotation = angle
		e.SetVelocity(vec.Vec2Float{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed})
	}
}
