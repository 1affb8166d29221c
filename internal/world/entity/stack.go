package entity

import (
	"github.com/annel0/tileworld/internal/physics"
	"github.com/annel0/tileworld/internal/vec"
)

// Stack - составная сущность из упорядоченных слоёв (снизу вверх).
// Все слои занимают позицию стопки; в коллизиях участвуют по StackBehavior своих типов.
type Stack struct {
	*Entity
	layers []*Entity
}

// NewStack создаёт стопку типа kind в позиции position
func NewStack(id uint64, kind *Type, position vec.Vec2Float, layers ...*Entity) *Stack {
	if kind == nil {
		kind = StackType
	}
	s := &Stack{Entity: newEntity(id, kind, position)}
	for _, l := range layers {
		s.Push(l)
	}
	return s
}

// Push кладёт слой поверх стопки
func (s *Stack) Push(layer *Entity) {
	layer.position = s.position
	s.layers = append(s.layers, layer)
}

// Layers возвращает слои снизу вверх
func (s *Stack) Layers() []*Entity { return s.layers }

// SetPosition двигает стопку вместе со слоями
func (s *Stack) SetPosition(p vec.Vec2Float) {
	s.position = p
	for _, l := range s.layers {
		l.position = p
	}
}

// AABB - объединение хитбоксов слоёв; пустая стопка использует правило своего типа
func (s *Stack) AABB() physics.AABB {
	if len(s.layers) == 0 {
		return s.Entity.AABB()
	}
	box := s.layers[0].AABB()
	for _, l := range s.layers[1:] {
		box = box.Union(l.AABB())
	}
	return box
}

// IsImmovable - стопка неподвижна, если неподвижен её тип или любой слой.
// Слои делят одну позицию, поэтому это же правило действует для каждой цели коллизий стопки.
func (s *Stack) IsImmovable() bool {
	if s.kind.Immovable {
		return true
	}
	for _, l := range s.layers {
		if l.kind.Immovable {
			return true
		}
	}
	return false
}

// CollisionTargets раскрывает стопку в цели коллизий.
// Каждый слой решает сам: TopOnly участвует, только если он верхний,
// BottomOnly - только если нижний, PerLayer и Aggregate участвуют всегда.
func (s *Stack) CollisionTargets() []physics.Body {
	targets := make([]physics.Body, 0, len(s.layers))
	last := len(s.layers) - 1
	for i, l := range s.layers {
		switch l.kind.Stack {
		case StackTopOnly:
			if i != last {
				continue
			}
		case StackBottomOnly:
			if i != 0 {
				continue
			}
		}
		targets = append(targets, &layerView{stack: s, layer: l})
	}
	return targets
}

// layerView - слой стопки как самостоятельная цель коллизий.
// Положение, скорость и неподвижность общие со стопкой; хитбокс и коллизия с тайлами - от слоя.
type layerView struct {
	stack *Stack
	layer *Entity
}

func (v *layerView) Position() vec.Vec2Float       { return v.stack.Position() }
func (v *layerView) SetPosition(p vec.Vec2Float)   { v.stack.SetPosition(p) }
func (v *layerView) Velocity() vec.Vec2Float       { return v.stack.Velocity() }
func (v *layerView) SetVelocity(vel vec.Vec2Float) { v.stack.SetVelocity(vel) }
func (v *layerView) SetOnGround(g bool)            { v.stack.SetOnGround(g) }
func (v *layerView) AABB() physics.AABB            { return v.layer.AABB() }
func (v *layerView) IsRemoved() bool               { return v.stack.IsRemoved() || v.layer.IsRemoved() }
func (v *layerView) CollidesWithTiles() bool       { return v.layer.CollidesWithTiles() }
func (v *layerView) IsImmovable() bool             { return v.stack.IsImmovable() }
func (v *layerView) Owner() physics.Body           { return v.stack }

// OnEntityCollision уведомляет и слой, и стопку
func (v *layerView) OnEntityCollision(other physics.Body) {
	v.layer.OnEntityCollision(other)
	v.stack.OnEntityCollision(other)
}
