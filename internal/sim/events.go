package sim

import (
	"context"

	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/physics"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/entity"
)

const eventSource = "sim"

type entityEvent struct {
	ID   uint64  `json:"id"`
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type collisionEvent struct {
	ID    uint64 `json:"id"`
	Other uint64 `json:"other"`
}

type chunkEvent struct {
	X      int32  `json:"x"`
	Z      int32  `json:"z"`
	Source string `json:"source"`
}

type tilePayload struct {
	X  int32  `json:"x"`
	Y  int32  `json:"y"`
	ID uint16 `json:"id"`
}

type savePayload struct {
	Chunks   int `json:"chunks"`
	Entities int `json:"entities"`
}

func entityPayload(obj entity.Object) entityEvent {
	base := obj.Base()
	pos := obj.Position()
	return entityEvent{ID: base.ID, Type: base.Type().Name, X: pos.X, Y: pos.Y}
}

// publish отправляет событие мира; ошибки шины только логируются
func (s *Simulation) publish(eventType string, payload interface{}) {
	ev, err := eventbus.NewEnvelope(eventType, eventSource, payload)
	if err != nil {
		s.log.Error("Событие %s: %v", eventType, err)
		return
	}
	if s.world != nil {
		ev.WorldID = s.world.ID().String()
		ev.Tick = s.world.CurrentTick()
	}
	if eventType == eventbus.WorldSaved {
		ev.Priority = 9
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn("Событие %s не опубликовано: %v", eventType, err)
	}
}

// publishingSource оборачивает источник чанков публикацией ChunkLoaded
func (s *Simulation) publishingSource(src world.ChunkSource) world.ChunkSource {
	return func(c *world.Chunk) string {
		name := src(c)
		s.publish(eventbus.ChunkLoaded, chunkEvent{X: c.Pos.X, Z: c.Pos.Z, Source: name})
		return name
	}
}

// onCollision публикует касание игрока с другой сущностью
func (s *Simulation) onCollision(self *entity.Entity, other physics.Body) {
	s.publish(eventbus.EntityCollision, collisionEvent{ID: self.ID, Other: bodyID(other)})
}

// bodyID возвращает ID сущности-владельца тела (0, если тело не сущность)
func bodyID(b physics.Body) uint64 {
	if part, ok := b.(physics.Part); ok {
		b = part.Owner()
	}
	if obj, ok := b.(entity.Object); ok {
		return obj.Base().ID
	}
	return 0
}
