package sim

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/tile"
)

var ErrNotRunning = errors.New("симуляция не запущена")

// EntityStatus - состояние сущности для внешних читателей
type EntityStatus struct {
	ID       uint64        `json:"id"`
	Type     string        `json:"type"`
	Position vec.Vec2Float `json:"position"`
	Velocity vec.Vec2Float `json:"velocity"`
	OnGround bool          `json:"on_ground"`
}

// Status - снимок мира после очередного тика.
// Снимок неизменяем: читатели из других горутин получают его целиком.
type Status struct {
	WorldID  string         `json:"world_id"`
	Tick     uint64         `json:"tick"`
	Chunks   int            `json:"chunks"`
	Entities []EntityStatus `json:"entities"`
	Updated  time.Time      `json:"updated"`
}

// command - действие, выполняемое в горутине симуляции между тиками
type command struct {
	apply func(s *Simulation) error
	done  chan error
}

type statusHolder struct {
	current  atomic.Pointer[Status]
	running  atomic.Bool
	commands chan command
}

// Status возвращает последний снимок мира
func (s *Simulation) Status() Status {
	if st := s.status.current.Load(); st != nil {
		return *st
	}
	return Status{WorldID: s.world.ID().String()}
}

// refreshStatus строит новый снимок. Вызывается из горутины симуляции.
func (s *Simulation) refreshStatus() {
	objs := s.world.Entities()
	entities := make([]EntityStatus, 0, len(objs))
	for _, obj := range objs {
		base := obj.Base()
		entities = append(entities, EntityStatus{
			ID:       base.ID,
			Type:     base.Type().Name,
			Position: obj.Position(),
			Velocity: obj.Velocity(),
			OnGround: base.OnGround(),
		})
	}

	s.status.current.Store(&Status{
		WorldID:  s.world.ID().String(),
		Tick:     s.world.CurrentTick(),
		Chunks:   len(s.world.Chunks()),
		Entities: entities,
		Updated:  time.Now(),
	})
}

// RequestSetTile ставит смену тайла в очередь симуляции и ждёт результата.
// Безопасно вызывать из любой горутины, пока работает Run.
func (s *Simulation) RequestSetTile(ctx context.Context, pos vec.TilePos, id tile.ID) error {
	return s.submit(ctx, func(s *Simulation) error { return s.SetTile(pos, id) })
}

func (s *Simulation) submit(ctx context.Context, apply func(s *Simulation) error) error {
	if !s.status.running.Load() {
		return ErrNotRunning
	}

	cmd := command{apply: apply, done: make(chan error, 1)}
	select {
	case s.status.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drainCommands выполняет накопленные команды
func (s *Simulation) drainCommands() {
	for {
		select {
		case cmd := <-s.status.commands:
			cmd.done <- cmd.apply(s)
		default:
			return
		}
	}
}
