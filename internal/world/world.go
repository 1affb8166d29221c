package world

import (
	"errors"
	"fmt"
	"time"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/metrics"
	"github.com/annel0/tileworld/internal/physics"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/entity"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/google/uuid"
)

var (
	ErrChunkNotLoaded     = errors.New("чанк не загружен")
	ErrEntityRemoved      = errors.New("сущность удалена")
	ErrEntityAlreadyAdded = errors.New("сущность уже добавлена в мир")
)

// ChunkSource заполняет только что созданный чанк.
// Возвращает имя источника для метрик (например, "generator" или "storage").
type ChunkSource func(c *Chunk) string

// TickStats - итоги одного тика
type TickStats struct {
	Tick       uint64
	Moved      int // Перемещённых сущностей
	Collisions int
	Pushes     int
	Duration   time.Duration
}

// Option настраивает World при создании
type Option func(*World)

// WithChunkSource задаёт колбэк генерации/загрузки чанков
func WithChunkSource(src ChunkSource) Option {
	return func(w *World) { w.source = src }
}

// WithResolver задаёт Resolver с нестандартными параметрами
func WithResolver(r *physics.Resolver) Option {
	return func(w *World) { w.resolver = r }
}

// WithMetrics включает Prometheus-метрики мира
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *World) { w.metrics = m }
}

// WithLogger задаёт логгер мира
func WithLogger(l *logging.Logger) Option {
	return func(w *World) { w.log = l }
}

// World хранит чанки тайлов и плоский список сущностей.
// Не потокобезопасен: мир принадлежит одной горутине тиков.
type World struct {
	id       uuid.UUID
	chunks   map[vec.ChunkPos]*Chunk
	entities []entity.Object // Все сущности в порядке добавления
	ticking  []entity.Object // Подмножество entities, чей тип получает тики
	bodies   []physics.Body  // Кэш entities для Resolver; nil - перестроить
	byID     map[uint64]entity.Object

	source   ChunkSource
	resolver *physics.Resolver
	metrics  *metrics.Metrics
	log      *logging.Logger
	tick     uint64
}

// New создаёт пустой мир
func New(opts ...Option) *World {
	w := &World{
		id:       uuid.New(),
		chunks:   make(map[vec.ChunkPos]*Chunk),
		byID:     make(map[uint64]entity.Object),
		resolver: physics.NewResolver(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logging.GetWorldLogger()
	}
	return w
}

// ID возвращает идентификатор мира, которым сущности ссылаются на него
func (w *World) ID() uuid.UUID { return w.id }

// CurrentTick возвращает номер последнего обработанного тика
func (w *World) CurrentTick() uint64 { return w.tick }

// Resolver возвращает Resolver мира
func (w *World) Resolver() *physics.Resolver { return w.resolver }

// --- Тайлы и чанки ---

// Chunk возвращает загруженный чанк
func (w *World) Chunk(pos vec.ChunkPos) (*Chunk, bool) {
	c, ok := w.chunks[pos]
	return c, ok
}

// Chunks возвращает все загруженные чанки (порядок не определён)
func (w *World) Chunks() []*Chunk {
	out := make([]*Chunk, 0, len(w.chunks))
	for _, c := range w.chunks {
		out = append(out, c)
	}
	return out
}

// AddChunk возвращает чанк, создавая его при необходимости.
// Новый чанк заполняется источником чанков, если он задан.
func (w *World) AddChunk(pos vec.ChunkPos) *Chunk {
	if c, ok := w.chunks[pos]; ok {
		return c
	}

	c := NewChunk(pos)
	source := "empty"
	if w.source != nil {
		source = w.source(c)
	}
	w.chunks[pos] = c

	w.metrics.ChunkLoaded(source, len(w.chunks))
	w.log.Debug("📦 Чанк %s загружен (%s, %d тайлов)", pos, source, c.Count())
	return c
}

// LoadArea загружает квадрат чанков радиуса radius вокруг center
func (w *World) LoadArea(center vec.ChunkPos, radius int) int {
	loaded := 0
	r := int32(radius)
	for x := center.X - r; x <= center.X+r; x++ {
		for z := center.Z - r; z <= center.Z+r; z++ {
			pos := vec.ChunkPos{X: x, Z: z}
			if _, ok := w.chunks[pos]; ok {
				continue
			}
			w.AddChunk(pos)
			loaded++
		}
	}
	return loaded
}

// TileID возвращает ID тайла; false, если чанк не загружен или клетка пуста
func (w *World) TileID(pos vec.TilePos) (tile.ID, bool) {
	c, ok := w.chunks[pos.ChunkPos()]
	if !ok {
		return tile.AirID, false
	}
	return c.Get(pos)
}

// Tile возвращает тип тайла; false, если тайла нет или чанк не загружен
func (w *World) Tile(pos vec.TilePos) (tile.Behavior, bool) {
	id, ok := w.TileID(pos)
	if !ok {
		return nil, false
	}
	return tile.Get(id)
}

// SetTile записывает тайл; AirID очищает клетку.
// Чанк должен быть загружен заранее через AddChunk.
func (w *World) SetTile(pos vec.TilePos, id tile.ID) error {
	c, ok := w.chunks[pos.ChunkPos()]
	if !ok {
		return fmt.Errorf("запись тайла %v: %w: %s", pos, ErrChunkNotLoaded, pos.ChunkPos())
	}
	c.Set(pos, id)
	return nil
}

// TileAt реализует physics.Space
func (w *World) TileAt(pos vec.TilePos) (physics.TileDescriptor, bool) {
	t, ok := w.Tile(pos)
	if !ok {
		return nil, false
	}
	return t, true
}

// --- Сущности ---

// AddEntity добавляет сущность в мир
func (w *World) AddEntity(obj entity.Object) error {
	base := obj.Base()
	if base.IsRemoved() {
		return fmt.Errorf("добавление сущности %d: %w", base.ID, ErrEntityRemoved)
	}
	if _, exists := w.byID[base.ID]; exists || base.World() != uuid.Nil {
		return fmt.Errorf("добавление сущности %d: %w", base.ID, ErrEntityAlreadyAdded)
	}

	base.Attach(w.id)
	w.entities = append(w.entities, obj)
	if base.Type().Ticks {
		w.ticking = append(w.ticking, obj)
	}
	w.byID[base.ID] = obj
	w.bodies = nil

	w.metrics.SetEntities(len(w.entities))
	w.log.Debug("➕ Сущность %d (%s) добавлена в %v", base.ID, base.Type().Name, obj.Position())
	return nil
}

// RemoveEntity удаляет сущность из мира. Удаление необратимо.
// Повторное удаление ничего не делает.
func (w *World) RemoveEntity(obj entity.Object) {
	base := obj.Base()
	if base.IsRemoved() || base.World() != w.id {
		return
	}

	w.entities = removeObject(w.entities, obj)
	w.ticking = removeObject(w.ticking, obj)
	delete(w.byID, base.ID)
	w.bodies = nil
	base.Remove()

	w.metrics.SetEntities(len(w.entities))
	w.log.Debug("➖ Сущность %d (%s) удалена", base.ID, base.Type().Name)
}

// removeObject удаляет obj с сохранением порядка
func removeObject(list []entity.Object, obj entity.Object) []entity.Object {
	for i, o := range list {
		if o == obj {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}

// Entity возвращает сущность по ID
func (w *World) Entity(id uint64) (entity.Object, bool) {
	obj, ok := w.byID[id]
	return obj, ok
}

// Entities возвращает все сущности в порядке добавления. Срез нельзя изменять.
func (w *World) Entities() []entity.Object { return w.entities }

// TickingEntities возвращает тикаемые сущности. Срез нельзя изменять.
func (w *World) TickingEntities() []entity.Object { return w.ticking }

// Bodies реализует physics.Space
func (w *World) Bodies() []physics.Body {
	if w.bodies == nil {
		w.bodies = make([]physics.Body, len(w.entities))
		for i, obj := range w.entities {
			w.bodies[i] = obj
		}
	}
	return w.bodies
}

// EntitiesInBox возвращает живые сущности, чей хитбокс пересекает box
func (w *World) EntitiesInBox(box physics.AABB) []entity.Object {
	var out []entity.Object
	for _, obj := range w.entities {
		if !obj.IsRemoved() && obj.AABB().Intersects(box) {
			out = append(out, obj)
		}
	}
	return out
}

// --- Тик ---

// Tick продвигает мир на dt секунд: для каждой тикаемой сущности по порядку
// вызывает хук Update её типа и перемещает её через Resolver.
func (w *World) Tick(dt float64) TickStats {
	start := time.Now()
	w.tick++
	stats := TickStats{Tick: w.tick}

	// Хуки могут удалять сущности, поэтому обходим копию
	ticking := make([]entity.Object, len(w.ticking))
	copy(ticking, w.ticking)

	for _, obj := range ticking {
		if obj.IsRemoved() {
			continue
		}
		base := obj.Base()
		if update := base.Type().Update; update != nil {
			update(base, dt)
			if obj.IsRemoved() {
				continue
			}
		}

		res := w.resolver.MoveEntity(w, obj, dt)
		stats.Moved++
		stats.Collisions += res.Collisions
		stats.Pushes += res.Pushes
		w.metrics.ObserveMove(res.BlockedX(), res.BlockedY(), res.Collisions, res.Pushes)
	}

	stats.Duration = time.Since(start)
	w.metrics.ObserveTick(stats.Duration)
	if stats.Pushes > 0 {
		w.log.Trace("Тик %d: %d сущностей, %d касаний, %d расталкиваний",
			stats.Tick, stats.Moved, stats.Collisions, stats.Pushes)
	}
	return stats
}
