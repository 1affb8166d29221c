package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/metrics"
	"github.com/annel0/tileworld/internal/physics"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/entity"
	"github.com/annel0/tileworld/internal/world/tile"
	_ "github.com/annel0/tileworld/internal/world/tile/implementations"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	animalSpeed    = 2.0 // тайлов в секунду
	wanderPeriod   = 3.0 // секунд между сменой направления
	playerSpeed    = 4.0
	spawnAttempts  = 64
	statsInterval  = 10 * time.Second
	publishTimeout = 2 * time.Second
	tracerName     = "github.com/annel0/tileworld/internal/sim"
)

var ErrNoSpawnPoint = errors.New("не найдено свободное место для спавна")

// Simulation ведёт один мир: демо-популяцию, тики, сохранение и события
type Simulation struct {
	cfg       *config.Config
	world     *world.World
	generator *world.Generator
	manager   *entity.Manager
	rng       *rand.Rand

	store     *storage.ChunkStore
	positions storage.PositionRepo
	bus       eventbus.EventBus
	metrics   *metrics.Metrics
	sampler   *metrics.ProcessSampler

	source world.ChunkSource // Заменяет генератор, если задан

	player *entity.Entity
	totals world.TickStats
	status statusHolder
	tracer trace.Tracer
	log    *logging.Logger
}

// Option настраивает Simulation
type Option func(*Simulation)

// WithChunkSource заменяет генератор ландшафта своим источником чанков
func WithChunkSource(src world.ChunkSource) Option {
	return func(s *Simulation) { s.source = src }
}

// WithChunkStore подключает хранилище чанков
func WithChunkStore(store *storage.ChunkStore) Option {
	return func(s *Simulation) { s.store = store }
}

// WithPositions подключает репозиторий позиций сущностей
func WithPositions(repo storage.PositionRepo) Option {
	return func(s *Simulation) { s.positions = repo }
}

// WithEventBus подключает шину событий мира
func WithEventBus(bus eventbus.EventBus) Option {
	return func(s *Simulation) { s.bus = bus }
}

// WithMetrics подключает Prometheus-метрики
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Simulation) { s.metrics = m }
}

// WithTracerProvider задаёт провайдер трассировки (по умолчанию глобальный otel)
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Simulation) { s.tracer = tp.Tracer(tracerName) }
}

// WithProcessSampler включает периодический снимок CPU и памяти процесса
func WithProcessSampler(p *metrics.ProcessSampler) Option {
	return func(s *Simulation) { s.sampler = p }
}

// New создаёт симуляцию и пустой мир. Чанки и сущности появляются в Populate.
func New(cfg *config.Config, opts ...Option) (*Simulation, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Simulation{
		cfg:       cfg,
		generator: world.NewGenerator(cfg.Sim.Seed),
		manager:   entity.NewManager(),
		rng:       rand.New(rand.NewSource(cfg.Sim.Seed)),
		positions: storage.NewMemoryPositionRepo(),
		bus:       eventbus.Nop(),
		tracer:    otel.Tracer(tracerName),
		log:       logging.GetSimLogger(),
	}
	s.status.commands = make(chan command, 64)
	for _, opt := range opts {
		opt(s)
	}

	if err := s.registerTypes(); err != nil {
		return nil, err
	}

	resolver := &physics.Resolver{
		Epsilon:          cfg.Physics.Epsilon,
		Slop:             cfg.Physics.Slop,
		MaxOverlapPasses: cfg.Physics.MaxOverlapPasses,
	}

	source := s.source
	if source == nil {
		source = s.generator.Source()
	}
	if s.store != nil {
		source = s.store.Source(source)
	}

	s.world = world.New(
		world.WithChunkSource(s.publishingSource(source)),
		world.WithResolver(resolver),
		world.WithMetrics(s.metrics),
	)
	return s, nil
}

// World возвращает мир симуляции
func (s *Simulation) World() *world.World { return s.world }

// Player возвращает сущность игрока (nil до Populate)
func (s *Simulation) Player() *entity.Entity { return s.player }

// Manager возвращает реестр типов сущностей симуляции
func (s *Simulation) Manager() *entity.Manager { return s.manager }

// registerTypes регистрирует типы демо-популяции со своими хуками
func (s *Simulation) registerTypes() error {
	walker := *entity.Player
	walker.Name = "walker"
	walker.Update = patrol(playerSpeed)
	walker.OnCollision = s.onCollision

	grazer := *entity.Animal
	grazer.Name = "grazer"
	grazer.Update = entity.Wander(s.rng, animalSpeed, wanderPeriod)

	for _, t := range []*entity.Type{&walker, &grazer} {
		if err := s.manager.RegisterType(t); err != nil {
			return fmt.Errorf("регистрация типа: %w", err)
		}
	}
	return nil
}

// patrol ходит по X и разворачивается, упёршись в препятствие
func patrol(speed float64) func(e *entity.Entity, dt float64) {
	return func(e *entity.Entity, dt float64) {
		dir, ok := e.Payload["patrolDir"].(float64)
		if !ok {
			dir = 1
		}
		if e.Velocity().X == 0 && ok {
			dir = -dir
		}
		e.Payload["patrolDir"] = dir
		e.SetVelocity(vec.Vec2Float{X: dir * speed, Y: e.Velocity().Y})
	}
}

// Populate загружает стартовую область и расселяет демо-популяцию.
// Позиции сущностей восстанавливаются из репозитория, если сохранены.
func (s *Simulation) Populate(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, "sim.Populate")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	radius := s.cfg.Sim.GetPreloadRadius()
	loaded := s.world.LoadArea(vec.ChunkPos{}, radius)
	s.log.Info("🗺️ Загружено чанков: %d (радиус %d)", loaded, radius)

	player, err := s.spawn(ctx, "walker")
	if err != nil {
		return fmt.Errorf("игрок: %w", err)
	}
	s.player = player

	for i := 0; i < s.cfg.Sim.Animals; i++ {
		if _, err := s.spawn(ctx, "grazer"); err != nil {
			return fmt.Errorf("животное %d: %w", i, err)
		}
	}
	for i := 0; i < s.cfg.Sim.Crates; i++ {
		if _, err := s.spawn(ctx, "crate"); err != nil {
			return fmt.Errorf("ящик %d: %w", i, err)
		}
	}

	stack, err := s.manager.SpawnStack(vec.Vec2Float{}, "crate", "crate")
	if err != nil {
		return err
	}
	pos, err := s.findFree(stack.AABB().Width(), stack.AABB().Height(), true)
	if err != nil {
		return fmt.Errorf("стопка: %w", err)
	}
	stack.SetPosition(pos)
	if err := s.add(stack); err != nil {
		return err
	}

	s.refreshStatus()
	span.SetAttributes(
		attribute.Int("tileworld.chunks", len(s.world.Chunks())),
		attribute.Int("tileworld.entities", len(s.world.Entities())),
	)
	s.log.Info("🐾 Популяция: %d сущностей", len(s.world.Entities()))
	return nil
}

// spawn создаёт сущность типа typeName на свободном месте или на сохранённой позиции
func (s *Simulation) spawn(ctx context.Context, typeName string) (*entity.Entity, error) {
	e, err := s.manager.Spawn(typeName, vec.Vec2Float{})
	if err != nil {
		return nil, err
	}

	pos, found, err := s.positions.Load(ctx, e.ID)
	if err != nil {
		s.log.Warn("Позиция сущности %d не загружена: %v", e.ID, err)
	}
	if !found || !s.loaded(pos) {
		size := e.AABB()
		pos, err = s.findFree(size.Width(), size.Height(), e.Type().Box != nil)
		if err != nil {
			return nil, err
		}
	}
	e.SetPosition(pos)

	if err := s.add(e); err != nil {
		return nil, err
	}
	return e, nil
}

// add добавляет объект в мир и публикует событие
func (s *Simulation) add(obj entity.Object) error {
	if err := s.world.AddEntity(obj); err != nil {
		return err
	}
	s.publish(eventbus.EntityAdded, entityPayload(obj))
	return nil
}

// findFree ищет случайное место в загруженной области, где бокс width x height
// не задевает твёрдых тайлов и других сущностей
func (s *Simulation) findFree(width, height float64, snap bool) (vec.Vec2Float, error) {
	span := float64((2*s.cfg.Sim.GetPreloadRadius() + 1) * vec.ChunkSize)
	origin := -float64(s.cfg.Sim.GetPreloadRadius() * vec.ChunkSize)

	for i := 0; i < spawnAttempts; i++ {
		pos := vec.Vec2Float{
			X: origin + s.rng.Float64()*(span-width),
			Y: origin + s.rng.Float64()*(span-height),
		}
		if snap {
			pos.X, pos.Y = math.Floor(pos.X), math.Floor(pos.Y)
		}
		box := physics.BoxAt(pos, width, height)
		if s.isFree(box) {
			return pos, nil
		}
	}
	return vec.Vec2Float{}, ErrNoSpawnPoint
}

// isFree проверяет, что бокс лежит в загруженных чанках и ни с чем не пересекается
func (s *Simulation) isFree(box physics.AABB) bool {
	return s.tilesFree(box) && len(s.world.EntitiesInBox(box)) == 0
}

// tilesFree проверяет тайлы под боксом: чанк загружен, тайл проходим и это не вода
func (s *Simulation) tilesFree(box physics.AABB) bool {
	for y := int32(math.Floor(box.MinY)); float64(y) < box.MaxY; y++ {
		for x := int32(math.Floor(box.MinX)); float64(x) < box.MaxX; x++ {
			pos := vec.TilePos{X: x, Y: y}
			if _, ok := s.world.Chunk(pos.ChunkPos()); !ok {
				return false
			}
			if t, ok := s.world.TileAt(pos); ok && t.IsSolid() {
				return false
			}
			if id, ok := s.world.TileID(pos); ok && id == tile.WaterID {
				return false
			}
		}
	}
	return true
}

// loaded сообщает, лежит ли точка в загруженном чанке
func (s *Simulation) loaded(pos vec.Vec2Float) bool {
	_, ok := s.world.Chunk(pos.TilePos().ChunkPos())
	return ok
}

// Step продвигает мир на dt: тик, подгрузка чанков вокруг игрока,
// удаление сущностей, ушедших за пределы загруженной области
func (s *Simulation) Step(ctx context.Context, dt float64) world.TickStats {
	s.drainCommands()

	stats := s.world.Tick(dt)
	s.totals.Moved += stats.Moved
	s.totals.Collisions += stats.Collisions
	s.totals.Pushes += stats.Pushes

	if s.player != nil && !s.player.IsRemoved() {
		center := s.player.Position().TilePos().ChunkPos()
		if n := s.world.LoadArea(center, s.cfg.Sim.GetPreloadRadius()); n > 0 {
			s.log.Debug("🗺️ Подгружено чанков вокруг игрока: %d", n)
		}
	}

	var lost []entity.Object
	for _, obj := range s.world.Entities() {
		if !obj.IsRemoved() && !s.loaded(obj.Position()) {
			lost = append(lost, obj)
		}
	}
	for _, obj := range lost {
		s.despawn(ctx, obj)
	}

	s.refreshStatus()
	return stats
}

// despawn удаляет сущность из мира и её сохранённую позицию
func (s *Simulation) despawn(ctx context.Context, obj entity.Object) {
	payload := entityPayload(obj)
	s.world.RemoveEntity(obj)

	if err := s.positions.Delete(ctx, payload.ID); err != nil && !errors.Is(err, storage.ErrPositionNotFound) {
		s.log.Warn("Позиция сущности %d не удалена: %v", payload.ID, err)
	}
	s.publish(eventbus.EntityRemoved, payload)
}

// SetTile меняет тайл и публикует событие
func (s *Simulation) SetTile(pos vec.TilePos, id tile.ID) error {
	if err := s.world.SetTile(pos, id); err != nil {
		return err
	}
	s.publish(eventbus.TileChanged, tilePayload{X: pos.X, Y: pos.Y, ID: uint16(id)})
	return nil
}

// Save записывает изменённые чанки и позиции живых сущностей
func (s *Simulation) Save(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, "sim.Save")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	saved := 0
	if s.store != nil {
		n, err := s.store.SaveWorld(s.world)
		if err != nil {
			return fmt.Errorf("сохранение чанков: %w", err)
		}
		saved = n
	}

	positions := make(map[uint64]vec.Vec2Float, len(s.world.Entities()))
	for _, obj := range s.world.Entities() {
		if !obj.IsRemoved() {
			positions[obj.Base().ID] = obj.Position()
		}
	}
	if err := s.positions.BatchSave(ctx, positions); err != nil {
		return fmt.Errorf("сохранение позиций: %w", err)
	}

	span.SetAttributes(
		attribute.Int("tileworld.chunks_saved", saved),
		attribute.Int("tileworld.positions_saved", len(positions)),
	)
	s.publish(eventbus.WorldSaved, savePayload{Chunks: saved, Entities: len(positions)})
	s.log.Info("💾 Мир сохранён: чанков %d, позиций %d", saved, len(positions))
	return nil
}

// Run крутит фиксированный шаг симуляции до отмены ctx, затем сохраняет мир
func (s *Simulation) Run(ctx context.Context) error {
	rate := s.cfg.Sim.GetTickRate()
	dt := 1.0 / float64(rate)

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	statsTicker := time.NewTicker(statsInterval)
	defer statsTicker.Stop()

	var saveC <-chan time.Time
	if s.cfg.Storage.SaveEvery > 0 {
		saveTicker := time.NewTicker(time.Duration(s.cfg.Storage.SaveEvery) * time.Second)
		defer saveTicker.Stop()
		saveC = saveTicker.C
	}

	var processC <-chan time.Time
	if s.sampler != nil && s.cfg.Metrics.ProcessEvery > 0 {
		processTicker := time.NewTicker(time.Duration(s.cfg.Metrics.ProcessEvery) * time.Second)
		defer processTicker.Stop()
		processC = processTicker.C
	}

	s.status.running.Store(true)
	defer s.stopCommands()

	s.log.Info("▶️ Симуляция запущена: %d тиков/с", rate)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("⏹️ Остановка на тике %d", s.world.CurrentTick())
			s.stopCommands()
			return s.Save(context.WithoutCancel(ctx))
		case <-ticker.C:
			s.Step(ctx, dt)
		case <-saveC:
			if err := s.Save(ctx); err != nil {
				s.log.Error("❌ Ошибка сохранения: %v", err)
			}
		case <-statsTicker.C:
			s.logStats()
		case <-processC:
			s.sampleProcess()
		}
	}
}

// stopCommands отклоняет команды, не дождавшиеся выполнения
func (s *Simulation) stopCommands() {
	s.status.running.Store(false)
	for {
		select {
		case cmd := <-s.status.commands:
			cmd.done <- ErrNotRunning
		default:
			return
		}
	}
}

// logStats пишет сводку за период и сбрасывает счётчики
func (s *Simulation) logStats() {
	s.log.Info("📊 Тик %d: сущностей %d, чанков %d, перемещений %d, касаний %d, расталкиваний %d",
		s.world.CurrentTick(), len(s.world.Entities()), len(s.world.Chunks()),
		s.totals.Moved, s.totals.Collisions, s.totals.Pushes)
	s.totals = world.TickStats{}
}

func (s *Simulation) sampleProcess() {
	stats, err := s.sampler.Sample()
	if err != nil {
		s.log.Warn("Не удалось снять показатели процесса: %v", err)
		return
	}
	s.log.Debug("📈 CPU %.1f%%, RSS %.1f MB, heap %.1f MB, горутин %d, аптайм %s",
		stats.CPUPercent, stats.RSSMB, stats.HeapMB, stats.Goroutines, stats.Uptime.Round(time.Second))
}

// Close закрывает подключённые ресурсы
func (s *Simulation) Close() error {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	errs = append(errs, s.positions.Close(), s.bus.Close())
	return errors.Join(errs...)
}
