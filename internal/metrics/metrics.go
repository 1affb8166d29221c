package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics инкапсулирует Prometheus-метрики симуляции мира.
// Методы безопасно вызывать на nil-указателе: метрики просто не пишутся.
type Metrics struct {
	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	moves        prometheus.Counter
	blocked      *prometheus.CounterVec
	collisions   prometheus.Counter
	pushes       prometheus.Counter
	entities     prometheus.Gauge
	chunks       prometheus.Gauge
	chunkLoads   *prometheus.CounterVec
	chunkSaves   prometheus.Counter
}

// New создаёт метрики и регистрирует их в reg.
// reg == nil - регистрация в глобальном регистре Prometheus.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tileworld",
			Name:      "ticks_total",
			Help:      "Общее число обработанных тиков мира.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tileworld",
			Name:      "tick_duration_seconds",
			Help:      "Длительность одного тика мира.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14),
		}),
		moves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tileworld",
			Name:      "entity_moves_total",
			Help:      "Вызовов перемещения сущностей.",
		}),
		blocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tileworld",
			Name:      "entity_moves_blocked_total",
			Help:      "Перемещений, ограниченных препятствием, по осям.",
		}, []string{"axis"}),
		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tileworld",
			Name:      "entity_collisions_total",
			Help:      "Касаний между сущностями при свипе.",
		}),
		pushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tileworld",
			Name:      "overlap_pushes_total",
			Help:      "Расталкиваний пересекающихся сущностей.",
		}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tileworld",
			Name:      "entities",
			Help:      "Количество сущностей в мире.",
		}),
		chunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tileworld",
			Name:      "chunks_loaded",
			Help:      "Количество загруженных чанков.",
		}),
		chunkLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tileworld",
			Name:      "chunk_loads_total",
			Help:      "Загрузок чанков по источнику (storage, generator, empty).",
		}, []string{"source"}),
		chunkSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tileworld",
			Name:      "chunk_saves_total",
			Help:      "Чанков, записанных в хранилище.",
		}),
	}

	reg.MustRegister(m.ticks, m.tickDuration, m.moves, m.blocked, m.collisions,
		m.pushes, m.entities, m.chunks, m.chunkLoads, m.chunkSaves)
	return m
}

// ObserveTick записывает итоги тика
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

// ObserveMove записывает итоги одного перемещения
func (m *Metrics) ObserveMove(blockedX, blockedY bool, collisions, pushes int) {
	if m == nil {
		return
	}
	m.moves.Inc()
	if blockedX {
		m.blocked.WithLabelValues("x").Inc()
	}
	if blockedY {
		m.blocked.WithLabelValues("y").Inc()
	}
	if collisions > 0 {
		m.collisions.Add(float64(collisions))
	}
	if pushes > 0 {
		m.pushes.Add(float64(pushes))
	}
}

// SetEntities обновляет число сущностей
func (m *Metrics) SetEntities(n int) {
	if m == nil {
		return
	}
	m.entities.Set(float64(n))
}

// ChunkLoaded отмечает загрузку чанка из источника source
func (m *Metrics) ChunkLoaded(source string, total int) {
	if m == nil {
		return
	}
	m.chunkLoads.WithLabelValues(source).Inc()
	m.chunks.Set(float64(total))
}

// ChunksSaved отмечает запись n чанков в хранилище
func (m *Metrics) ChunksSaved(n int) {
	if m == nil || n == 0 {
		return
	}
	m.chunkSaves.Add(float64(n))
}
