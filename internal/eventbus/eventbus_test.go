package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tileChange struct {
	X, Y int
	ID   uint16
}

func TestNewEnvelope(t *testing.T) {
	ev, err := NewEnvelope(TileChanged, "world", tileChange{X: 3, Y: -4, ID: 7})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, TileChanged, ev.EventType)
	assert.False(t, ev.Timestamp.IsZero())

	var got tileChange
	require.NoError(t, ev.Decode(&got))
	assert.Equal(t, tileChange{X: 3, Y: -4, ID: 7}, got)

	empty, err := NewEnvelope(WorldSaved, "sim", nil)
	require.NoError(t, err)
	assert.Nil(t, empty.Payload)

	_, err = NewEnvelope(WorldSaved, "sim", func() {})
	assert.Error(t, err, "функцию нельзя сериализовать")
}

func TestMemoryBus_DeliversByFilter(t *testing.T) {
	bus := NewMemoryBus(16)

	var mu sync.Mutex
	var got []string
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{EntityAdded}}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev.EventType)
		mu.Unlock()
	})
	require.NoError(t, err)

	for _, typ := range []string{EntityAdded, WorldSaved, EntityAdded} {
		ev, err := NewEnvelope(typ, "sim", nil)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), ev))
	}

	// Close дожидается доставки
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{EntityAdded, EntityAdded}, got)

	stats := bus.Metrics()
	assert.Equal(t, uint64(3), stats.Published)
	assert.Equal(t, uint64(2), stats.Consumed)
	assert.Equal(t, 0, stats.InFlight)
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	calls := make(chan struct{}, 4)
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		calls <- struct{}{}
	})
	require.NoError(t, err)

	ev, _ := NewEnvelope(ChunkLoaded, "world", nil)
	require.NoError(t, bus.Publish(context.Background(), ev))
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("событие не доставлено")
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Close())
	assert.Len(t, calls, 0, "после отписки событий нет")
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1).(*memoryBus)

	// Останавливаем рассылку: dispatchLoop ждёт блокировку подписчиков
	bus.mu.Lock()

	publish := func() {
		ev, _ := NewEnvelope(EntityCollision, "world", nil)
		require.NoError(t, bus.Publish(context.Background(), ev), "низкий приоритет не блокирует")
	}

	// Первое событие забирает dispatchLoop и застревает на блокировке
	publish()
	require.Eventually(t, func() bool { return bus.Metrics().InFlight == 0 }, time.Second, time.Millisecond)

	publish() // ложится в буфер
	publish() // буфер полон
	stats := bus.Metrics()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 1, stats.InFlight)

	// Высокий приоритет ждёт места до отмены контекста
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	urgent, _ := NewEnvelope(WorldSaved, "sim", nil)
	urgent.Priority = 9
	assert.ErrorIs(t, bus.Publish(ctx, urgent), context.DeadlineExceeded)

	bus.mu.Unlock()
	require.NoError(t, bus.Close())
}

func TestMemoryBus_Closed(t *testing.T) {
	bus := NewMemoryBus(1)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	ev, _ := NewEnvelope(WorldSaved, "sim", nil)
	assert.ErrorIs(t, bus.Publish(context.Background(), ev), ErrBusClosed)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestNew(t *testing.T) {
	bus, err := New("memory", "", "")
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	nop, err := New("none", "", "")
	require.NoError(t, err)
	ev, _ := NewEnvelope(WorldSaved, "sim", nil)
	assert.NoError(t, nop.Publish(context.Background(), ev))
	assert.Equal(t, Stats{}, nop.Metrics())

	_, err = New("kafka", "", "")
	assert.Error(t, err)
}

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := NewMemoryBus(8)
	require.NoError(t, RegisterMetrics(reg, bus))

	ev, _ := NewEnvelope(WorldSaved, "sim", nil)
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Close())

	n, err := testutil.GatherAndCount(reg, "tileworld_eventbus_messages_published_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "tileworld_eventbus_messages_published_total" {
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}

	assert.Error(t, RegisterMetrics(reg, bus), "повторная регистрация")
}
