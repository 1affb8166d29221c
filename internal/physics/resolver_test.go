package physics

import (
	"math"
	"testing"
	"time"

	"github.com/annel0/tileworld/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTile - тайл для тестов
type testTile struct{ solid bool }

func (t testTile) IsSolid() bool { return t.solid }

// testSpace - минимальный мир: набор твёрдых тайлов и список тел
type testSpace struct {
	solid  map[vec.TilePos]bool
	bodies []Body
}

func newTestSpace(solid ...vec.TilePos) *testSpace {
	s := &testSpace{solid: make(map[vec.TilePos]bool)}
	for _, p := range solid {
		s.solid[p] = true
	}
	return s
}

func (s *testSpace) TileAt(pos vec.TilePos) (TileDescriptor, bool) {
	if s.solid[pos] {
		return testTile{solid: true}, true
	}
	return nil, false
}

func (s *testSpace) Bodies() []Body { return s.bodies }

func (s *testSpace) add(bodies ...*testBody) {
	for _, b := range bodies {
		s.bodies = append(s.bodies, b)
	}
}

// testBody - тело размером w x h с минимальным углом в pos
type testBody struct {
	pos, vel  vec.Vec2Float
	w, h      float64
	onGround  bool
	removed   bool
	tiles     bool
	immovable bool
	hits      []Body
}

func newTestBody(x, y float64) *testBody {
	return &testBody{pos: vec.Vec2Float{X: x, Y: y}, w: 1, h: 1, tiles: true}
}

func (b *testBody) Position() vec.Vec2Float      { return b.pos }
func (b *testBody) SetPosition(p vec.Vec2Float)  { b.pos = p }
func (b *testBody) Velocity() vec.Vec2Float      { return b.vel }
func (b *testBody) SetVelocity(v vec.Vec2Float)  { b.vel = v }
func (b *testBody) SetOnGround(g bool)           { b.onGround = g }
func (b *testBody) AABB() AABB                   { return BoxAt(b.pos, b.w, b.h) }
func (b *testBody) IsRemoved() bool              { return b.removed }
func (b *testBody) CollidesWithTiles() bool      { return b.tiles }
func (b *testBody) IsImmovable() bool            { return b.immovable }
func (b *testBody) OnEntityCollision(other Body) { b.hits = append(b.hits, other) }

func TestMoveEntity_NoTunneling(t *testing.T) {
	space := newTestSpace(vec.TilePos{X: 5, Y: 5})
	body := newTestBody(3, 5)
	body.vel = vec.Vec2Float{X: 100, Y: 0}
	space.add(body)

	res := NewResolver().MoveEntity(space, body, 1)

	assert.InDelta(t, 4.0, body.pos.X, 1e-6, "сущность должна остановиться вплотную к тайлу")
	assert.LessOrEqual(t, body.AABB().MaxX, 5.0)
	assert.False(t, body.AABB().Intersects(TileBox(vec.TilePos{X: 5, Y: 5})))
	assert.Equal(t, 5.0, body.pos.Y)
	assert.Equal(t, 0.0, body.vel.X, "скорость по заблокированной оси обнуляется")
	assert.True(t, res.BlockedX())
	assert.False(t, res.BlockedY())
	assert.Equal(t, 100.0, res.RequestedDX)
}

func TestMoveEntity_NearInt32Bounds(t *testing.T) {
	moveWithin := func(t *testing.T, space *testSpace, body *testBody) {
		t.Helper()
		done := make(chan struct{})
		go func() {
			NewResolver().MoveEntity(space, body, 1)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("MoveEntity завис у границы int32")
		}
	}

	t.Run("empty space at MaxInt32", func(t *testing.T) {
		body := newTestBody(math.MaxInt32-1.5, 0)
		body.vel = vec.Vec2Float{X: 1}
		moveWithin(t, newTestSpace(), body)
		assert.Equal(t, math.MaxInt32-0.5, body.pos.X)
	})

	t.Run("empty space at MinInt32", func(t *testing.T) {
		body := newTestBody(math.MinInt32+0.5, 0)
		body.vel = vec.Vec2Float{X: -1}
		moveWithin(t, newTestSpace(), body)
		assert.Equal(t, math.MinInt32-0.5, body.pos.X)
	})

	t.Run("solid tile at MaxInt32", func(t *testing.T) {
		body := newTestBody(math.MaxInt32-2, 0)
		body.vel = vec.Vec2Float{X: 5}
		moveWithin(t, newTestSpace(vec.TilePos{X: math.MaxInt32, Y: 0}), body)
		assert.InDelta(t, math.MaxInt32-1, body.pos.X, 1e-6)
		assert.LessOrEqual(t, body.AABB().MaxX, float64(math.MaxInt32))
		assert.Equal(t, 0.0, body.vel.X)
	})
}

func TestMoveEntity_NegativeDirectionStopsAtFarEdge(t *testing.T) {
	space := newTestSpace(vec.TilePos{X: -3, Y: 0})
	body := newTestBody(2, 0)
	body.vel = vec.Vec2Float{X: -50, Y: 0}

	NewResolver().MoveEntity(space, body, 1)

	assert.InDelta(t, -2.0, body.pos.X, 1e-6)
	assert.GreaterOrEqual(t, body.AABB().MinX, -2.0)
	assert.Equal(t, 0.0, body.vel.X)
}

func TestMoveEntity_SlidesAlongWall(t *testing.T) {
	// Г-образное препятствие: стена x=5 и пол y=7
	space := newTestSpace(
		vec.TilePos{X: 5, Y: 3}, vec.TilePos{X: 5, Y: 4}, vec.TilePos{X: 5, Y: 5}, vec.TilePos{X: 5, Y: 6},
		vec.TilePos{X: 4, Y: 7}, vec.TilePos{X: 3, Y: 7},
	)
	body := newTestBody(3.5, 4)
	body.vel = vec.Vec2Float{X: 2, Y: 1}

	res := NewResolver().MoveEntity(space, body, 1)

	assert.True(t, res.BlockedX(), "ось X упирается в стену")
	assert.False(t, res.BlockedY(), "по Y сущность скользит вдоль стены")
	assert.InDelta(t, 4.0, body.pos.X, 1e-6)
	assert.Equal(t, 5.0, body.pos.Y)
	assert.Equal(t, 0.0, body.vel.X)
	assert.Equal(t, 1.0, body.vel.Y)
}

func TestMoveEntity_CornerBlocksBothAxes(t *testing.T) {
	space := newTestSpace(vec.TilePos{X: 2, Y: 0}, vec.TilePos{X: 1, Y: 1}, vec.TilePos{X: 2, Y: 1})
	body := newTestBody(0.5, 0)
	body.vel = vec.Vec2Float{X: 3, Y: 3}

	res := NewResolver().MoveEntity(space, body, 1)

	assert.True(t, res.BlockedX())
	assert.True(t, res.BlockedY())
	assert.InDelta(t, 1.0, body.pos.X, 1e-6)
	assert.InDelta(t, 0.0, body.pos.Y, 1e-6)
	assert.Equal(t, vec.Vec2Float{}, body.vel)
}

func TestMoveEntity_GroundDetection(t *testing.T) {
	space := newTestSpace(vec.TilePos{X: 0, Y: -1})
	body := newTestBody(0, 1)
	body.vel = vec.Vec2Float{X: 0, Y: -5}

	NewResolver().MoveEntity(space, body, 1)

	assert.True(t, body.onGround)
	assert.InDelta(t, 0.0, body.pos.Y, 1e-6)

	// Свободное падение без опоры не даёт onGround
	body.pos = vec.Vec2Float{X: 10, Y: 10}
	body.vel = vec.Vec2Float{X: 0, Y: -1}
	NewResolver().MoveEntity(space, body, 1)
	assert.False(t, body.onGround)
	assert.Equal(t, 9.0, body.pos.Y)
}

func TestMoveEntity_HorizontalBlockDoesNotGround(t *testing.T) {
	space := newTestSpace(vec.TilePos{X: 0, Y: 0})
	body := newTestBody(-2, 0)
	body.vel = vec.Vec2Float{X: 10, Y: 0}
	body.onGround = true

	NewResolver().MoveEntity(space, body, 1)

	assert.InDelta(t, -1.0, body.pos.X, 1e-6)
	assert.False(t, body.onGround, "флаг сбрасывается в начале шага и не выставляется без движения вниз")
}

func TestMoveEntity_ImmovableShortCircuit(t *testing.T) {
	space := newTestSpace()
	body := newTestBody(1, 1)
	body.immovable = true
	body.vel = vec.Vec2Float{X: 3, Y: -2}

	res := NewResolver().MoveEntity(space, body, 1)

	assert.Equal(t, MoveResult{}, res)
	assert.Equal(t, vec.Vec2Float{X: 1, Y: 1}, body.pos)
	assert.Equal(t, vec.Vec2Float{}, body.vel)
}

func TestMoveEntity_WithoutTileCollisionPassesThrough(t *testing.T) {
	space := newTestSpace(vec.TilePos{X: 2, Y: 0})
	body := newTestBody(0, 0)
	body.tiles = false
	body.vel = vec.Vec2Float{X: 5, Y: 0}

	res := NewResolver().MoveEntity(space, body, 1)

	assert.Equal(t, 5.0, body.pos.X)
	assert.Equal(t, 5.0, body.vel.X)
	assert.False(t, res.BlockedX())
}

func TestMoveEntity_ScalesByDeltaTime(t *testing.T) {
	space := newTestSpace()
	body := newTestBody(0, 0)
	body.vel = vec.Vec2Float{X: 4, Y: -2}

	NewResolver().MoveEntity(space, body, 0.25)

	assert.Equal(t, vec.Vec2Float{X: 1, Y: -0.5}, body.pos)
	assert.Equal(t, vec.Vec2Float{X: 4, Y: -2}, body.vel)
}

func TestMoveEntity_StopsAtOtherEntityAndNotifiesBoth(t *testing.T) {
	space := newTestSpace()
	mover := newTestBody(0, 0)
	mover.vel = vec.Vec2Float{X: 5, Y: 0}
	wall := newTestBody(3, 0)
	far := newTestBody(4.5, 0)
	space.add(mover, wall, far)

	res := NewResolver().MoveEntity(space, mover, 1)

	assert.InDelta(t, 2.0, mover.pos.X, 1e-6)
	assert.Equal(t, vec.Vec2Float{X: 3, Y: 0}, wall.pos, "свип не сдвигает другую сущность")
	assert.Equal(t, 1, res.Collisions)
	require.Len(t, mover.hits, 1)
	assert.Same(t, wall, mover.hits[0])
	require.Len(t, wall.hits, 1)
	assert.Same(t, mover, wall.hits[0])
	assert.Empty(t, far.hits, "дальняя сущность не участвовала")
}

func TestMoveEntity_NotifiesEveryEquallyLimitingEntity(t *testing.T) {
	space := newTestSpace()
	mover := newTestBody(0, 0)
	mover.h = 2
	mover.vel = vec.Vec2Float{X: 10, Y: 0}
	lower := newTestBody(5, 0)
	upper := newTestBody(5, 1)
	farther := newTestBody(6, 0.5)
	space.add(mover, lower, upper, farther)

	res := NewResolver().MoveEntity(space, mover, 1)

	assert.InDelta(t, 4.0, mover.pos.X, 1e-6)
	assert.Equal(t, 2, res.Collisions)
	assert.ElementsMatch(t, []Body{lower, upper}, mover.hits)
	assert.Equal(t, []Body{mover}, lower.hits)
	assert.Equal(t, []Body{mover}, upper.hits, "вторая сущность с тем же краем тоже получает касание")
	assert.Empty(t, farther.hits, "не ограничивавшая движение сущность не уведомляется")
}

func TestMoveEntity_RemovedEntityIgnored(t *testing.T) {
	space := newTestSpace()
	mover := newTestBody(0, 0)
	mover.vel = vec.Vec2Float{X: 5, Y: 0}
	ghost := newTestBody(3, 0)
	ghost.removed = true
	space.add(mover, ghost)

	NewResolver().MoveEntity(space, mover, 1)

	assert.Equal(t, 5.0, mover.pos.X)
	assert.Empty(t, ghost.hits)
}

func TestResolveOverlaps_ImmovableDominates(t *testing.T) {
	space := newTestSpace()
	mover := newTestBody(0, 0)
	mover.vel = vec.Vec2Float{X: 1, Y: 1}
	rock := newTestBody(0.6, 0)
	rock.immovable = true
	space.add(mover, rock)

	pushes := NewResolver().ResolveOverlaps(space, mover)

	assert.Equal(t, 1, pushes)
	assert.InDelta(t, -(0.4 + DefaultSlop), mover.pos.X, 1e-9, "подвижная сущность забирает всё смещение")
	assert.Equal(t, 0.0, mover.pos.Y)
	assert.Equal(t, vec.Vec2Float{X: 0.6, Y: 0}, rock.pos)
	assert.Equal(t, vec.Vec2Float{X: 0, Y: 1}, mover.vel, "скорость по оси расталкивания обнуляется")
	assert.Len(t, mover.hits, 1)
	assert.Len(t, rock.hits, 1)
	assert.False(t, mover.AABB().Intersects(rock.AABB()))
}

func TestResolveOverlaps_SymmetricForMovables(t *testing.T) {
	space := newTestSpace()
	a := newTestBody(0, 0)
	b := newTestBody(0.5, 0.2)
	space.add(a, b)

	NewResolver().ResolveOverlaps(space, a)

	dispA := a.pos.X - 0
	dispB := b.pos.X - 0.5
	assert.Less(t, dispA, 0.0)
	assert.Greater(t, dispB, 0.0)
	assert.InDelta(t, 0.5+DefaultSlop, dispB-dispA, 1e-9)
	assert.InDelta(t, -dispA, dispB, 1e-9, "смещение делится поровну")
	assert.Equal(t, 0.0, a.pos.Y-0)
	assert.Equal(t, 0.2, b.pos.Y)
	assert.False(t, a.AABB().Intersects(b.AABB()))
}

func TestResolveOverlaps_PicksSmallerAxis(t *testing.T) {
	space := newTestSpace()
	a := newTestBody(0, 0)
	b := newTestBody(0.1, 0.7)
	b.immovable = true
	space.add(a, b)

	NewResolver().ResolveOverlaps(space, a)

	assert.Equal(t, 0.0, a.pos.X)
	assert.InDelta(t, -(0.3 + DefaultSlop), a.pos.Y, 1e-9)
}

func TestResolveOverlaps_CappedPasses(t *testing.T) {
	// Сущность зажата между двумя неподвижными стенами и не может освободиться
	space := newTestSpace()
	mover := newTestBody(0, 0)
	left := newTestBody(-0.8, 0)
	left.immovable = true
	right := newTestBody(0.8, 0)
	right.immovable = true
	space.add(mover, left, right)

	pushes := NewResolver().ResolveOverlaps(space, mover)

	assert.Equal(t, 2*DefaultMaxOverlapPasses, pushes)
}

func TestResolveOverlaps_QuietWhenSeparated(t *testing.T) {
	space := newTestSpace()
	a := newTestBody(0, 0)
	b := newTestBody(1, 0) // касание гранью
	space.add(a, b)

	assert.Equal(t, 0, NewResolver().ResolveOverlaps(space, a))
	assert.Empty(t, a.hits)
}

func BenchmarkResolver_MoveEntity(b *testing.B) {
	space := newTestSpace()
	for x := int32(-20); x <= 20; x++ {
		space.solid[vec.TilePos{X: x, Y: -1}] = true
	}
	bodies := make([]*testBody, 0, 50)
	for i := 0; i < 50; i++ {
		body := newTestBody(float64(i%10)*1.5-7, float64(i/10)*1.5)
		bodies = append(bodies, body)
		space.add(body)
	}
	r := NewResolver()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, body := range bodies {
			body.vel = vec.Vec2Float{X: 1, Y: -3}
			r.MoveEntity(space, body, 1.0/60.0)
		}
	}
}
