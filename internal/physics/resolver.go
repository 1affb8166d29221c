package physics

import (
	"math"

	"github.com/annel0/tileworld/internal/vec"
)

const (
	DefaultEpsilon          = 1e-7 // Зазор, оставляемый между сущностью и препятствием
	DefaultSlop             = 1e-4 // Запас при расталкивании пересекающихся сущностей
	DefaultMaxOverlapPasses = 6    // Максимум проходов ResolveOverlaps
)

// MoveResult описывает итог одного вызова MoveEntity
type MoveResult struct {
	RequestedDX, RequestedDY float64 // Смещение по скорости до коллизий
	DX, DY                   float64 // Фактическое смещение после свипа
	Collisions               int     // Касаний с сущностями при свипе
	Pushes                   int     // Расталкиваний в ResolveOverlaps
}

// BlockedX сообщает, что движение по X было ограничено
func (r MoveResult) BlockedX() bool { return r.DX != r.RequestedDX }

// BlockedY сообщает, что движение по Y было ограничено
func (r MoveResult) BlockedY() bool { return r.DY != r.RequestedDY }

// Resolver перемещает сущности с учётом тайлов и других сущностей.
// Состояния между вызовами не хранит; вызывается из одной горутины мира.
type Resolver struct {
	Epsilon          float64
	Slop             float64
	MaxOverlapPasses int
}

// NewResolver создаёт Resolver с параметрами по умолчанию
func NewResolver() *Resolver {
	return &Resolver{
		Epsilon:          DefaultEpsilon,
		Slop:             DefaultSlop,
		MaxOverlapPasses: DefaultMaxOverlapPasses,
	}
}

// MoveEntity продвигает сущность на velocity*dt.
// Движение раскладывается по осям: сначала X, затем Y; каждая ось ограничивается
// сначала твёрдыми тайлами, затем другими сущностями.
func (r *Resolver) MoveEntity(space Space, body Body, dt float64) MoveResult {
	if body.IsImmovable() {
		body.SetVelocity(vec.Vec2Float{})
		return MoveResult{}
	}

	velocity := body.Velocity()
	res := MoveResult{
		RequestedDX: velocity.X * dt,
		RequestedDY: velocity.Y * dt,
	}
	dx, dy := res.RequestedDX, res.RequestedDY
	body.SetOnGround(false)

	box := body.AABB()
	start := box.Min()

	if body.CollidesWithTiles() {
		dx = r.ClipAgainstSolidTiles(space, box, dx, 0)
		dx, res.Collisions = r.clipAgainstEntities(space, body, box, dx, 0, res.Collisions)
		box = box.Offset(dx, 0)

		dy = r.ClipAgainstSolidTiles(space, box, 0, dy)
		dy, res.Collisions = r.clipAgainstEntities(space, body, box, 0, dy, res.Collisions)
		box = box.Offset(0, dy)
	} else {
		box = box.Offset(dx, dy)
	}
	res.DX, res.DY = dx, dy

	// Позиция - минимальный угол AABB; переносим смещение угла на позицию,
	// чтобы не зависеть от того, как тип строит свой AABB
	body.SetPosition(body.Position().Add(box.Min().Sub(start)))

	// Обнуляем скорость по заблокированной оси, иначе она копится у стены
	if res.BlockedX() || res.BlockedY() {
		v := body.Velocity()
		if res.BlockedX() {
			v.X = 0
		}
		if res.BlockedY() {
			v.Y = 0
		}
		body.SetVelocity(v)
	}

	res.Pushes = r.ResolveOverlaps(space, body)

	if body.CollidesWithTiles() && res.RequestedDY < 0 && dy > res.RequestedDY {
		body.SetOnGround(true)
	}

	return res
}

// ClipAgainstSolidTiles ограничивает смещение вдоль одной оси твёрдыми тайлами.
// Ровно одно из dx, dy должно быть ненулевым; возвращается ограниченное смещение по этой оси.
func (r *Resolver) ClipAgainstSolidTiles(space Space, box AABB, dx, dy float64) float64 {
	horizontal := dx != 0
	delta := dy
	if horizontal {
		delta = dx
	}
	if delta == 0 {
		return 0
	}

	swept := box.Union(box.Offset(dx, dy))
	minX, maxX := tileSpan(swept.MinX, swept.MaxX-r.Epsilon)
	minY, maxY := tileSpan(swept.MinY, swept.MaxY-r.Epsilon)

	// Счётчики int64: при границе в MaxInt32 x++ не должен переполниться
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			pos := vec.TilePos{X: int32(x), Y: int32(y)}
			t, ok := space.TileAt(pos)
			if !ok || !t.IsSolid() {
				continue
			}
			delta = r.clipAxis(box, TileBox(pos), delta, horizontal)
		}
	}
	return delta
}

// tileSpan возвращает диапазон индексов тайлов, покрывающих [lo, hi],
// обрезанный до диапазона int32
func tileSpan(lo, hi float64) (int64, int64) {
	return clampTile(math.Floor(lo)), clampTile(math.Floor(hi))
}

func clampTile(v float64) int64 {
	switch {
	case v < math.MinInt32:
		return math.MinInt32
	case v > math.MaxInt32:
		return math.MaxInt32
	}
	return int64(v)
}

// ClipAgainstEntities ограничивает смещение вдоль одной оси другими сущностями.
// Для касающихся сущностей вызываются обработчики столкновения с обеих сторон.
func (r *Resolver) ClipAgainstEntities(space Space, self Body, box AABB, dx, dy float64) float64 {
	delta, _ := r.clipAgainstEntities(space, self, box, dx, dy, 0)
	return delta
}

func (r *Resolver) clipAgainstEntities(space Space, self Body, box AABB, dx, dy float64, collisions int) (float64, int) {
	horizontal := dx != 0
	delta := dy
	if horizontal {
		delta = dx
	}
	if delta == 0 {
		return 0, collisions
	}

	type limit struct {
		target Body
		value  float64
	}
	var limits []limit
	requested := delta

	for _, other := range space.Bodies() {
		if other == self || other.IsRemoved() {
			continue
		}
		for _, target := range Targets(other) {
			if ownerOf(target) == self || target.IsRemoved() {
				continue
			}
			// Сравниваем с запрошенным смещением: равные ограничения тоже запоминаются
			clipped := r.clipAxis(box, target.AABB(), requested, horizontal)
			if clipped == requested {
				continue
			}
			limits = append(limits, limit{target: target, value: clipped})
			if math.Abs(clipped) < math.Abs(delta) {
				delta = clipped
			}
		}
	}

	// Сообщаем о касании только тем, кто реально остановил движение
	for _, l := range limits {
		if l.value == delta {
			self.OnEntityCollision(l.target)
			l.target.OnEntityCollision(self)
			collisions++
		}
	}
	return delta, collisions
}

// clipAxis ограничивает delta одним препятствием.
// Препятствие без перекрытия по перпендикулярной оси игнорируется.
func (r *Resolver) clipAxis(box, obstacle AABB, delta float64, horizontal bool) float64 {
	if horizontal {
		if obstacle.MaxY <= box.MinY || obstacle.MinY >= box.MaxY {
			return delta
		}
		return r.clamp(box.MinX, box.MaxX, obstacle.MinX, obstacle.MaxX, delta)
	}
	if obstacle.MaxX <= box.MinX || obstacle.MinX >= box.MaxX {
		return delta
	}
	return r.clamp(box.MinY, box.MaxY, obstacle.MinY, obstacle.MaxY, delta)
}

// clamp ограничивает смещение отрезка [lo,hi] отрезком препятствия [obsLo,obsHi].
// Результат не меняет направление движения.
func (r *Resolver) clamp(lo, hi, obsLo, obsHi, delta float64) float64 {
	switch {
	case delta > 0 && hi <= obsLo:
		allowed := math.Max(0, obsLo-hi-r.Epsilon)
		if allowed < delta {
			return allowed
		}
	case delta < 0 && lo >= obsHi:
		allowed := math.Min(0, obsHi-lo+r.Epsilon)
		if allowed > delta {
			return allowed
		}
	}
	return delta
}

// ResolveOverlaps расталкивает сущность с теми, с кем она уже пересекается.
// Ось выбирается по наименьшему перекрытию. Неподвижная сторона не сдвигается,
// иначе смещение делится пополам. Другая сущность сдвигается напрямую, без свипа,
// поэтому результат зависит от порядка обработки сущностей в тике.
// Возвращает число выполненных расталкиваний.
func (r *Resolver) ResolveOverlaps(space Space, body Body) int {
	pushes := 0
	for pass := 0; pass < r.MaxOverlapPasses; pass++ {
		changed := false

		for _, other := range space.Bodies() {
			if other == body || other.IsRemoved() {
				continue
			}
			for _, target := range Targets(other) {
				if ownerOf(target) == body || target.IsRemoved() {
					continue
				}
				if r.separate(body, target) {
					body.OnEntityCollision(target)
					target.OnEntityCollision(body)
					changed = true
					pushes++
				}
			}
		}

		if !changed {
			break
		}
	}
	return pushes
}

// separate разводит пару, если она пересекается; возвращает true, если что-то сдвинулось
func (r *Resolver) separate(body, target Body) bool {
	a, b := body.AABB(), target.AABB()
	overlap, ok := a.Intersection(b)
	if !ok {
		return false
	}

	bodyFixed, targetFixed := body.IsImmovable(), target.IsImmovable()
	if bodyFixed && targetFixed {
		return false
	}

	var push vec.Vec2Float
	horizontal := overlap.Width() <= overlap.Height()
	if horizontal {
		push.X = direction(a.CenterX(), b.CenterX()) * (overlap.Width() + r.Slop)
	} else {
		push.Y = direction(a.CenterY(), b.CenterY()) * (overlap.Height() + r.Slop)
	}

	switch {
	case targetFixed:
		body.SetPosition(body.Position().Add(push))
	case bodyFixed:
		target.SetPosition(target.Position().Sub(push))
	default:
		half := push.Mul(0.5)
		body.SetPosition(body.Position().Add(half))
		target.SetPosition(target.Position().Sub(half))
	}

	if !bodyFixed {
		v := body.Velocity()
		if horizontal {
			v.X = 0
		} else {
			v.Y = 0
		}
		body.SetVelocity(v)
	}
	return true
}

// direction возвращает знак смещения первой стороны от второй; при совпадении центров +1
func direction(self, other float64) float64 {
	if self < other {
		return -1
	}
	return 1
}
