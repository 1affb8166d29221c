package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/annel0/tileworld/internal/vec"
)

// ErrNaNBounds возвращается при попытке построить AABB с NaN-координатами
var ErrNaNBounds = errors.New("AABB: координаты не могут быть NaN")

// AABB - неизменяемый прямоугольник, выровненный по осям.
// Инвариант MinX <= MaxX и MinY <= MaxY поддерживается конструкторами.
type AABB struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// NewAABB создаёт AABB по двум углам в любом порядке
func NewAABB(x1, y1, x2, y2 float64) (AABB, error) {
	if math.IsNaN(x1) || math.IsNaN(y1) || math.IsNaN(x2) || math.IsNaN(y2) {
		return AABB{}, fmt.Errorf("%w: (%v,%v)-(%v,%v)", ErrNaNBounds, x1, y1, x2, y2)
	}
	return box(x1, y1, x2, y2), nil
}

// MustAABB аналогичен NewAABB, но паникует на NaN
func MustAABB(x1, y1, x2, y2 float64) AABB {
	b, err := NewAABB(x1, y1, x2, y2)
	if err != nil {
		panic(err)
	}
	return b
}

// BoxAt строит AABB размером width x height с минимальным углом в pos
func BoxAt(pos vec.Vec2Float, width, height float64) AABB {
	return box(pos.X, pos.Y, pos.X+width, pos.Y+height)
}

// TileBox возвращает единичный AABB тайла
func TileBox(pos vec.TilePos) AABB {
	x, y := float64(pos.X), float64(pos.Y)
	return AABB{MinX: x, MinY: y, MaxX: x + 1, MaxY: y + 1}
}

func box(x1, y1, x2, y2 float64) AABB {
	return AABB{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
}

// Offset сдвигает прямоугольник
func (a AABB) Offset(dx, dy float64) AABB {
	return AABB{MinX: a.MinX + dx, MinY: a.MinY + dy, MaxX: a.MaxX + dx, MaxY: a.MaxY + dy}
}

// Expand увеличивает прямоугольник на ax по X и ay по Y с каждой стороны
func (a AABB) Expand(ax, ay float64) AABB {
	return box(a.MinX-ax, a.MinY-ay, a.MaxX+ax, a.MaxY+ay)
}

// Inflate увеличивает прямоугольник на amount со всех сторон
func (a AABB) Inflate(amount float64) AABB {
	return a.Expand(amount, amount)
}

// Union возвращает наименьший AABB, содержащий оба прямоугольника
func (a AABB) Union(other AABB) AABB {
	return AABB{
		MinX: math.Min(a.MinX, other.MinX),
		MinY: math.Min(a.MinY, other.MinY),
		MaxX: math.Max(a.MaxX, other.MaxX),
		MaxY: math.Max(a.MaxY, other.MaxY),
	}
}

// Intersects проверяет строгое пересечение. Касание гранями пересечением не считается.
func (a AABB) Intersects(other AABB) bool {
	return a.MinX < other.MaxX && a.MaxX > other.MinX &&
		a.MinY < other.MaxY && a.MaxY > other.MinY
}

// Intersection возвращает общую часть прямоугольников.
// ok == false, если прямоугольники не пересекаются.
func (a AABB) Intersection(other AABB) (AABB, bool) {
	if !a.Intersects(other) {
		return AABB{}, false
	}
	return AABB{
		MinX: math.Max(a.MinX, other.MinX),
		MinY: math.Max(a.MinY, other.MinY),
		MaxX: math.Min(a.MaxX, other.MaxX),
		MaxY: math.Min(a.MaxY, other.MaxY),
	}, true
}

// Contains проверяет, лежит ли точка внутри (границы включительно)
func (a AABB) Contains(x, y float64) bool {
	return x >= a.MinX && x <= a.MaxX && y >= a.MinY && y <= a.MaxY
}

// ContainsBox проверяет, что other целиком внутри a
func (a AABB) ContainsBox(other AABB) bool {
	return a.Contains(other.MinX, other.MinY) && a.Contains(other.MaxX, other.MaxY)
}

func (a AABB) CenterX() float64 { return (a.MinX + a.MaxX) / 2 }
func (a AABB) CenterY() float64 { return (a.MinY + a.MaxY) / 2 }
func (a AABB) Width() float64   { return a.MaxX - a.MinX }
func (a AABB) Height() float64  { return a.MaxY - a.MinY }

// Min возвращает минимальный угол
func (a AABB) Min() vec.Vec2Float {
	return vec.Vec2Float{X: a.MinX, Y: a.MinY}
}

func (a AABB) String() string {
	return fmt.Sprintf("AABB[(%.4f,%.4f)-(%.4f,%.4f)]", a.MinX, a.MinY, a.MaxX, a.MaxY)
}
