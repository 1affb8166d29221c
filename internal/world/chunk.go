package world

import (
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/tile"
)

// ChunkArea - число клеток в чанке
const ChunkArea = vec.ChunkSize * vec.ChunkSize

// Chunk представляет участок мира размером 32x32 тайла.
// Пустая клетка хранит AirID и считается отсутствующим тайлом.
type Chunk struct {
	Pos vec.ChunkPos // Координаты чанка в мире

	tiles    [ChunkArea]tile.ID // Индекс клетки: x | y<<5
	count    int                // Число непустых клеток
	modCount uint64             // Счетчик изменений
}

// NewChunk создаёт пустой чанк с указанными координатами
func NewChunk(pos vec.ChunkPos) *Chunk {
	return &Chunk{Pos: pos}
}

// index упаковывает локальные координаты в индекс массива
func index(x, y int) int {
	return x | y<<5
}

// Contains проверяет, что тайл лежит в этом чанке
func (c *Chunk) Contains(pos vec.TilePos) bool {
	return pos.ChunkPos() == c.Pos
}

// Get возвращает тайл по мировым координатам; false для позиции вне чанка
func (c *Chunk) Get(pos vec.TilePos) (tile.ID, bool) {
	if !c.Contains(pos) {
		return tile.AirID, false
	}
	x, y := pos.Local()
	return c.GetLocal(x, y)
}

// GetLocal возвращает тайл по локальным координатам
func (c *Chunk) GetLocal(x, y int) (tile.ID, bool) {
	id := c.tiles[index(x, y)]
	return id, id != tile.AirID
}

// Set устанавливает тайл по мировым координатам; AirID удаляет тайл.
// Позиция вне чанка не записывается, возвращается false.
func (c *Chunk) Set(pos vec.TilePos, id tile.ID) bool {
	if !c.Contains(pos) {
		return false
	}
	x, y := pos.Local()
	c.SetLocal(x, y, id)
	return true
}

// SetLocal устанавливает тайл по локальным координатам
func (c *Chunk) SetLocal(x, y int, id tile.ID) {
	i := index(x, y)
	prev := c.tiles[i]
	switch {
	case prev == tile.AirID && id != tile.AirID:
		c.count++
	case prev != tile.AirID && id == tile.AirID:
		c.count--
	}
	c.tiles[i] = id
	c.modCount++
}

// Count возвращает число непустых клеток
func (c *Chunk) Count() int { return c.count }

// ModCount возвращает счетчик изменений; растёт при каждой записи
func (c *Chunk) ModCount() uint64 { return c.modCount }

// ForEach обходит непустые клетки в порядке индекса
func (c *Chunk) ForEach(fn func(pos vec.TilePos, id tile.ID)) {
	for i, id := range c.tiles {
		if id == tile.AirID {
			continue
		}
		fn(c.Pos.ToTilePos(i&(vec.ChunkSize-1), i>>5), id)
	}
}

// Snapshot копирует содержимое чанка для сохранения
func (c *Chunk) Snapshot() []tile.ID {
	out := make([]tile.ID, ChunkArea)
	copy(out, c.tiles[:])
	return out
}

// Restore загружает содержимое из снимка. Счетчик изменений не меняется.
func (c *Chunk) Restore(tiles []tile.ID) {
	c.count = 0
	for i := range c.tiles {
		var id tile.ID
		if i < len(tiles) {
			id = tiles[i]
		}
		c.tiles[i] = id
		if id != tile.AirID {
			c.count++
		}
	}
}
