package vec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkPosFromTilePos_FloorDivision(t *testing.T) {
	cases := []struct {
		tile  TilePos
		chunk ChunkPos
	}{
		{TilePos{X: 0, Y: 0}, ChunkPos{X: 0, Z: 0}},
		{TilePos{X: 31, Y: 31}, ChunkPos{X: 0, Z: 0}},
		{TilePos{X: 32, Y: 64}, ChunkPos{X: 1, Z: 2}},
		{TilePos{X: -1, Y: -1}, ChunkPos{X: -1, Z: -1}},
		{TilePos{X: -32, Y: -33}, ChunkPos{X: -1, Z: -2}},
		{TilePos{X: math.MinInt32, Y: math.MaxInt32}, ChunkPos{X: math.MinInt32 / 32, Z: math.MaxInt32 / 32}},
	}

	for _, c := range cases {
		assert.Equal(t, c.chunk, ChunkPosFromTilePos(c.tile), "тайл %v", c.tile)
		assert.Equal(t, c.chunk, c.tile.ChunkPos(), "тайл %v", c.tile)
	}
}

func TestChunkPos_RoundTrip(t *testing.T) {
	// Проверяем обратимость, включая отрицательные координаты и границы int32
	values := []int32{math.MinInt32, -1000, -33, -32, -31, -1, 0, 1, 15, 16, 31, 32, 33, 1000, math.MaxInt32}
	for _, x := range values {
		for _, y := range values {
			tile := TilePos{X: x, Y: y}
			localX, localY := tile.Local()
			assert.GreaterOrEqual(t, localX, 0)
			assert.Less(t, localX, ChunkSize)
			assert.GreaterOrEqual(t, localY, 0)
			assert.Less(t, localY, ChunkSize)
			assert.Equal(t, tile, ChunkPosFromTilePos(tile).ToTilePos(localX, localY), "тайл %v", tile)
		}
	}
}

func TestTilePos_PackRoundTrip(t *testing.T) {
	values := []int32{math.MinInt32, -123456, -1, 0, 1, 7, 123456, math.MaxInt32}
	for _, x := range values {
		for _, y := range values {
			tile := TilePos{X: x, Y: y}
			assert.Equal(t, tile, TilePosFromLong(tile.ToLong()))
		}
	}
}

func TestTilePos_PackLayout(t *testing.T) {
	packed := TilePos{X: -1, Y: 2}.ToLong()
	assert.Equal(t, uint64(0xFFFFFFFF), packed&0xFFFFFFFF, "младшие 32 бита - X")
	assert.Equal(t, uint64(2), packed>>32, "старшие 32 бита - Y")
}

func TestTilePos_Arithmetic(t *testing.T) {
	a := TilePos{X: 3, Y: -4}
	b := TilePos{X: -1, Y: 2}
	assert.Equal(t, TilePos{X: 2, Y: -2}, a.Add(b))
	assert.Equal(t, TilePos{X: 4, Y: -6}, a.Sub(b))
	assert.Equal(t, TilePos{X: 9, Y: -12}, a.Mul(3))
}

func TestChunkPos_KeyRoundTrip(t *testing.T) {
	for _, c := range []ChunkPos{{X: 0, Z: 0}, {X: -1, Z: 5}, {X: math.MaxInt32, Z: math.MinInt32}} {
		assert.Equal(t, c, ChunkPosFromKey(c.Key()))
	}
}

func TestVec2Float_TilePos(t *testing.T) {
	assert.Equal(t, TilePos{X: -1, Y: 0}, Vec2Float{X: -0.5, Y: 0.99}.TilePos())
	assert.Equal(t, TilePos{X: 2, Y: -3}, Vec2Float{X: 2, Y: -2.01}.TilePos())
}
