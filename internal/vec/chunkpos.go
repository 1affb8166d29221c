package vec

import "fmt"

const (
	ChunkSize     = 32 // Размер стороны чанка в тайлах
	ChunkHalfSize = ChunkSize / 2
)

// ChunkPos идентифицирует квадратную область ChunkSize x ChunkSize тайлов.
// Вторая ось исторически называется Z.
type ChunkPos struct {
	X, Z int32
}

// ChunkPosFromTilePos возвращает чанк, содержащий тайл.
// Используется деление с округлением вниз: тайл -1 принадлежит чанку -1.
func ChunkPosFromTilePos(p TilePos) ChunkPos {
	return ChunkPos{X: floorDiv(p.X, ChunkSize), Z: floorDiv(p.Y, ChunkSize)}
}

// ToTilePos переводит локальные координаты внутри чанка в абсолютные
func (c ChunkPos) ToTilePos(localX, localY int) TilePos {
	return TilePos{
		X: c.X*ChunkSize + int32(localX),
		Y: c.Z*ChunkSize + int32(localY),
	}
}

// Origin возвращает тайл в минимальном углу чанка
func (c ChunkPos) Origin() TilePos {
	return c.ToTilePos(0, 0)
}

// Key упаковывает координаты чанка в ключ для хранилища
func (c ChunkPos) Key() uint64 {
	return uint64(uint32(c.X)) | uint64(uint32(c.Z))<<32
}

// ChunkPosFromKey восстанавливает координаты из Key
func ChunkPosFromKey(key uint64) ChunkPos {
	return ChunkPos{X: int32(uint32(key)), Z: int32(uint32(key >> 32))}
}

func (c ChunkPos) String() string {
	return fmt.Sprintf("chunk(%d,%d)", c.X, c.Z)
}

// floorDiv делит с округлением к минус бесконечности
func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// floorMod возвращает остаток со знаком делителя
func floorMod(a, b int32) int32 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}
