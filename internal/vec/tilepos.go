package vec

// TilePos представляет целочисленные координаты тайла в мире
type TilePos struct {
	X, Y int32
}

// Add складывает две позиции
func (p TilePos) Add(other TilePos) TilePos {
	return TilePos{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub вычитает позицию
func (p TilePos) Sub(other TilePos) TilePos {
	return TilePos{X: p.X - other.X, Y: p.Y - other.Y}
}

// Mul умножает позицию на скаляр
func (p TilePos) Mul(scalar int32) TilePos {
	return TilePos{X: p.X * scalar, Y: p.Y * scalar}
}

// ToLong упаковывает позицию в 64 бита: младшие 32 бита - X, старшие - Y.
// Обе компоненты трактуются как беззнаковые.
func (p TilePos) ToLong() uint64 {
	return uint64(uint32(p.X)) | uint64(uint32(p.Y))<<32
}

// TilePosFromLong восстанавливает позицию, упакованную ToLong
func TilePosFromLong(packed uint64) TilePos {
	return TilePos{
		X: int32(uint32(packed)),
		Y: int32(uint32(packed >> 32)),
	}
}

// ChunkPos возвращает координаты чанка, которому принадлежит тайл
func (p TilePos) ChunkPos() ChunkPos {
	return ChunkPosFromTilePos(p)
}

// Local возвращает локальные координаты тайла внутри его чанка (0..ChunkSize-1)
func (p TilePos) Local() (int, int) {
	return int(floorMod(p.X, ChunkSize)), int(floorMod(p.Y, ChunkSize))
}

// ToFloat возвращает минимальный угол тайла в мировых координатах
func (p TilePos) ToFloat() Vec2Float {
	return Vec2Float{X: float64(p.X), Y: float64(p.Y)}
}
