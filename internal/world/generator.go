package world

import (
	"math/rand"

	"github.com/annel0/tileworld/internal/util"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/tile"
)

// Константы высот для генерации
const (
	WaterMax    = 0.30 // Ниже - вода
	ShoreMax    = 0.35 // Ниже - песчаный берег
	SlopeStart  = 0.65 // Выше - склоны из земли
	MountainMin = 0.80 // Выше - скалы
)

// Generator генерирует ландшафт чанков по шуму Перлина
type Generator struct {
	Seed        int64   // Сид для генерации шума
	NoiseScale  float64 // Масштаб шума высот
	DryScale    float64 // Масштаб шума сухости (песок/трава)
	TreeDensity float64 // Вероятность дерева на траве (от 0 до 1)

	height *util.Noise
	dry    *util.Noise
}

// NewGenerator создаёт новый генератор ландшафта
func NewGenerator(seed int64) *Generator {
	return &Generator{
		Seed:        seed,
		NoiseScale:  0.05, // Настройка сглаженности ландшафта
		DryScale:    0.02,
		TreeDensity: 0.05, // 5% шанс появления деревьев
		height:      util.NewNoise(seed),
		dry:         util.NewNoise(seed + 42),
	}
}

// Source возвращает генератор в виде источника чанков для World
func (g *Generator) Source() ChunkSource {
	return func(c *Chunk) string {
		g.Fill(c)
		return "generator"
	}
}

// Fill заполняет чанк тайлами. Результат зависит только от сида и координат чанка.
func (g *Generator) Fill(c *Chunk) {
	// Для каждого чанка свой сид на основе глобального сида и координат
	chunkSeed := g.Seed + int64(c.Pos.X)*31 + int64(c.Pos.Z)*17
	rng := rand.New(rand.NewSource(chunkSeed))

	origin := c.Pos.Origin()
	for y := 0; y < vec.ChunkSize; y++ {
		for x := 0; x < vec.ChunkSize; x++ {
			gx := float64(origin.X) + float64(x)
			gy := float64(origin.Y) + float64(y)

			height := g.height.At(gx*g.NoiseScale, gy*g.NoiseScale)
			dry := g.dry.At(gx*g.DryScale, gy*g.DryScale)

			c.SetLocal(x, y, g.tileFor(height, dry, rng))
		}
	}
}

// tileFor выбирает тайл по высоте и сухости
func (g *Generator) tileFor(height, dry float64, rng *rand.Rand) tile.ID {
	switch {
	case height < WaterMax:
		return tile.WaterID
	case height < ShoreMax:
		return tile.SandID
	case height < SlopeStart:
		if dry > 0.65 {
			// Сухие равнины: песок и редкие кактусы
			if rng.Float64() < 0.02 {
				return tile.CactusID
			}
			return tile.SandID
		}
		if g.TreeDensity > 0 && rng.Float64() < g.TreeDensity {
			return tile.TreeID
		}
		return tile.GrassID
	case height < MountainMin:
		return tile.DirtID
	default:
		return tile.StoneID
	}
}
