package implementations

import (
	"testing"

	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredTiles(t *testing.T) {
	tests := []struct {
		id    tile.ID
		name  string
		solid bool
	}{
		{tile.AirID, "Air", false},
		{tile.StoneID, "Stone", true},
		{tile.GrassID, "Grass", false},
		{tile.WaterID, "Water", false},
		{tile.SandID, "Sand", false},
		{tile.DirtID, "Dirt", true},
		{tile.TreeID, "Tree", true},
		{tile.CactusID, "Cactus", true},
		{tile.WallID, "Wall", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			behavior, ok := tile.Get(tt.id)
			require.True(t, ok, "тайл %d должен быть зарегистрирован", tt.id)
			assert.Equal(t, tt.id, behavior.ID())
			assert.Equal(t, tt.name, behavior.Name())
			assert.Equal(t, tt.solid, behavior.IsSolid())
			assert.Equal(t, tt.solid, tile.IsSolid(tt.id))
			assert.Equal(t, tt.name, tt.id.String())
		})
	}
}

func TestUnknownTileIsPassable(t *testing.T) {
	assert.False(t, tile.IsValid(tile.ID(9999)))
	assert.False(t, tile.IsSolid(tile.ID(9999)))
	assert.Equal(t, "tile#9999", tile.ID(9999).String())
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	assert.Panics(t, func() { tile.Register(&StoneBehavior{}) })
}
