package implementations

import "github.com/annel0/tileworld/internal/world/tile"

// Покрытия земли: по ним ходят, поэтому они проходимы

type GrassBehavior struct{}

func (b *GrassBehavior) ID() tile.ID   { return tile.GrassID }
func (b *GrassBehavior) Name() string  { return "Grass" }
func (b *GrassBehavior) IsSolid() bool { return false }

type SandBehavior struct{}

func (b *SandBehavior) ID() tile.ID   { return tile.SandID }
func (b *SandBehavior) Name() string  { return "Sand" }
func (b *SandBehavior) IsSolid() bool { return false }

// DirtBehavior - утоптанная земля. В отличие от травы может быть твёрдой,
// если это насыпь (см. generator: склоны гор).
type DirtBehavior struct{}

func (b *DirtBehavior) ID() tile.ID   { return tile.DirtID }
func (b *DirtBehavior) Name() string  { return "Dirt" }
func (b *DirtBehavior) IsSolid() bool { return true }
