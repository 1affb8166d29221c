package implementations

import "github.com/annel0/tileworld/internal/world/tile"

// TreeBehavior – ствол дерева, занимает одну клетку и непроходим
type TreeBehavior struct{}

func (b *TreeBehavior) ID() tile.ID   { return tile.TreeID }
func (b *TreeBehavior) Name() string  { return "Tree" }
func (b *TreeBehavior) IsSolid() bool { return true }

// CactusBehavior – кактус пустыни
type CactusBehavior struct{}

func (b *CactusBehavior) ID() tile.ID   { return tile.CactusID }
func (b *CactusBehavior) Name() string  { return "Cactus" }
func (b *CactusBehavior) IsSolid() bool { return true }
