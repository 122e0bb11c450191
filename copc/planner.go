package copc

// plannedNode is one element of a query plan: either an entry whose chunk
// should be fetched, or the error that stopped its branch from being
// expanded. Failed branches stay in the plan so the iterator can surface
// them at their position instead of dropping them.
type plannedNode struct {
	entry Entry
	err   error
}

// planner walks the octree hierarchy depth first and collects the entries a
// query has to fetch. It is deterministic: children are visited in fixed
// octant order, so the same query over the same file always yields the same
// sequence.
type planner struct {
	store      *hierarchyStore
	rootBounds Bounds
	minLevel   int32
	maxLevel   int32
	queryBox   Bounds
	hasBox     bool
}

// plan traverses from the root key. Bounds pruning happens on the node cube
// before any page is resolved, so subtrees outside the query box cost no
// reads at all.
func (p *planner) plan() []plannedNode {
	var out []plannedNode
	p.visit(RootKey(), &out)
	return out
}

func (p *planner) visit(key VoxelKey, out *[]plannedNode) {
	if p.hasBox && !key.Bounds(p.rootBounds).Intersects(p.queryBox) {
		return
	}
	if key.Level > p.maxLevel {
		return
	}

	entry, ok, err := p.store.entry(key)
	if err != nil {
		// the branch rooted here cannot be expanded; report it in place
		*out = append(*out, plannedNode{entry: entry, err: err})
		return
	}
	if !ok {
		return
	}

	if entry.HasPoints() && key.Level >= p.minLevel {
		*out = append(*out, plannedNode{entry: entry})
	}
	if key.Level == p.maxLevel {
		return
	}
	for _, child := range key.Children() {
		p.visit(child, out)
	}
}
