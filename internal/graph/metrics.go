package graph

// BacklinkCounts tallies recorded usages by kind.
func (g *Graph) BacklinkCounts() map[BacklinkKind]int {
	counts := make(map[BacklinkKind]int)
	if g == nil {
		return counts
	}
	for _, list := range g.usages {
		for _, b := range list {
			counts[b.Kind]++
		}
	}
	return counts
}
