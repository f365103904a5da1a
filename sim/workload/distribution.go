package workload

import "fmt"

// ContinuousDistribution splits a contiguous range of global cell ids over
// parts. Each part gets a contiguous block; the first cells%parts parts get
// one extra cell.
type ContinuousDistribution struct {
	global int
	local  int
	start  int
}

// NewContinuousDistribution returns part me's block of cells ids split over
// parts parts.
func NewContinuousDistribution(parts, me, cells int) *ContinuousDistribution {
	if parts < 1 || me < 0 || me >= parts || cells < 0 {
		panic(fmt.Sprintf("NewContinuousDistribution: invalid parts=%d me=%d cells=%d", parts, me, cells))
	}
	d := &ContinuousDistribution{global: cells}
	d.local, d.start = split(cells, parts, me)
	return d
}

// NewSubDistribution splits parent's local block further; global ids and the
// global count are preserved.
func NewSubDistribution(parts, me int, parent *ContinuousDistribution) *ContinuousDistribution {
	if parts < 1 || me < 0 || me >= parts {
		panic(fmt.Sprintf("NewSubDistribution: invalid parts=%d me=%d", parts, me))
	}
	d := &ContinuousDistribution{global: parent.global}
	local, start := split(parent.local, parts, me)
	d.local, d.start = local, parent.start+start
	return d
}

func split(cells, parts, me int) (local, start int) {
	offset := cells % parts
	hasOneMore := offset > me
	local = cells / parts
	if hasOneMore {
		local++
	}
	start = me * local
	if !hasOneMore {
		start += offset
	}
	return local, start
}

// LocalCells returns the size of this part's block.
func (d *ContinuousDistribution) LocalCells() int { return d.local }

// GlobalCells returns the total number of cells.
func (d *ContinuousDistribution) GlobalCells() int { return d.global }

// Start returns the first global id of this part's block.
func (d *ContinuousDistribution) Start() int { return d.start }

// IsLocal reports whether global id is in this part's block.
func (d *ContinuousDistribution) IsLocal(id int) bool {
	if id < 0 || id >= d.global {
		panic(fmt.Sprintf("IsLocal: id %d outside [0, %d)", id, d.global))
	}
	return id >= d.start && id < d.start+d.local
}

// GlobalToLocal maps a global id in this block to its local index.
func (d *ContinuousDistribution) GlobalToLocal(id int) int {
	if id < d.start || id >= d.start+d.local {
		panic(fmt.Sprintf("GlobalToLocal: id %d outside block [%d, %d)", id, d.start, d.start+d.local))
	}
	return id - d.start
}

// LocalToGlobal maps a local index to its global id.
func (d *ContinuousDistribution) LocalToGlobal(loc int) int {
	if loc < 0 || loc >= d.local {
		panic(fmt.Sprintf("LocalToGlobal: index %d outside [0, %d)", loc, d.local))
	}
	return d.start + loc
}
