package sim

import "sort"

// RoutingTable maps spike gids to local targets. Immutable once built.
type RoutingTable interface {
	// FindInput returns the local groups an incoming gid connects to.
	// The returned slice must not be modified.
	FindInput(gid int) ([]int, bool)
	// FindOutput reports whether gid is emitted by this rank.
	FindOutput(gid int) bool
	// Outputs returns the gids this rank emits, sorted.
	Outputs() []int
}

// PresynTable is the map-backed RoutingTable.
type PresynTable struct {
	outputs map[int]struct{}
	sorted  []int
	inputs  map[int][]int
}

// NewPresynTable builds a table from output gids and input gid → group lists.
// Both arguments are copied.
func NewPresynTable(outputs []int, inputs map[int][]int) *PresynTable {
	t := &PresynTable{
		outputs: make(map[int]struct{}, len(outputs)),
		inputs:  make(map[int][]int, len(inputs)),
	}
	for _, gid := range outputs {
		if _, dup := t.outputs[gid]; dup {
			continue
		}
		t.outputs[gid] = struct{}{}
		t.sorted = append(t.sorted, gid)
	}
	sort.Ints(t.sorted)
	for gid, groups := range inputs {
		t.inputs[gid] = append([]int(nil), groups...)
	}
	return t
}

func (t *PresynTable) FindInput(gid int) ([]int, bool) {
	groups, ok := t.inputs[gid]
	return groups, ok
}

func (t *PresynTable) FindOutput(gid int) bool {
	_, ok := t.outputs[gid]
	return ok
}

func (t *PresynTable) Outputs() []int {
	return append([]int(nil), t.sorted...)
}

// Inputs returns the input gids, sorted.
func (t *PresynTable) Inputs() []int {
	gids := make([]int, 0, len(t.inputs))
	for gid := range t.inputs {
		gids = append(gids, gid)
	}
	sort.Ints(gids)
	return gids
}

// NumConnections returns the total number of input gid → group connections.
func (t *PresynTable) NumConnections() int {
	n := 0
	for _, groups := range t.inputs {
		n += len(groups)
	}
	return n
}
