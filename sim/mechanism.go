package sim

// MechanismHooks is the per-group compute the engine drives.
// LAlgebra calls SetTime, Current, Solve and State in that order once per tick;
// NetReceive is called once per delivered event.
type MechanismHooks interface {
	SetTime(t float64)
	Current()
	Solve()
	State()
	NetReceive(ev Event)
}

// NopMechanism ignores every hook.
type NopMechanism struct{}

func (NopMechanism) SetTime(float64)  {}
func (NopMechanism) Current()         {}
func (NopMechanism) Solve()           {}
func (NopMechanism) State()           {}
func (NopMechanism) NetReceive(Event) {}

// CountingMechanism records how often each hook ran.
// Used in tests and by the CLI to report compute work.
type CountingMechanism struct {
	SetTimeCalls    int
	CurrentCalls    int
	SolveCalls      int
	StateCalls      int
	NetReceiveCalls int
	LastTime        float64
	Order           []string // hook names in call order, only when Record is set
	Record          bool
}

func (m *CountingMechanism) SetTime(t float64) {
	m.SetTimeCalls++
	m.LastTime = t
	m.note("set_time")
}

func (m *CountingMechanism) Current() {
	m.CurrentCalls++
	m.note("current")
}

func (m *CountingMechanism) Solve() {
	m.SolveCalls++
	m.note("solve")
}

func (m *CountingMechanism) State() {
	m.StateCalls++
	m.note("state")
}

func (m *CountingMechanism) NetReceive(Event) {
	m.NetReceiveCalls++
	m.note("net_receive")
}

func (m *CountingMechanism) note(name string) {
	if m.Record {
		m.Order = append(m.Order, name)
	}
}
