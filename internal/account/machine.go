package account

// Handle evaluates one command against a state and returns the emitted event
// (nil when none), the response, and the next state. Callers that persist
// events must use Machine instead, so the append can happen between deciding
// and applying.
func Handle(state Account, cmd Command) (Event, Response, Account) {
	evt, resp := Decide(state, cmd)
	next := state
	if evt != nil {
		next = Evolve(state, evt)
	}
	return evt, resp, next
}

// Machine binds one identifier to its current state. Commands for the same
// identifier must be handled one at a time; the machine itself holds no lock.
type Machine struct {
	id    string
	state Account
}

// NewMachine creates a machine in the unborn state for the identifier.
func NewMachine(id string) *Machine {
	return &Machine{id: id, state: Unborn(id)}
}

// ID returns the bound identifier.
func (m *Machine) ID() string {
	return m.id
}

// State returns the current in-memory state.
func (m *Machine) State() Account {
	return m.state
}

// Decide evaluates a command against the current state without mutating it.
func (m *Machine) Decide(cmd Command) (Event, Response) {
	return Decide(m.state, cmd)
}

// Apply folds one event into the current state. It must only be called once
// the event is durable.
func (m *Machine) Apply(evt Event) {
	m.state = Evolve(m.state, evt)
}

// Restore rebuilds the state by replaying events from the unborn state.
func (m *Machine) Restore(events []Event) {
	m.state = Replay(m.id, events)
}
