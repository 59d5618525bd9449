package account

// Evolve is the fold step used both for applying a freshly decided event and
// for replaying history. It is total, deterministic and side-effect free.
func Evolve(state Account, evt Event) Account {
	switch e := evt.(type) {
	case AccountCreated:
		return e.Account
	case BalanceChanged:
		state.Balance = state.Balance.Add(e.Delta)
		return state
	default:
		return state
	}
}

// Replay folds a recorded event sequence from the unborn state.
func Replay(id string, events []Event) Account {
	state := Unborn(id)
	for _, evt := range events {
		state = Evolve(state, evt)
	}
	return state
}
