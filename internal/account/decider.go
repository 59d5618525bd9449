package account

// Decide maps the current state and one command to at most one event and a
// response. It never mutates state and never errors; rejection is signaled
// through the nil-account response variant.
func Decide(state Account, cmd Command) (Event, Response) {
	switch c := cmd.(type) {
	case CreateAccount:
		created := Account{
			ID:       state.ID,
			Owner:    c.Owner,
			Currency: c.Currency,
			Balance:  c.InitialBalance,
		}
		return AccountCreated{Account: created}, AccountCreatedResponse{ID: state.ID}

	case UpdateBalance:
		candidate := state.Balance.Add(c.Delta)
		if candidate.IsNegative() {
			return nil, BalanceUpdateResult{}
		}
		evt := BalanceChanged{Delta: c.Delta}
		next := Evolve(state, evt)
		return evt, BalanceUpdateResult{Account: &next}

	case GetAccount:
		if !state.Created() {
			return nil, AccountQueryResult{}
		}
		current := state
		return nil, AccountQueryResult{Account: &current}

	default:
		return nil, nil
	}
}
