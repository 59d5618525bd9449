package account

import "github.com/shopspring/decimal"

// Event is the only durable record; state is always derivable by folding
// Evolve over the event sequence from the unborn state.
type Event interface {
	isEvent()
}

// AccountCreated holds a full snapshot of the freshly created account.
type AccountCreated struct {
	Account Account
}

// BalanceChanged records the signed delta that was applied, not the
// resulting balance, so replay recomputes it.
type BalanceChanged struct {
	Delta decimal.Decimal
}

func (AccountCreated) isEvent() {}
func (BalanceChanged) isEvent() {}
