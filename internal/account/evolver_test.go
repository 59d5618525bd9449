package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvolveCreatedReplacesWholesale(t *testing.T) {
	first := AccountCreated{Account: Account{ID: "acc-1", Owner: "alice", Currency: "USD", Balance: dec("100")}}
	second := AccountCreated{Account: Account{ID: "acc-1", Owner: "bob", Currency: "EUR", Balance: dec("5")}}

	state := Evolve(Unborn("acc-1"), first)
	state = Evolve(state, BalanceChanged{Delta: dec("-30")})
	state = Evolve(state, second)

	// Whichever creation event was actually persisted wins, regardless of
	// prior state.
	assert.Equal(t, "bob", state.Owner)
	assert.Equal(t, "EUR", state.Currency)
	assert.True(t, state.Balance.Equal(dec("5")))
}

func TestReplayIsDeterministic(t *testing.T) {
	events := []Event{
		AccountCreated{Account: Account{ID: "acc-1", Owner: "alice", Currency: "USD", Balance: dec("100.0")}},
		BalanceChanged{Delta: dec("-30.0")},
		BalanceChanged{Delta: dec("12.5")},
	}

	once := Replay("acc-1", events)
	twice := Replay("acc-1", events)

	require.True(t, once.Balance.Equal(dec("82.5")))
	assert.Equal(t, once.ID, twice.ID)
	assert.Equal(t, once.Owner, twice.Owner)
	assert.Equal(t, once.Currency, twice.Currency)
	assert.True(t, once.Balance.Equal(twice.Balance))
}

func TestReplayMatchesLiveState(t *testing.T) {
	m := NewMachine("acc-1")

	evt, _ := m.Decide(CreateAccount{Owner: "alice", Currency: "USD", InitialBalance: dec("100.0")})
	m.Apply(evt)
	evt, _ = m.Decide(UpdateBalance{Delta: dec("-30.0")})
	m.Apply(evt)
	live := m.State()

	replayed := Replay("acc-1", []Event{
		AccountCreated{Account: Account{ID: "acc-1", Owner: "alice", Currency: "USD", Balance: dec("100.0")}},
		BalanceChanged{Delta: dec("-30.0")},
	})

	assert.Equal(t, live.Owner, replayed.Owner)
	assert.Equal(t, live.Currency, replayed.Currency)
	assert.True(t, live.Balance.Equal(replayed.Balance))
}
