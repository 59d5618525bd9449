package account

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleFoldsEmittedEvent(t *testing.T) {
	state := Account{ID: "acc-1", Owner: "alice", Currency: "USD", Balance: dec("100")}

	evt, resp, next := Handle(state, UpdateBalance{Delta: dec("-30")})

	require.NotNil(t, evt)
	require.IsType(t, BalanceUpdateResult{}, resp)
	assert.True(t, next.Balance.Equal(dec("70")))
}

func TestHandleRejectionKeepsState(t *testing.T) {
	state := Account{ID: "acc-1", Owner: "alice", Currency: "USD", Balance: dec("70")}

	evt, resp, next := Handle(state, UpdateBalance{Delta: dec("-1000")})

	assert.Nil(t, evt)
	assert.Nil(t, resp.(BalanceUpdateResult).Account)
	assert.True(t, next.Balance.Equal(dec("70")))
}

// Final balance equals initial plus the sum of applied deltas, where applied
// excludes every delta that would have driven the balance negative at the
// time it was evaluated.
func TestAppliedDeltaSum(t *testing.T) {
	deltas := []string{"-30", "50", "-500", "-100", "7.25", "-0.25", "-27"}

	m := NewMachine("acc-1")
	evt, _ := m.Decide(CreateAccount{Owner: "alice", Currency: "USD", InitialBalance: dec("100")})
	m.Apply(evt)

	expected := dec("100")
	for _, raw := range deltas {
		delta := decimal.RequireFromString(raw)
		evt, resp := m.Decide(UpdateBalance{Delta: delta})
		if evt == nil {
			assert.Nil(t, resp.(BalanceUpdateResult).Account)
			continue
		}
		m.Apply(evt)
		expected = expected.Add(delta)
	}

	assert.True(t, m.State().Balance.Equal(expected),
		"balance %s != expected %s", m.State().Balance, expected)
	assert.False(t, m.State().Balance.IsNegative())
}
