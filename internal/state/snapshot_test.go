package state

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/account"
	"main/internal/journal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedJournal(t *testing.T, dir string) {
	t.Helper()
	log, err := journal.NewFileLog(journal.FileConfig{Dir: dir})
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.Append(t.Context(), "acc-1", account.AccountCreated{Account: account.Account{
		ID: "acc-1", Owner: "alice", Currency: "USD", Balance: dec("100"),
	}}))
	require.NoError(t, log.Append(t.Context(), "acc-1", account.BalanceChanged{Delta: dec("-30")}))
	require.NoError(t, log.Append(t.Context(), "acc-2", account.AccountCreated{Account: account.Account{
		ID: "acc-2", Owner: "bob", Currency: "EUR", Balance: dec("5"),
	}}))
}

func TestRebuildFromJournal(t *testing.T) {
	dir := t.TempDir()
	seedJournal(t, dir)

	log, err := journal.NewFileLog(journal.FileConfig{Dir: dir})
	require.NoError(t, err)
	defer log.Close()

	accounts, err := Rebuild(t.Context(), log, nil)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.True(t, accounts["acc-1"].Balance.Equal(dec("70")))
	assert.Equal(t, "bob", accounts["acc-2"].Owner)
	assert.Equal(t, []string{"acc-1", "acc-2"}, SortedIDs(accounts))
}

func TestSnapshotRoundTripAndCompare(t *testing.T) {
	dir := t.TempDir()
	seedJournal(t, dir)

	log, err := journal.NewFileLog(journal.FileConfig{Dir: dir})
	require.NoError(t, err)
	defer log.Close()

	accounts, err := Rebuild(t.Context(), log, nil)
	require.NoError(t, err)
	snap := BuildSnapshot(accounts)

	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, WriteSnapshot(path, snap))
	loaded, err := ReadSnapshot(path)
	require.NoError(t, err)

	require.NoError(t, CompareSnapshots(snap, loaded))

	// A diverging balance is detected.
	loaded.Accounts[0].Balance = dec("999")
	assert.Error(t, CompareSnapshots(snap, loaded))
}
