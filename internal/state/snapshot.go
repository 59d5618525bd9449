package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"main/internal/account"
)

// Snapshot captures account states at a point in time. It is a verification
// artifact, not a source of truth; the journal stays authoritative.
type Snapshot struct {
	Timestamp int64             `json:"timestamp"`
	Accounts  []account.Account `json:"accounts"`
}

// BuildSnapshot assembles a snapshot from rebuilt accounts in stable order.
func BuildSnapshot(accounts map[string]account.Account) Snapshot {
	entries := make([]account.Account, 0, len(accounts))
	for _, id := range SortedIDs(accounts) {
		entries = append(entries, accounts[id])
	}
	return Snapshot{
		Timestamp: time.Now().UTC().UnixNano(),
		Accounts:  entries,
	}
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// CompareSnapshots checks if two snapshots carry the same accounts.
func CompareSnapshots(expected, actual Snapshot) error {
	if len(expected.Accounts) != len(actual.Accounts) {
		return fmt.Errorf("snapshot length mismatch: expected=%d actual=%d",
			len(expected.Accounts), len(actual.Accounts))
	}
	expectedMap := make(map[string]account.Account, len(expected.Accounts))
	for _, entry := range expected.Accounts {
		expectedMap[entry.ID] = entry
	}
	for _, entry := range actual.Accounts {
		want, ok := expectedMap[entry.ID]
		if !ok {
			return fmt.Errorf("snapshot missing account: %s", entry.ID)
		}
		if want.Owner != entry.Owner || want.Currency != entry.Currency {
			return fmt.Errorf("snapshot identity mismatch: account=%s", entry.ID)
		}
		if !want.Balance.Equal(entry.Balance) {
			return fmt.Errorf("snapshot balance mismatch: account=%s expected=%s actual=%s",
				entry.ID, want.Balance, entry.Balance)
		}
	}
	return nil
}
