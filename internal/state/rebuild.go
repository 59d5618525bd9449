// Package state rebuilds account states from the journal offline and
// snapshots them for replay verification.
package state

import (
	"context"
	"sort"

	"main/internal/account"
	"main/internal/journal"
)

// Rebuild folds every account's journal into its final state. When ids is
// empty, every identifier present in the journal is rebuilt.
func Rebuild(ctx context.Context, log journal.Log, ids []string) (map[string]account.Account, error) {
	if len(ids) == 0 {
		all, err := log.Identifiers(ctx)
		if err != nil {
			return nil, err
		}
		ids = all
	}

	accounts := make(map[string]account.Account, len(ids))
	for _, id := range ids {
		events, err := log.ReadAll(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			continue
		}
		accounts[id] = account.Replay(id, events)
	}
	return accounts, nil
}

// SortedIDs returns the rebuilt identifiers in stable order.
func SortedIDs(accounts map[string]account.Account) []string {
	ids := make([]string, 0, len(accounts))
	for id := range accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
