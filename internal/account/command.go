package account

import "github.com/shopspring/decimal"

// Command is one request against a single account.
type Command interface {
	isCommand()
}

// CreateAccount asks for the account to come into existence.
type CreateAccount struct {
	Owner          string
	Currency       string
	InitialBalance decimal.Decimal
}

// UpdateBalance applies a signed delta: negative withdraws, positive
// deposits. AccountID and Currency are carried but not revalidated against
// the account's own identity; each machine is already scoped to one
// identifier by its runner.
type UpdateBalance struct {
	AccountID string
	Currency  string
	Delta     decimal.Decimal
}

// GetAccount is a pure read.
type GetAccount struct {
	AccountID string
}

func (CreateAccount) isCommand() {}
func (UpdateBalance) isCommand() {}
func (GetAccount) isCommand()    {}

// Response is the reply produced for one command.
type Response interface {
	isResponse()
}

// AccountCreatedResponse acknowledges a creation. Receiving it proves the
// creation event is durable.
type AccountCreatedResponse struct {
	ID string
}

// BalanceUpdateResult carries the post-apply state, or nil when the update
// was rejected for insufficient funds.
type BalanceUpdateResult struct {
	Account *Account
}

// AccountQueryResult carries the current state, or nil when no creation
// event has been applied yet.
type AccountQueryResult struct {
	Account *Account
}

func (AccountCreatedResponse) isResponse() {}
func (BalanceUpdateResult) isResponse()    {}
func (AccountQueryResult) isResponse()     {}
