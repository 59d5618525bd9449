package account

import "github.com/shopspring/decimal"

// Account is the state of one bank account. ID and Currency are immutable
// once set; Balance never goes below zero after an applied event.
type Account struct {
	ID       string          `json:"id"`
	Owner    string          `json:"owner"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// Unborn returns the placeholder state bound to an identifier before any
// creation event exists. It must never leak out of query or update replies.
func Unborn(id string) Account {
	return Account{ID: id, Balance: decimal.Zero}
}

// Created reports whether a creation event has been applied.
func (a Account) Created() bool {
	return a.Owner != "" || a.Currency != ""
}
