// Package codec encodes account events into a compact binary form shared by
// every journal backend, so the stored representation does not depend on the
// storage engine.
package codec

import (
	"encoding/binary"
	"math"

	"github.com/shopspring/decimal"

	"main/internal/account"
	"main/pkg/exception"
)

// EventType tags an encoded event payload.
type EventType uint8

const (
	EventUnknown EventType = iota
	EventAccountCreated
	EventBalanceChanged
)

// EncodeEvent appends the binary form of an event to dst.
// Layout: type byte, then length-prefixed fields. Decimals are stored as
// their canonical string form so replay is exact.
func EncodeEvent(dst []byte, evt account.Event) ([]byte, error) {
	switch e := evt.(type) {
	case account.AccountCreated:
		balance := e.Account.Balance.String()
		if err := fieldsFit(e.Account.ID, e.Account.Owner, e.Account.Currency, balance); err != nil {
			return dst, err
		}
		dst = append(dst, byte(EventAccountCreated))
		dst = appendString(dst, e.Account.ID)
		dst = appendString(dst, e.Account.Owner)
		dst = appendString(dst, e.Account.Currency)
		dst = appendString(dst, balance)
		return dst, nil
	case account.BalanceChanged:
		delta := e.Delta.String()
		if err := fieldsFit(delta); err != nil {
			return dst, err
		}
		dst = append(dst, byte(EventBalanceChanged))
		dst = appendString(dst, delta)
		return dst, nil
	default:
		return dst, exception.ErrCodecUnknownEvent
	}
}

// DecodeEvent parses one encoded event payload.
func DecodeEvent(src []byte) (account.Event, error) {
	if len(src) < 1 {
		return nil, exception.ErrCodecShortBuffer
	}
	typ := EventType(src[0])
	rest := src[1:]

	switch typ {
	case EventAccountCreated:
		id, rest, err := readString(rest)
		if err != nil {
			return nil, err
		}
		owner, rest, err := readString(rest)
		if err != nil {
			return nil, err
		}
		currency, rest, err := readString(rest)
		if err != nil {
			return nil, err
		}
		raw, _, err := readString(rest)
		if err != nil {
			return nil, err
		}
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, exception.ErrCodecInvalidDecimal
		}
		return account.AccountCreated{Account: account.Account{
			ID:       id,
			Owner:    owner,
			Currency: currency,
			Balance:  balance,
		}}, nil

	case EventBalanceChanged:
		raw, _, err := readString(rest)
		if err != nil {
			return nil, err
		}
		delta, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, exception.ErrCodecInvalidDecimal
		}
		return account.BalanceChanged{Delta: delta}, nil

	default:
		return nil, exception.ErrCodecUnknownEvent
	}
}

// fieldsFit rejects any field that would wrap the uint16 length prefix.
// Without it an oversized field would encode silently and poison the journal.
func fieldsFit(fields ...string) error {
	for _, s := range fields {
		if len(s) > math.MaxUint16 {
			return exception.ErrCodecFieldTooLarge
		}
	}
	return nil
}

func appendString(dst []byte, s string) []byte {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, s...)
}

func readString(src []byte) (string, []byte, error) {
	if len(src) < 2 {
		return "", nil, exception.ErrCodecShortBuffer
	}
	n := int(binary.LittleEndian.Uint16(src[:2]))
	src = src[2:]
	if len(src) < n {
		return "", nil, exception.ErrCodecShortBuffer
	}
	return string(src[:n]), src[n:], nil
}
