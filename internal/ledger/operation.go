// Package ledger holds the domain model of the service: immutable account
// operations and the amount rules every layer must agree on.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

// Kind enumerates the two sides of the ledger.
type Kind string

const (
	// KindDeposit adds funds to an account.
	KindDeposit Kind = "DEPOSIT"
	// KindWithdrawal removes funds from an account.
	KindWithdrawal Kind = "WITHDRAWAL"
)

// Scale is the fixed number of decimal places for every amount.
const Scale = 2

// Operation is one entry in an account's append-only log. Amount is always
// the positive magnitude; the sign lives in Kind. Operations are never
// mutated or deleted once created.
type Operation struct {
	AccountID uuid.UUID
	Kind      Kind
	Amount    decimal.Decimal
	Time      time.Time
}

// Zero returns the canonical zero amount at ledger scale.
func Zero() decimal.Decimal {
	return decimal.MustNew(0, Scale)
}

// NormalizeAmount floors the supplied value to ledger scale (round toward
// negative infinity) and zero-pads it to exactly two decimal places.
// Storage and sufficiency checks only ever see normalized amounts, so
// boundary values like 100.005 behave identically everywhere.
func NormalizeAmount(d decimal.Decimal) decimal.Decimal {
	return d.Floor(Scale).Pad(Scale)
}

// ValidAmount reports whether a normalized amount may be recorded: it must
// be strictly positive after flooring.
func ValidAmount(d decimal.Decimal) bool {
	return NormalizeAmount(d).IsPos()
}

// SignedAmount returns the magnitude as persisted: withdrawals are stored
// negated so that an account's balance is always the plain sum of its rows.
func SignedAmount(amount decimal.Decimal, kind Kind) decimal.Decimal {
	if kind == KindWithdrawal {
		return amount.Neg()
	}
	return amount
}

// KindFromSigned derives the operation kind from a stored signed magnitude.
func KindFromSigned(d decimal.Decimal) Kind {
	if d.IsPos() {
		return KindDeposit
	}
	return KindWithdrawal
}

// FromSigned rebuilds a domain Operation from its row representation.
func FromSigned(accountID uuid.UUID, signed decimal.Decimal, at time.Time) Operation {
	return Operation{
		AccountID: accountID,
		Kind:      KindFromSigned(signed),
		Amount:    signed.Abs(),
		Time:      at,
	}
}
