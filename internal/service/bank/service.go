// Package bank implements the ledger service: it records deposits and
// withdrawals against account ids and derives balance and history from the
// append-only operation log. The no-overdraft invariant is enforced here by
// delegating the balance-check-then-append sequence to the store's atomic
// conditional append, so it holds under concurrent requests.
package bank

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinoosan/bankbook/internal/errs"
	"github.com/tinoosan/bankbook/internal/ledger"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bankbook",
			Name:      "operations_total",
			Help:      "Total number of operations appended to the ledger",
		},
		[]string{"kind"},
	)
	insufficientFundsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bankbook",
			Name:      "withdrawals_rejected_total",
			Help:      "Total number of withdrawals rejected for insufficient funds",
		},
	)
)

// Store defines the persistence operations needed by the service. Two SQL
// implementations (postgres, mysql) and an in-memory one satisfy it; any
// implementation is interchangeable.
type Store interface {
	// Insert appends one operation. The amount is the positive magnitude;
	// the store persists the signed encoding. The returned Operation is
	// built from the inputs, not re-read.
	Insert(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind ledger.Kind, at time.Time) (ledger.Operation, error)
	// InsertIfSufficient appends a withdrawal only if the account balance
	// covers the amount, atomically with respect to other withdrawals on
	// the same account. The bool is false when funds were insufficient and
	// nothing was appended.
	InsertIfSufficient(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, at time.Time) (ledger.Operation, bool, error)
	// SumBalance returns the sum of signed amounts for the account, zero
	// when it has no rows.
	SumBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	// SelectHistory returns the account's operations ordered by time
	// descending, ties broken by descending insertion sequence.
	SelectHistory(ctx context.Context, accountID uuid.UUID) ([]ledger.Operation, error)
}

// Service exposes the four ledger operations.
type Service interface {
	// Deposit appends a DEPOSIT operation. A zero at means "now".
	Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, at time.Time) (ledger.Operation, error)
	// Withdraw appends a WITHDRAWAL operation if the balance covers the
	// amount. The bool is false when funds were insufficient; that is a
	// normal outcome, not an error.
	Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, at time.Time) (ledger.Operation, bool, error)
	// Balance returns the account's derived balance, zero when the account
	// has no operations.
	Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	// History returns the account's operations, most recent first, empty
	// when the account has none.
	History(ctx context.Context, accountID uuid.UUID) ([]ledger.Operation, error)
}

type service struct {
	store Store
}

// New constructs a Service over the given store.
func New(store Store) Service { return &service{store: store} }

// validate normalizes the amount and checks the shared preconditions of
// deposit and withdraw.
func validate(accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if accountID == uuid.Nil {
		return decimal.Decimal{}, errs.ErrInvalid
	}
	norm := ledger.NormalizeAmount(amount)
	if !norm.IsPos() {
		return decimal.Decimal{}, errs.ErrInvalidAmount
	}
	return norm, nil
}

func (s *service) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, at time.Time) (ledger.Operation, error) {
	norm, err := validate(accountID, amount)
	if err != nil {
		return ledger.Operation{}, err
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	op, err := s.store.Insert(ctx, accountID, norm, ledger.KindDeposit, at)
	if err != nil {
		return ledger.Operation{}, fmt.Errorf("deposit: %w", err)
	}
	operationsTotal.WithLabelValues(string(ledger.KindDeposit)).Inc()
	return op, nil
}

func (s *service) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, at time.Time) (ledger.Operation, bool, error) {
	norm, err := validate(accountID, amount)
	if err != nil {
		return ledger.Operation{}, false, err
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	op, ok, err := s.store.InsertIfSufficient(ctx, accountID, norm, at)
	if err != nil {
		return ledger.Operation{}, false, fmt.Errorf("withdraw: %w", err)
	}
	if !ok {
		insufficientFundsTotal.Inc()
		return ledger.Operation{}, false, nil
	}
	operationsTotal.WithLabelValues(string(ledger.KindWithdrawal)).Inc()
	return op, true, nil
}

func (s *service) Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	if accountID == uuid.Nil {
		return decimal.Decimal{}, errs.ErrInvalid
	}
	bal, err := s.store.SumBalance(ctx, accountID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("balance: %w", err)
	}
	return bal, nil
}

func (s *service) History(ctx context.Context, accountID uuid.UUID) ([]ledger.Operation, error) {
	if accountID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	ops, err := s.store.SelectHistory(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return ops, nil
}
