package memory

// Package memory provides a simple in-memory implementation used for
// development and tests. It keeps code paths easy to follow while allowing
// us to plug in a real DB later.
import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/bankbook/internal/ledger"
)

// row is the stored representation of one operation: a signed magnitude plus
// a process-wide monotonic seq used as the ordering tie-break when two rows
// share a timestamp.
type row struct {
	seq        int64
	signed     decimal.Decimal
	insertedAt time.Time
}

// Store is an in-memory implementation of bank.Store. The mutex serializes
// the conditional append, which is what makes two concurrent withdrawals on
// the same account see each other.
type Store struct {
	mu   sync.Mutex
	rows map[uuid.UUID][]row
	seq  int64
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{rows: make(map[uuid.UUID][]row)}
}

// Reset drops all rows. Test helper.
func (s *Store) Reset() {
	s.mu.Lock()
	s.rows = make(map[uuid.UUID][]row)
	s.seq = 0
	s.mu.Unlock()
}

// Ready always succeeds for the in-memory backend.
func (s *Store) Ready(_ context.Context) error { return nil }

func (s *Store) append(accountID uuid.UUID, signed decimal.Decimal, at time.Time) {
	s.seq++
	s.rows[accountID] = append(s.rows[accountID], row{seq: s.seq, signed: signed, insertedAt: at})
}

func (s *Store) sumLocked(accountID uuid.UUID) (decimal.Decimal, error) {
	sum := ledger.Zero()
	var err error
	for _, r := range s.rows[accountID] {
		sum, err = sum.Add(r.signed)
		if err != nil {
			return decimal.Decimal{}, err
		}
	}
	return sum, nil
}

// Insert implements bank.Store.
func (s *Store) Insert(_ context.Context, accountID uuid.UUID, amount decimal.Decimal, kind ledger.Kind, at time.Time) (ledger.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.append(accountID, ledger.SignedAmount(amount, kind), at)
	return ledger.Operation{AccountID: accountID, Kind: kind, Amount: amount, Time: at}, nil
}

// InsertIfSufficient implements bank.Store. Check and append happen under
// one lock acquisition, so the no-overdraft invariant holds across
// goroutines.
func (s *Store) InsertIfSufficient(_ context.Context, accountID uuid.UUID, amount decimal.Decimal, at time.Time) (ledger.Operation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, err := s.sumLocked(accountID)
	if err != nil {
		return ledger.Operation{}, false, err
	}
	if balance.Cmp(amount) < 0 {
		return ledger.Operation{}, false, nil
	}
	s.append(accountID, ledger.SignedAmount(amount, ledger.KindWithdrawal), at)
	return ledger.Operation{AccountID: accountID, Kind: ledger.KindWithdrawal, Amount: amount, Time: at}, true, nil
}

// SumBalance implements bank.Store.
func (s *Store) SumBalance(_ context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumLocked(accountID)
}

// SelectHistory implements bank.Store. Rows are held in insertion order;
// the result is ordered by inserted_at descending with seq as tie-break.
func (s *Store) SelectHistory(_ context.Context, accountID uuid.UUID) ([]ledger.Operation, error) {
	s.mu.Lock()
	rows := make([]row, len(s.rows[accountID]))
	copy(rows, s.rows[accountID])
	s.mu.Unlock()

	// Insertion order is already ascending (inserted_at, seq) for rows
	// written through the service, so reversing yields descending order.
	// Out-of-order caller-supplied timestamps still sort correctly below.
	out := make([]ledger.Operation, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, ledger.FromSigned(accountID, rows[i].signed, rows[i].insertedAt))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	return out, nil
}
