package mysql

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/bankbook/internal/ledger"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set; skipping MySQL store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn, 8, 4, time.Hour)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return s
}

func TestStore_OperationsRoundTrip(t *testing.T) {
	dsn := getTestDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := mustOpen(t, dsn)
	defer s.Close()

	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}

	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	if _, err := s.Insert(ctx, id, decimal.MustParse("100.00"), ledger.KindDeposit, now); err != nil {
		t.Fatalf("insert: %v", err)
	}
	op, ok, err := s.InsertIfSufficient(ctx, id, decimal.MustParse("70.00"), now.Add(time.Second))
	if err != nil || !ok {
		t.Fatalf("withdraw: ok=%v err=%v", ok, err)
	}
	if op.Kind != ledger.KindWithdrawal || op.Amount.String() != "70.00" {
		t.Fatalf("unexpected operation: %+v", op)
	}
	if _, ok, err := s.InsertIfSufficient(ctx, id, decimal.MustParse("31.00"), now.Add(2*time.Second)); err != nil || ok {
		t.Fatalf("overdraft withdraw: ok=%v err=%v", ok, err)
	}

	bal, err := s.SumBalance(ctx, id)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if bal.Cmp(decimal.MustParse("30.00")) != 0 {
		t.Errorf("balance = %s, want 30.00", bal)
	}

	hist, err := s.SelectHistory(ctx, id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history has %d entries, want 2", len(hist))
	}
	if hist[0].Kind != ledger.KindWithdrawal || hist[1].Kind != ledger.KindDeposit {
		t.Errorf("history order wrong: %+v", hist)
	}

	empty, err := s.SumBalance(ctx, uuid.New())
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if !empty.IsZero() {
		t.Errorf("balance of unknown account = %s, want 0", empty)
	}
}

func TestStore_ConcurrentWithdrawals(t *testing.T) {
	dsn := getTestDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s := mustOpen(t, dsn)
	defer s.Close()

	id := uuid.New()
	if _, err := s.Insert(ctx, id, decimal.MustParse("100.00"), ledger.KindDeposit, time.Now().UTC()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok, err := s.InsertIfSufficient(ctx, id, decimal.MustParse("60.00"), time.Now().UTC())
			if err != nil {
				t.Errorf("withdraw: %v", err)
				return
			}
			results[i] = ok
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, ok := range results {
		if ok {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d concurrent withdrawals succeeded, want exactly 1", succeeded)
	}
}
