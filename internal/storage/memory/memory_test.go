package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/bankbook/internal/ledger"
)

func TestInsertAndSum(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := uuid.New()
	now := time.Now().UTC()

	op, err := s.Insert(ctx, id, decimal.MustParse("100.00"), ledger.KindDeposit, now)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if op.AccountID != id || op.Kind != ledger.KindDeposit || op.Amount.String() != "100.00" {
		t.Fatalf("unexpected operation: %+v", op)
	}
	if _, err := s.Insert(ctx, id, decimal.MustParse("30.00"), ledger.KindWithdrawal, now.Add(time.Second)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	bal, err := s.SumBalance(ctx, id)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if bal.Cmp(decimal.MustParse("70.00")) != 0 {
		t.Errorf("balance = %s, want 70.00", bal)
	}

	other, err := s.SumBalance(ctx, uuid.New())
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if !other.IsZero() {
		t.Errorf("balance of unknown account = %s, want 0", other)
	}
}

func TestInsertIfSufficient(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := uuid.New()
	now := time.Now().UTC()

	if _, ok, err := s.InsertIfSufficient(ctx, id, decimal.MustParse("1.00"), now); err != nil || ok {
		t.Fatalf("withdraw from empty account: ok=%v err=%v", ok, err)
	}
	if _, err := s.Insert(ctx, id, decimal.MustParse("50.00"), ledger.KindDeposit, now); err != nil {
		t.Fatalf("insert: %v", err)
	}
	op, ok, err := s.InsertIfSufficient(ctx, id, decimal.MustParse("50.00"), now.Add(time.Second))
	if err != nil || !ok {
		t.Fatalf("withdraw: ok=%v err=%v", ok, err)
	}
	if op.Kind != ledger.KindWithdrawal {
		t.Errorf("kind = %s, want %s", op.Kind, ledger.KindWithdrawal)
	}
	if _, ok, _ := s.InsertIfSufficient(ctx, id, decimal.MustParse("0.01"), now.Add(2*time.Second)); ok {
		t.Error("withdraw from drained account succeeded")
	}
}

func TestHistoryOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := uuid.New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// two rows share a timestamp; insertion seq breaks the tie
	if _, err := s.Insert(ctx, id, decimal.MustParse("1.00"), ledger.KindDeposit, base); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, id, decimal.MustParse("2.00"), ledger.KindDeposit, base); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, id, decimal.MustParse("3.00"), ledger.KindDeposit, base.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	hist, err := s.SelectHistory(ctx, id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []string{"3.00", "2.00", "1.00"}
	if len(hist) != len(want) {
		t.Fatalf("history has %d entries, want %d", len(hist), len(want))
	}
	for i, w := range want {
		if hist[i].Amount.String() != w {
			t.Errorf("history[%d].Amount = %s, want %s", i, hist[i].Amount, w)
		}
	}

	empty, err := s.SelectHistory(ctx, uuid.New())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("history of unknown account has %d entries, want 0", len(empty))
	}
}
