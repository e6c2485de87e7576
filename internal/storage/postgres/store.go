package postgres

// Package postgres provides a pgx-backed store that satisfies bank.Store.
//
// It is intentionally small and explicit: the expected schema is created by
// EnsureSchema at boot, and the package focuses on mapping between the
// domain Operation and SQL rows. Statements use pgx named arguments.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/bankbook/internal/ledger"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// EnsureSchema creates the operations table if it does not exist. seq is the
// authoritative tie-break for rows sharing a timestamp.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
        create table if not exists operations (
            seq         bigserial      primary key,
            account_id  uuid           not null,
            amount      numeric(20,2)  not null,
            inserted_at timestamp      not null default current_timestamp
        );
        create index if not exists operations_account_time_idx
            on operations (account_id, inserted_at);
    `)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Insert implements bank.Store. The row stores the signed encoding; the
// returned Operation is built from the inputs.
func (s *Store) Insert(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind ledger.Kind, at time.Time) (ledger.Operation, error) {
	signed := ledger.SignedAmount(amount, kind)
	_, err := s.pool.Exec(ctx, `
        insert into operations (account_id, amount, inserted_at)
        values (@account_id, @amount, @inserted_at)
    `, pgx.NamedArgs{
		"account_id":  accountID,
		"amount":      signed.String(),
		"inserted_at": at,
	})
	if err != nil {
		return ledger.Operation{}, err
	}
	return ledger.Operation{AccountID: accountID, Kind: kind, Amount: amount, Time: at}, nil
}

// InsertIfSufficient implements bank.Store. A transaction-scoped advisory
// lock keyed on the account id serializes concurrent withdrawals, so two of
// them can never both read the pre-withdrawal balance.
func (s *Store) InsertIfSufficient(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, at time.Time) (ledger.Operation, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Operation{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
        select pg_advisory_xact_lock(hashtextextended(@key, 0))
    `, pgx.NamedArgs{"key": accountID.String()}); err != nil {
		return ledger.Operation{}, false, err
	}

	balance, err := sumBalance(ctx, tx, accountID)
	if err != nil {
		return ledger.Operation{}, false, err
	}
	if balance.Cmp(amount) < 0 {
		return ledger.Operation{}, false, nil
	}

	if _, err := tx.Exec(ctx, `
        insert into operations (account_id, amount, inserted_at)
        values (@account_id, @amount, @inserted_at)
    `, pgx.NamedArgs{
		"account_id":  accountID,
		"amount":      ledger.SignedAmount(amount, ledger.KindWithdrawal).String(),
		"inserted_at": at,
	}); err != nil {
		return ledger.Operation{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Operation{}, false, err
	}
	return ledger.Operation{AccountID: accountID, Kind: ledger.KindWithdrawal, Amount: amount, Time: at}, true, nil
}

// SumBalance implements bank.Store.
func (s *Store) SumBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return sumBalance(ctx, s.pool, accountID)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func sumBalance(ctx context.Context, q querier, accountID uuid.UUID) (decimal.Decimal, error) {
	var text string
	err := q.QueryRow(ctx, `
        select coalesce(sum(amount), 0)::text
        from operations
        where account_id = @account_id
    `, pgx.NamedArgs{"account_id": accountID}).Scan(&text)
	if err != nil {
		return decimal.Decimal{}, err
	}
	bal, err := decimal.Parse(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse balance %q: %w", text, err)
	}
	// an empty account sums to "0"; pad so callers always see ledger scale
	return bal.Pad(ledger.Scale), nil
}

// SelectHistory implements bank.Store. Result columns are resolved by name,
// case-insensitively, so the mapping survives engines that report
// identifiers in different cases.
func (s *Store) SelectHistory(ctx context.Context, accountID uuid.UUID) ([]ledger.Operation, error) {
	rows, err := s.pool.Query(ctx, `
        select account_id::text as account_id, amount::text as amount, inserted_at
        from operations
        where account_id = @account_id
        order by inserted_at desc, seq desc
    `, pgx.NamedArgs{"account_id": accountID})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fd.Name
	}
	accIdx := columnIndex(names, "account_id")
	amtIdx := columnIndex(names, "amount")
	atIdx := columnIndex(names, "inserted_at")
	if accIdx < 0 || amtIdx < 0 || atIdx < 0 {
		return nil, fmt.Errorf("unexpected result columns %v", names)
	}

	out := make([]ledger.Operation, 0)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		op, err := operationFromRow(vals, accIdx, amtIdx, atIdx)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

// operationFromRow rebuilds a domain Operation from decoded row values.
func operationFromRow(vals []any, accIdx, amtIdx, atIdx int) (ledger.Operation, error) {
	accText, ok := vals[accIdx].(string)
	if !ok {
		return ledger.Operation{}, fmt.Errorf("account_id: unexpected type %T", vals[accIdx])
	}
	accountID, err := uuid.Parse(accText)
	if err != nil {
		return ledger.Operation{}, fmt.Errorf("parse account_id %q: %w", accText, err)
	}
	amtText, ok := vals[amtIdx].(string)
	if !ok {
		return ledger.Operation{}, fmt.Errorf("amount: unexpected type %T", vals[amtIdx])
	}
	signed, err := decimal.Parse(amtText)
	if err != nil {
		return ledger.Operation{}, fmt.Errorf("parse amount %q: %w", amtText, err)
	}
	at, ok := vals[atIdx].(time.Time)
	if !ok {
		return ledger.Operation{}, fmt.Errorf("inserted_at: unexpected type %T", vals[atIdx])
	}
	return ledger.FromSigned(accountID, signed, at), nil
}

// columnIndex resolves a result column by name ignoring case. Different
// engines report column identifiers in different cases.
func columnIndex(names []string, want string) int {
	for i, n := range names {
		if strings.EqualFold(n, want) {
			return i
		}
	}
	return -1
}
