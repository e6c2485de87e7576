package mysql

// Package mysql provides a database/sql store over the go-sql-driver that
// satisfies bank.Store. It differs from the postgres store only in dialect:
// inline ? placeholders, char(36) account ids, and InnoDB locking reads for
// the conditional append.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/bankbook/internal/ledger"
)

// Store holds a database/sql pool. All methods are safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open connects using the provided DSN. ParseTime is forced on so that
// inserted_at scans into time.Time regardless of the caller's DSN.
func Open(ctx context.Context, dsn string, maxOpen, maxIdle int, connMaxLifetime time.Duration) (*Store, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.db.PingContext(ctx) }

// EnsureSchema creates the operations table if it does not exist. seq is the
// authoritative tie-break for rows sharing a timestamp; timestamp(6) keeps
// microsecond resolution to match the postgres backend.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
        create table if not exists operations (
            seq         bigint unsigned auto_increment primary key,
            account_id  char(36)      not null,
            amount      decimal(20,2) not null,
            inserted_at timestamp(6)  not null default current_timestamp(6),
            index operations_account_time_idx (account_id, inserted_at)
        )
    `)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Insert implements bank.Store.
func (s *Store) Insert(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind ledger.Kind, at time.Time) (ledger.Operation, error) {
	signed := ledger.SignedAmount(amount, kind)
	_, err := s.db.ExecContext(ctx, `
        insert into operations (account_id, amount, inserted_at) values (?, ?, ?)
    `, accountID.String(), signed.String(), at)
	if err != nil {
		return ledger.Operation{}, err
	}
	return ledger.Operation{AccountID: accountID, Kind: kind, Amount: amount, Time: at}, nil
}

// InsertIfSufficient implements bank.Store. The balance is summed from a
// locking read inside the transaction; InnoDB next-key locks on the
// account_id index block concurrent appends for the same account until
// commit, so two withdrawals cannot both pass the check.
func (s *Store) InsertIfSufficient(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, at time.Time) (ledger.Operation, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Operation{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	balance, err := lockedBalance(ctx, tx, accountID)
	if err != nil {
		return ledger.Operation{}, false, err
	}
	if balance.Cmp(amount) < 0 {
		return ledger.Operation{}, false, nil
	}

	if _, err := tx.ExecContext(ctx, `
        insert into operations (account_id, amount, inserted_at) values (?, ?, ?)
    `, accountID.String(), ledger.SignedAmount(amount, ledger.KindWithdrawal).String(), at); err != nil {
		return ledger.Operation{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return ledger.Operation{}, false, err
	}
	return ledger.Operation{AccountID: accountID, Kind: ledger.KindWithdrawal, Amount: amount, Time: at}, true, nil
}

// lockedBalance sums the account's rows under FOR UPDATE.
func lockedBalance(ctx context.Context, tx *sql.Tx, accountID uuid.UUID) (decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx, `
        select amount from operations where account_id = ? for update
    `, accountID.String())
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer rows.Close()
	sum := ledger.Zero()
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return decimal.Decimal{}, err
		}
		amt, err := decimal.Parse(text)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", text, err)
		}
		sum, err = sum.Add(amt)
		if err != nil {
			return decimal.Decimal{}, err
		}
	}
	return sum, rows.Err()
}

// SumBalance implements bank.Store.
func (s *Store) SumBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `
        select coalesce(sum(amount), 0) from operations where account_id = ?
    `, accountID.String()).Scan(&text)
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
	rows, err := s.db.QueryContext(ctx, `
        select account_id, amount, inserted_at
        from operations
        where account_id = ?
        order by inserted_at desc, seq desc
    `, accountID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	accIdx := columnIndex(names, "account_id")
	amtIdx := columnIndex(names, "amount")
	atIdx := columnIndex(names, "inserted_at")
	if accIdx < 0 || amtIdx < 0 || atIdx < 0 {
		return nil, fmt.Errorf("unexpected result columns %v", names)
	}

	out := make([]ledger.Operation, 0)
	for rows.Next() {
		var accText, amtText string
		var at time.Time
		dest := make([]any, len(names))
		for i := range dest {
			dest[i] = new(sql.RawBytes)
		}
		dest[accIdx] = &accText
		dest[amtIdx] = &amtText
		dest[atIdx] = &at
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		acc, err := uuid.Parse(accText)
		if err != nil {
			return nil, fmt.Errorf("parse account_id %q: %w", accText, err)
		}
		signed, err := decimal.Parse(amtText)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amtText, err)
		}
		out = append(out, ledger.FromSigned(acc, signed, at))
	}
	return out, rows.Err()
}

// columnIndex resolves a result column by name ignoring case.
func columnIndex(names []string, want string) int {
	for i, n := range names {
		if strings.EqualFold(n, want) {
			return i
		}
	}
	return -1
}
