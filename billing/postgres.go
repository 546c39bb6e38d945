package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/paybot/core/logger"
)

// PostgresStore backs both account lookup and the receipt audit trail when a
// database is configured. Schema lives in migrations/.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Lookup implements AccountStore.
func (s *PostgresStore) Lookup(ctx context.Context, meter string) (*Account, error) {
	var row struct {
		Meter string `db:"meter"`
		Name  string `db:"holder_name"`
		Area  string `db:"area"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT meter, holder_name, area FROM accounts WHERE meter = $1`, meter)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		logger.Error(ctx, "billing", "billing.account_lookup",
			slog.String("meter", meter),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("account lookup: %w", err)
	}
	return &Account{Meter: row.Meter, Name: row.Name, Area: row.Area}, nil
}

// Save implements ReceiptStore.
func (s *PostgresStore) Save(ctx context.Context, r Receipt) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO receipts (reference, user_id, product, detail, wallet, amount, fee, total, token, created_at)
		VALUES (:reference, :user_id, :product, :detail, :wallet, :amount, :fee, :total, :token, :created_at)`,
		r)
	if err != nil {
		logger.Error(ctx, "billing", "billing.receipt_save",
			slog.String("reference", r.Reference),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("receipt save: %w", err)
	}
	logger.Debug(ctx, "billing", "billing.receipt_save",
		slog.String("reference", r.Reference),
		slog.String("flow", string(r.Product)),
		slog.Float64("total", r.Total),
	)
	return nil
}

// ByUser implements ReceiptStore.
func (s *PostgresStore) ByUser(ctx context.Context, userID string, limit int) ([]Receipt, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []Receipt
	err := s.db.SelectContext(ctx, &out, `
		SELECT reference, user_id, product, detail, wallet, amount, fee, total, token, created_at
		FROM receipts WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("receipts by user: %w", err)
	}
	return out, nil
}
