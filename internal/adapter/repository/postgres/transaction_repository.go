package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/V4T54L/visitor-insight/internal/domain"
)

const defaultTransactionsTable = "transactions"

// TransactionRepository implements domain.TransactionLookup against a
// PostgreSQL copy of the backend transactions table.
type TransactionRepository struct {
	db     *sql.DB
	logger *slog.Logger
	query  string
}

// NewTransactionRepository creates a repository reading from table.
func NewTransactionRepository(db *sql.DB, logger *slog.Logger, table string) *TransactionRepository {
	if table == "" {
		table = defaultTransactionsTable
	}
	return &TransactionRepository{
		db:     db,
		logger: logger.With("component", "postgres_transactions"),
		query: `SELECT frontend_order_id, geopoint_dropoff FROM ` + pq.QuoteIdentifier(table) +
			` WHERE frontend_order_id = $1 ORDER BY id LIMIT 1`,
	}
}

// FindByFrontendOrderID returns the first row by id for orderID, or nil when
// there is none.
func (r *TransactionRepository) FindByFrontendOrderID(ctx context.Context, orderID string) (*domain.TransactionRecord, error) {
	var (
		rec     domain.TransactionRecord
		dropoff sql.NullString
	)
	err := r.db.QueryRowContext(ctx, r.query, orderID).Scan(&rec.FrontendOrderID, &dropoff)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to query transaction", "frontend_order_id", orderID, "error", err)
		return nil, fmt.Errorf("querying transaction %q: %w", orderID, classify(err))
	}

	if dropoff.Valid {
		v := dropoff.String
		rec.GeopointDropoff = &v
	}
	return &rec, nil
}

// classify maps driver errors onto domain error kinds.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "28": // invalid_authorization_specification
			return fmt.Errorf("%w: %w", domain.ErrAuth, err)
		case pqErr.Code == "42501": // insufficient_privilege
			return fmt.Errorf("%w: %w", domain.ErrAuth, err)
		case pqErr.Code == "42P01" || pqErr.Code == "42703": // undefined_table, undefined_column
			return fmt.Errorf("%w: %w", domain.ErrUnreadableFormat, err)
		}
	}
	return err
}
