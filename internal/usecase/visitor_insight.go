package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/V4T54L/visitor-insight/internal/domain"
)

// VisitorInsightUseCase loads both datasets and reduces them for one visitor.
type VisitorInsightUseCase struct {
	loader             domain.DatasetLoader
	orders             domain.TransactionLookup
	reducer            *Reducer
	logger             *slog.Logger
	sessionsPrefix     string
	transactionsPrefix string
	timeout            time.Duration
}

// NewVisitorInsightUseCase creates a use case reading both datasets through loader.
// A zero timeout disables the per-lookup deadline.
func NewVisitorInsightUseCase(loader domain.DatasetLoader, reducer *Reducer, logger *slog.Logger, sessionsPrefix, transactionsPrefix string, timeout time.Duration) *VisitorInsightUseCase {
	return &VisitorInsightUseCase{
		loader:             loader,
		reducer:            reducer,
		logger:             logger,
		sessionsPrefix:     sessionsPrefix,
		transactionsPrefix: transactionsPrefix,
		timeout:            timeout,
	}
}

// WithOrderLookup makes the use case query orders from lookup instead of
// loading the transactional dataset.
func (uc *VisitorInsightUseCase) WithOrderLookup(lookup domain.TransactionLookup) *VisitorInsightUseCase {
	uc.orders = lookup
	return uc
}

// Lookup validates visitorID, loads the datasets concurrently and reduces them.
func (uc *VisitorInsightUseCase) Lookup(ctx context.Context, visitorID string) (*domain.VisitorInsight, error) {
	// 1. Reject malformed ids before touching storage
	if err := domain.ValidateVisitorID(visitorID); err != nil {
		return nil, err
	}

	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	// 2. Load both datasets; the first failure cancels the other load
	start := time.Now()
	var (
		sessions     domain.SessionTable
		transactions domain.TransactionTable
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := uc.loader.LoadSessions(gctx, uc.sessionsPrefix)
		if err != nil {
			return fmt.Errorf("loading sessions: %w", err)
		}
		sessions = s
		return nil
	})
	if uc.orders == nil {
		g.Go(func() error {
			t, err := uc.loader.LoadTransactions(gctx, uc.transactionsPrefix)
			if err != nil {
				return fmt.Errorf("loading transactions: %w", err)
			}
			transactions = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, asTimeout(ctx, err)
	}

	orders := uc.orders
	if orders == nil {
		orders = transactions
	}
	uc.logger.Debug("datasets loaded",
		"visitor_id", visitorID,
		"sessions", len(sessions),
		"transactions", len(transactions),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	// 3. Reduce
	insight, err := uc.reducer.Reduce(ctx, sessions, orders, visitorID)
	if err != nil {
		return nil, asTimeout(ctx, err)
	}
	return insight, nil
}

// asTimeout marks err as ErrTimeout when the lookup deadline caused it.
func asTimeout(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return err
}
