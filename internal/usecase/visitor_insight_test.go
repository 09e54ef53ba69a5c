package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/V4T54L/visitor-insight/internal/domain"
	"github.com/V4T54L/visitor-insight/internal/domain/mocks"
)

func TestVisitorInsightUseCase_Lookup(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reducer := NewReducer(nil, logger)

	sessions := domain.SessionTable{
		{VisitorID: "100", OperatingSystem: "iOS", Hits: []domain.Event{
			hit("Change Location"), txHit("transaction", "T1"),
		}},
	}
	delivered := domain.TransactionTable{{FrontendOrderID: "T1", GeopointDropoff: str("52.5,13.4")}}

	t.Run("Loads both datasets", func(t *testing.T) {
		loader := &mocks.MockDatasetLoader{Sessions: sessions, Transactions: delivered}
		uc := NewVisitorInsightUseCase(loader, reducer, logger, "sessions/", "orders/", time.Second)

		got, err := uc.Lookup(context.Background(), "100")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.AddressChanged || !got.OrderPlaced || !got.OrderDelivered || got.ApplicationType != "iOS" {
			t.Errorf("unexpected insight: %+v", got)
		}

		prefixes := loader.Prefixes()
		sort.Strings(prefixes)
		if len(prefixes) != 2 || prefixes[0] != "orders/" || prefixes[1] != "sessions/" {
			t.Errorf("expected both prefixes to be loaded, got %v", prefixes)
		}
	})

	t.Run("Invalid id skips storage", func(t *testing.T) {
		loader := &mocks.MockDatasetLoader{Sessions: sessions}
		uc := NewVisitorInsightUseCase(loader, reducer, logger, "sessions/", "orders/", time.Second)

		_, err := uc.Lookup(context.Background(), "abc")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if len(loader.Prefixes()) != 0 {
			t.Errorf("expected no loads, got %v", loader.Prefixes())
		}
	})

	t.Run("Order lookup replaces transactional load", func(t *testing.T) {
		loader := &mocks.MockDatasetLoader{Sessions: sessions}
		spy := &mocks.SpyTransactionLookup{Table: delivered}
		uc := NewVisitorInsightUseCase(loader, reducer, logger, "sessions/", "orders/", time.Second).WithOrderLookup(spy)

		got, err := uc.Lookup(context.Background(), "100")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.OrderDelivered {
			t.Error("expected delivery from the order lookup")
		}
		if p := loader.Prefixes(); len(p) != 1 || p[0] != "sessions/" {
			t.Errorf("expected only the sessions load, got %v", p)
		}
		if spy.Calls() != 1 {
			t.Errorf("expected 1 lookup, got %d", spy.Calls())
		}
	})

	t.Run("Load errors propagate", func(t *testing.T) {
		loader := &mocks.MockDatasetLoader{
			Sessions:        sessions,
			TransactionsErr: domain.ErrUnreadableFormat,
		}
		uc := NewVisitorInsightUseCase(loader, reducer, logger, "sessions/", "orders/", time.Second)

		_, err := uc.Lookup(context.Background(), "100")
		if !errors.Is(err, domain.ErrUnreadableFormat) {
			t.Fatalf("expected ErrUnreadableFormat, got %v", err)
		}
	})

	t.Run("Slow loads time out", func(t *testing.T) {
		loader := &mocks.MockDatasetLoader{Sessions: sessions, Transactions: delivered, Delay: 200 * time.Millisecond}
		uc := NewVisitorInsightUseCase(loader, reducer, logger, "sessions/", "orders/", 10*time.Millisecond)

		_, err := uc.Lookup(context.Background(), "100")
		if !errors.Is(err, domain.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if errors.Is(err, domain.ErrNotFound) {
			t.Error("timeout must stay distinct from NotFound")
		}
	})

	t.Run("Unknown visitor", func(t *testing.T) {
		loader := &mocks.MockDatasetLoader{Sessions: sessions, Transactions: delivered}
		uc := NewVisitorInsightUseCase(loader, reducer, logger, "sessions/", "orders/", 0)

		_, err := uc.Lookup(context.Background(), "101")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
