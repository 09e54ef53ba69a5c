package parquet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	arrowparquet "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/V4T54L/visitor-insight/internal/adapter/metrics"
	"github.com/V4T54L/visitor-insight/internal/domain"
)

const (
	datasetSessions     = "sessions"
	datasetTransactions = "transactions"
)

// Columns names the Parquet columns the loader reads.
type Columns struct {
	VisitorID       string
	OperatingSystem string
	Hits            string
	EventAction     string // field path inside a hit struct, dots for nesting
	TransactionID   string // field path inside a hit struct, dots for nesting
	FrontendOrderID string
	GeopointDropoff string
}

// DefaultColumns matches the analytics export and backend order dumps.
func DefaultColumns() Columns {
	return Columns{
		VisitorID:       "fullvisitorid",
		OperatingSystem: "operatingSystem",
		Hits:            "hit",
		EventAction:     "eventAction",
		TransactionID:   "transactionId",
		FrontendOrderID: "frontendOrderId",
		GeopointDropoff: "geopointDropoff",
	}
}

// Loader implements domain.DatasetLoader over Parquet part files in an object store.
type Loader struct {
	store       domain.ObjectStore
	cache       domain.ListingCache
	cacheTTL    time.Duration
	pattern     string
	readTimeout time.Duration
	columns     Columns
	mem         memory.Allocator
	logger      *slog.Logger
	metrics     *metrics.InsightMetrics
}

// NewLoader creates a Loader. pattern is a path.Match glob applied to the key
// remainder after the prefix, e.g. "part-*". A zero readTimeout leaves reads
// bounded only by the caller's context.
func NewLoader(store domain.ObjectStore, logger *slog.Logger, m *metrics.InsightMetrics, pattern string, readTimeout time.Duration, columns Columns) *Loader {
	return &Loader{
		store:       store,
		pattern:     pattern,
		readTimeout: readTimeout,
		columns:     columns,
		mem:         memory.DefaultAllocator,
		logger:      logger.With("component", "dataset_loader"),
		metrics:     m,
	}
}

// WithListingCache serves object listings from cache for ttl.
func (l *Loader) WithListingCache(cache domain.ListingCache, ttl time.Duration) *Loader {
	l.cache = cache
	l.cacheTTL = ttl
	return l
}

// WithAllocator overrides the arrow allocator used while decoding.
func (l *Loader) WithAllocator(mem memory.Allocator) *Loader {
	l.mem = mem
	return l
}

// LoadSessions reads every session part file under prefix, in key order.
func (l *Loader) LoadSessions(ctx context.Context, prefix string) (domain.SessionTable, error) {
	var out domain.SessionTable
	err := l.load(ctx, datasetSessions, prefix, func(tbl arrow.Table) error {
		rows, err := decodeSessions(tbl, l.columns)
		if err != nil {
			return err
		}
		out = append(out, rows...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadTransactions reads every transaction part file under prefix, in key order.
func (l *Loader) LoadTransactions(ctx context.Context, prefix string) (domain.TransactionTable, error) {
	var out domain.TransactionTable
	err := l.load(ctx, datasetTransactions, prefix, func(tbl arrow.Table) error {
		rows, err := decodeTransactions(tbl, l.columns)
		if err != nil {
			return err
		}
		out = append(out, rows...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Loader) load(ctx context.Context, dataset, prefix string, decode func(arrow.Table) error) error {
	start := time.Now()

	keys, err := l.PartFiles(ctx, prefix)
	if err != nil {
		return err
	}

	var total int
	for _, key := range keys {
		data, err := l.read(ctx, key)
		if err != nil {
			return err
		}
		if err := l.decodeFile(ctx, key, data, decode); err != nil {
			return err
		}
		total += len(data)
		if l.metrics != nil {
			l.metrics.FilesLoadedTotal.WithLabelValues(dataset).Inc()
			l.metrics.BytesLoadedTotal.WithLabelValues(dataset).Add(float64(len(data)))
		}
	}

	duration := time.Since(start)
	if l.metrics != nil {
		l.metrics.LoadDuration.WithLabelValues(dataset).Observe(duration.Seconds())
	}
	l.logger.Info("dataset loaded",
		"dataset", dataset,
		"prefix", prefix,
		"files", len(keys),
		"bytes", total,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

// PartFiles lists the keys under prefix whose remainder matches the part-file
// pattern, sorted so that table order is stable across calls.
func (l *Loader) PartFiles(ctx context.Context, prefix string) ([]string, error) {
	keys, err := l.list(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		ok, err := path.Match(l.pattern, strings.TrimPrefix(key, prefix))
		if err != nil {
			return nil, fmt.Errorf("invalid part file pattern %q: %w", l.pattern, err)
		}
		if ok {
			matched = append(matched, key)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: no files matching %q under %q", domain.ErrNotFound, l.pattern, prefix)
	}
	sort.Strings(matched)
	return matched, nil
}

func (l *Loader) list(ctx context.Context, prefix string) ([]string, error) {
	if l.cache != nil {
		keys, found, err := l.cache.GetListing(ctx, prefix)
		switch {
		case err != nil:
			l.logger.Warn("listing cache read failed, falling back to store", "prefix", prefix, "error", err)
		case found:
			if l.metrics != nil {
				l.metrics.ListingCacheHits.Inc()
			}
			return keys, nil
		}
		if l.metrics != nil {
			l.metrics.ListingCacheMisses.Inc()
		}
	}

	keys, err := l.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", prefix, timeoutAware(err))
	}

	if l.cache != nil && len(keys) > 0 {
		if err := l.cache.PutListing(ctx, prefix, keys, l.cacheTTL); err != nil {
			l.logger.Warn("listing cache write failed", "prefix", prefix, "error", err)
		}
	}
	return keys, nil
}

func (l *Loader) read(ctx context.Context, key string) ([]byte, error) {
	if l.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.readTimeout)
		defer cancel()
	}
	data, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", key, timeoutAware(err))
	}
	return data, nil
}

func (l *Loader) decodeFile(ctx context.Context, key string, data []byte, decode func(arrow.Table) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %q: %v", domain.ErrUnreadableFormat, key, r)
		}
	}()

	tbl, err := pqarrow.ReadTable(ctx, bytes.NewReader(data), arrowparquet.NewReaderProperties(l.mem), pqarrow.ArrowReadProperties{}, l.mem)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("decoding %q: %w", key, timeoutAware(ctxErr))
		}
		return fmt.Errorf("%w: %q: %v", domain.ErrUnreadableFormat, key, err)
	}
	defer tbl.Release()

	if err := decode(tbl); err != nil {
		return fmt.Errorf("%w: %q: %v", domain.ErrUnreadableFormat, key, err)
	}
	return nil
}

// timeoutAware tags deadline errors as ErrTimeout.
func timeoutAware(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return err
}
