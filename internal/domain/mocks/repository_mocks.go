package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/V4T54L/visitor-insight/internal/domain"
)

// MockObjectStore is an in-memory implementation of domain.ObjectStore for testing.
type MockObjectStore struct {
	mu       sync.Mutex
	Objects  map[string][]byte
	ListErr  error
	GetErr   error
	GetErrs  map[string]error // per-key failures, checked before GetErr
	Listed   []string
	Fetched  []string
	GetDelay time.Duration
}

func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{Objects: make(map[string][]byte)}
}

func (m *MockObjectStore) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = data
}

func (m *MockObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Listed = append(m.Listed, prefix)
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var keys []string
	for k := range m.Objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *MockObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	m.Fetched = append(m.Fetched, key)
	delay := m.GetDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.GetErrs[key]; ok {
		return nil, err
	}
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	data, ok := m.Objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

// MockListingCache is an in-memory implementation of domain.ListingCache.
type MockListingCache struct {
	mu       sync.Mutex
	Listings map[string][]string
	TTLs     map[string]time.Duration
	GetErr   error
	PutErr   error
}

func NewMockListingCache() *MockListingCache {
	return &MockListingCache{
		Listings: make(map[string][]string),
		TTLs:     make(map[string]time.Duration),
	}
}

func (m *MockListingCache) GetListing(ctx context.Context, prefix string) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	keys, ok := m.Listings[prefix]
	return keys, ok, nil
}

func (m *MockListingCache) PutListing(ctx context.Context, prefix string, keys []string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Listings[prefix] = append([]string(nil), keys...)
	m.TTLs[prefix] = ttl
	return nil
}

// SpyTransactionLookup records every lookup and answers from Table.
type SpyTransactionLookup struct {
	mu      sync.Mutex
	Table   domain.TransactionTable
	Err     error
	Queries []string
}

func (s *SpyTransactionLookup) FindByFrontendOrderID(ctx context.Context, orderID string) (*domain.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Queries = append(s.Queries, orderID)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Table.FindByFrontendOrderID(ctx, orderID)
}

func (s *SpyTransactionLookup) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Queries)
}

// MockDatasetLoader returns canned tables per prefix.
type MockDatasetLoader struct {
	mu              sync.Mutex
	Sessions        domain.SessionTable
	Transactions    domain.TransactionTable
	SessionsErr     error
	TransactionsErr error
	LoadedPrefixes  []string
	Delay           time.Duration
}

func (m *MockDatasetLoader) LoadSessions(ctx context.Context, prefix string) (domain.SessionTable, error) {
	if err := m.wait(ctx, prefix); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SessionsErr != nil {
		return nil, m.SessionsErr
	}
	return m.Sessions, nil
}

func (m *MockDatasetLoader) LoadTransactions(ctx context.Context, prefix string) (domain.TransactionTable, error) {
	if err := m.wait(ctx, prefix); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TransactionsErr != nil {
		return nil, m.TransactionsErr
	}
	return m.Transactions, nil
}

func (m *MockDatasetLoader) Prefixes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.LoadedPrefixes...)
}

func (m *MockDatasetLoader) wait(ctx context.Context, prefix string) error {
	m.mu.Lock()
	m.LoadedPrefixes = append(m.LoadedPrefixes, prefix)
	delay := m.Delay
	m.mu.Unlock()
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
