package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env file

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.ServerAddr)
	assert.Equal(t, "product-analytics-hiring-tests-public", cfg.Storage.Bucket)
	assert.Equal(t, "part-*", cfg.PartFilePattern)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, TransactionsSourceBlob, cfg.TransactionsSource)
	assert.Equal(t, []string{
		"address_update.clicked",
		"Change Location",
		"other_location.clicked",
		"address_update.submitted",
	}, cfg.AddressChangeActions)
	assert.Equal(t, "transaction", cfg.PlacedOrderAction)
	assert.Equal(t, "fullvisitorid", cfg.Columns.VisitorID)
	assert.Empty(t, cfg.APIKeys)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_BUCKET", "analytics")
	t.Setenv("S3_ENDPOINT", "https://storage.googleapis.com")
	t.Setenv("S3_ANONYMOUS", "true")
	t.Setenv("ADDRESS_CHANGE_ACTIONS", "moved,relocated")
	t.Setenv("API_KEYS", "a,b")
	t.Setenv("LISTING_CACHE_TTL", "30s")
	t.Setenv("COLUMN_EVENT_ACTION", "eventInfo.eventAction")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "analytics", cfg.Storage.Bucket)
	assert.Equal(t, "https://storage.googleapis.com", cfg.Storage.Endpoint)
	assert.True(t, cfg.Storage.Anonymous)
	assert.Equal(t, []string{"moved", "relocated"}, cfg.AddressChangeActions)
	assert.Equal(t, []string{"a", "b"}, cfg.APIKeys)
	assert.Equal(t, 30*time.Second, cfg.ListingCacheTTL)
	assert.Equal(t, "eventInfo.eventAction", cfg.Columns.EventAction)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage:              StorageConfig{Bucket: "b"},
			SessionsPrefix:       "s/",
			TransactionsPrefix:   "t/",
			TransactionsSource:   TransactionsSourceBlob,
			AddressChangeActions: []string{"x"},
			ReadTimeout:          time.Second,
			RequestTimeout:       time.Second,
		}
	}

	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Valid", func(*Config) {}, false},
		{"Empty bucket", func(c *Config) { c.Storage.Bucket = "" }, true},
		{"Empty prefix", func(c *Config) { c.SessionsPrefix = "" }, true},
		{"Unknown source", func(c *Config) { c.TransactionsSource = "bigquery" }, true},
		{"Postgres without url", func(c *Config) { c.TransactionsSource = TransactionsSourcePostgres }, true},
		{"Postgres with url", func(c *Config) {
			c.TransactionsSource = TransactionsSourcePostgres
			c.PostgresURL = "postgres://localhost/db"
		}, false},
		{"No address actions", func(c *Config) { c.AddressChangeActions = nil }, true},
		{"Zero timeout", func(c *Config) { c.RequestTimeout = 0 }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
