// Package storagetest provides fixtures for tests that need a storage
// service backed by a real temporary data directory.
package storagetest

import (
	"testing"
	"time"

	"github.com/xtxerr/candlestore/internal/storage"
	"github.com/xtxerr/candlestore/internal/storage/config"
	"github.com/xtxerr/candlestore/internal/storage/types"
)

// Config returns a config suitable for tests: a per-test temp data dir and
// a modest DuckDB memory limit.
func Config(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Query.MemoryLimit = "512MB"
	cfg.Append.Workers = 2
	return cfg
}

// NewService creates a storage service over a temporary data dir, closed
// when the test ends.
func NewService(t *testing.T) *storage.Service {
	t.Helper()
	return NewServiceWith(t, Config(t))
}

// NewServiceWith creates a storage service from cfg, closed when the test
// ends.
func NewServiceWith(t *testing.T, cfg *config.Config) *storage.Service {
	t.Helper()
	svc, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

// Candles returns n deterministic candles starting at start, spaced by
// step. Row i opens at 100+i, so tests can assert exact values.
func Candles(n int, start time.Time, step time.Duration) []types.Candle {
	out := make([]types.Candle, n)
	ts := start
	for i := range out {
		base := 100 + float64(i)
		out[i] = types.Candle{
			TsMs:   ts.UnixMilli(),
			Open:   base,
			High:   base + 5,
			Low:    base - 5,
			Close:  base + 1,
			Volume: 1000 + 10*float64(i),
		}
		ts = ts.Add(step)
	}
	return out
}
