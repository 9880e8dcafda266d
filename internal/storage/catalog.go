package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xtxerr/candlestore/internal/errors"
	"github.com/xtxerr/candlestore/internal/logging"
	"github.com/xtxerr/candlestore/internal/storage/parquet"
	"github.com/xtxerr/candlestore/internal/storage/partition"
	"github.com/xtxerr/candlestore/internal/storage/types"
)

// DatasetInfo describes one stored (symbol, timeframe) dataset.
type DatasetInfo struct {
	Symbol    string
	Timeframe string

	// Scheme is the partitioning the dataset was written with.
	Scheme partition.Scheme

	Rows    int64
	MinTime time.Time
	MaxTime time.Time

	Partitions int
	Files      int
	SizeBytes  int64

	// Columns is the file schema, partition columns excluded.
	Columns []parquet.ColumnSchema
}

// ListSymbols returns every symbol with at least one dataset, sorted.
func (s *Service) ListSymbols() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.config.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var symbols []string
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		symbols = append(symbols, partition.DecodeSymbol(e.Name()))
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ListTimeframes returns the timeframes stored for symbol, shortest first.
func (s *Service) ListTimeframes(symbol string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	enc, err := partition.EncodeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.config.DataDir, enc))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "symbol %s", symbol)
		}
		return nil, fmt.Errorf("read symbol dir: %w", err)
	}

	var tfs []types.Timeframe
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		tf, err := types.ParseTimeframe(e.Name())
		if err != nil {
			continue
		}
		tfs = append(tfs, tf)
	}
	sort.Slice(tfs, func(i, j int) bool {
		di, dj := tfs[i].Duration(), tfs[j].Duration()
		if di != dj {
			return di < dj
		}
		return tfs[i] < tfs[j]
	})

	out := make([]string, len(tfs))
	for i, tf := range tfs {
		out[i] = tf.String()
	}
	return out, nil
}

// Info returns metadata for one dataset: row count, time span, partition and
// file counts, on-disk size, and the file schema. Row count and time span
// come from one aggregate query over all part files.
func (s *Service) Info(ctx context.Context, symbol string, timeframe types.Timeframe) (*DatasetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir, err := s.datasetDir(symbol, timeframe)
	if err != nil {
		s.stats.errors.Add(1)
		return nil, err
	}

	keys, err := partition.ListKeys(dir)
	if err != nil {
		s.stats.errors.Add(1)
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewNotFound(symbol, timeframe.String())
		}
		return nil, err
	}
	if len(keys) == 0 {
		s.stats.errors.Add(1)
		return nil, errors.NewNotFound(symbol, timeframe.String())
	}

	scheme, err := partition.SchemeOf(keys)
	if err != nil {
		s.stats.errors.Add(1)
		return nil, err
	}

	info := &DatasetInfo{
		Symbol:     symbol,
		Timeframe:  timeframe.String(),
		Scheme:     scheme,
		Partitions: len(keys),
	}

	var files []string
	for _, key := range keys {
		pf, err := parquet.ListPartFiles(filepath.Join(dir, key.Path()))
		if err != nil {
			s.stats.errors.Add(1)
			return nil, err
		}
		files = append(files, pf...)
	}
	info.Files = len(files)
	if len(files) == 0 {
		s.stats.errors.Add(1)
		return nil, errors.NewNotFound(symbol, timeframe.String())
	}

	for _, path := range files {
		fi, err := os.Stat(path)
		if err != nil {
			s.stats.errors.Add(1)
			return nil, fmt.Errorf("stat part file: %w", err)
		}
		info.SizeBytes += fi.Size()
	}

	info.Columns, err = parquet.ReadSchema(files[0])
	if err != nil {
		s.stats.errors.Add(1)
		return nil, err
	}

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT count(*), min(ts_ms), max(ts_ms) FROM read_parquet(%s)", quotePaths(files))
	var minMs, maxMs sql.NullInt64
	if err := s.db.QueryRowContext(qctx, query).Scan(&info.Rows, &minMs, &maxMs); err != nil {
		s.stats.errors.Add(1)
		return nil, fmt.Errorf("info query: %w", err)
	}
	if minMs.Valid {
		info.MinTime = time.UnixMilli(minMs.Int64).UTC()
	}
	if maxMs.Valid {
		info.MaxTime = time.UnixMilli(maxMs.Int64).UTC()
	}

	s.stats.queriesExecuted.Add(1)
	return info, nil
}

// Delete removes one dataset and reports whether it existed. The dataset
// directory is renamed aside first so readers never see a half-removed tree,
// and the symbol directory is pruned once its last timeframe is gone.
func (s *Service) Delete(symbol string, timeframe types.Timeframe) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.datasetDir(symbol, timeframe)
	if err != nil {
		s.stats.errors.Add(1)
		return false, err
	}

	symbolDir := filepath.Dir(dir)
	trashDir := filepath.Join(symbolDir, ".trash-"+uuid.NewString())
	if err := os.Rename(dir, trashDir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		s.stats.errors.Add(1)
		return false, fmt.Errorf("delete dataset: %w", err)
	}
	if err := os.RemoveAll(trashDir); err != nil {
		s.stats.errors.Add(1)
		return true, fmt.Errorf("delete dataset: %w", err)
	}
	os.Remove(symbolDir)

	logging.Dataset("storage", symbol, timeframe.String()).Info("dataset deleted")
	return true, nil
}
