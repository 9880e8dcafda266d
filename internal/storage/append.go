package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/xtxerr/candlestore/internal/errors"
	"github.com/xtxerr/candlestore/internal/logging"
	"github.com/xtxerr/candlestore/internal/storage/parquet"
	"github.com/xtxerr/candlestore/internal/storage/partition"
	"github.com/xtxerr/candlestore/internal/storage/types"
	"golang.org/x/sync/errgroup"
)

// Append merges candles into the (symbol, timeframe) dataset. Only the
// partitions the new rows fall into are rewritten: each one is read back,
// merged with the incoming rows, deduplicated by timestamp with the incoming
// row winning, and swapped in atomically. Appending rows that are already
// stored is therefore a no-op, and re-appending a corrected row replaces the
// stored one.
//
// A dataset keeps the partitioning scheme it was created with, even when the
// configured scheme has changed since.
func (s *Service) Append(ctx context.Context, symbol string, timeframe types.Timeframe, candles []types.Candle) error {
	if len(candles) == 0 {
		s.log.Debug("append with no rows", "symbol", symbol, "timeframe", timeframe.String())
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	normalized, err := types.Normalize(candles)
	if err != nil {
		s.stats.errors.Add(1)
		return err
	}

	dir, err := s.datasetDir(symbol, timeframe)
	if err != nil {
		s.stats.errors.Add(1)
		return err
	}

	oldKeys, err := partition.ListKeys(dir)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		s.stats.errors.Add(1)
		return err
	}
	if len(oldKeys) == 0 {
		// Nothing stored yet, plain write.
		return s.storeLocked(ctx, symbol, timeframe, candles)
	}

	scheme, err := partition.SchemeOf(oldKeys)
	if err != nil {
		s.stats.errors.Add(1)
		return err
	}
	log := logging.Dataset("storage", symbol, timeframe.String())
	if scheme != s.scheme {
		log.Debug("dataset keeps its original partitioning", "scheme", scheme, "configured", s.scheme)
	}

	s.sweepStale(dir)

	existing := make(map[partition.Key]bool, len(oldKeys))
	for _, k := range oldKeys {
		existing[k] = true
	}
	keys, groups := groupByKey(normalized, scheme)

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Append.Workers)
	for _, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := s.mergePartition(dir, key, groups[key], existing[key], log)
			if err != nil {
				return err
			}
			if err := s.replacePartition(dir, key, rows); err != nil {
				return err
			}
			written.Add(int64(len(rows)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.stats.errors.Add(1)
		return err
	}

	s.stats.rowsWritten.Add(written.Load())
	s.stats.partitionsRewritten.Add(int64(len(keys)))

	log.Info("rows appended",
		"rows_in", len(normalized),
		"rows_written", written.Load(),
		"partitions", len(keys),
		"duration", time.Since(start),
	)
	return nil
}

// mergePartition combines incoming rows with the current content of one
// partition. An unreadable partition is logged and replaced by the incoming
// rows alone rather than failing the whole append.
func (s *Service) mergePartition(dir string, key partition.Key, incoming []types.Candle, exists bool, log *slog.Logger) ([]types.Candle, error) {
	if !exists {
		return incoming, nil
	}

	current, err := parquet.ReadPartition(filepath.Join(dir, key.Path()))
	if err != nil {
		log.Warn("replacing unreadable partition", "partition", key.String(), "error", err)
		return incoming, nil
	}
	if len(current) == 0 {
		return incoming, nil
	}

	// Incoming rows come after the stored ones, so keep-last dedup lets a
	// re-appended timestamp overwrite the stored row.
	merged, err := types.Normalize(append(current, incoming...))
	if err != nil {
		return nil, fmt.Errorf("merge partition %s: %w", key, err)
	}
	return merged, nil
}
