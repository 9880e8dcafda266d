package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xtxerr/candlestore/internal/logging"
	"github.com/xtxerr/candlestore/internal/storage/parquet"
	"github.com/xtxerr/candlestore/internal/storage/partition"
	"github.com/xtxerr/candlestore/internal/storage/types"
	"golang.org/x/sync/errgroup"
)

// Store writes candles as the complete content of the (symbol, timeframe)
// dataset, replacing whatever was stored before. Input rows are validated,
// sorted ascending and deduplicated keeping the last occurrence per
// timestamp, so storing the same batch twice leaves the dataset unchanged.
func (s *Service) Store(ctx context.Context, symbol string, timeframe types.Timeframe, candles []types.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeLocked(ctx, symbol, timeframe, candles)
}

// storeLocked is Store without locking, shared with the append path.
func (s *Service) storeLocked(ctx context.Context, symbol string, timeframe types.Timeframe, candles []types.Candle) error {
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

	if err := os.MkdirAll(dir, 0755); err != nil {
		s.stats.errors.Add(1)
		return fmt.Errorf("create dataset dir: %w", err)
	}
	s.sweepStale(dir)

	oldKeys, err := partition.ListKeys(dir)
	if err != nil {
		s.stats.errors.Add(1)
		return err
	}

	keys, groups := groupByKey(normalized, s.scheme)
	if err := s.replacePartitions(ctx, dir, keys, groups); err != nil {
		s.stats.errors.Add(1)
		return err
	}

	// A full write defines the dataset; drop partitions the new content no
	// longer covers (including any written under a previous scheme).
	written := make(map[partition.Key]bool, len(keys))
	for _, k := range keys {
		written[k] = true
	}
	for _, k := range oldKeys {
		if !written[k] {
			if err := s.removePartition(dir, k); err != nil {
				s.stats.errors.Add(1)
				return err
			}
		}
	}

	s.stats.rowsWritten.Add(int64(len(normalized)))
	s.stats.partitionsRewritten.Add(int64(len(keys)))

	logging.Dataset("storage", symbol, timeframe.String()).Info("dataset stored",
		"rows", len(normalized),
		"partitions", len(keys),
		"scheme", s.scheme,
		"duration", time.Since(start),
	)
	return nil
}

// groupByKey splits sorted candles into per-partition groups, returning the
// keys in chronological order.
func groupByKey(candles []types.Candle, scheme partition.Scheme) ([]partition.Key, map[partition.Key][]types.Candle) {
	groups := make(map[partition.Key][]types.Candle)
	var keys []partition.Key
	for _, c := range candles {
		k := partition.KeyFor(c.TsMs, scheme)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], c)
	}
	return keys, groups
}

// replacePartitions writes the given partition groups in parallel, bounded
// by the configured append worker count.
func (s *Service) replacePartitions(ctx context.Context, dir string, keys []partition.Key, groups map[partition.Key][]types.Candle) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Append.Workers)

	for _, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return s.replacePartition(dir, key, groups[key])
		})
	}
	return g.Wait()
}

// replacePartition atomically swaps in new content for one partition: the
// part files are written to a staging directory, the old directory is
// renamed aside, the staging directory is renamed into place, and the old
// content is deleted. Readers walking year=* dirs never see the staging or
// trash names.
func (s *Service) replacePartition(dir string, key partition.Key, candles []types.Candle) error {
	stageDir := filepath.Join(dir, ".stage-"+uuid.NewString())
	if _, err := parquet.WritePartition(stageDir, candles, s.parquetOpts); err != nil {
		os.RemoveAll(stageDir)
		return fmt.Errorf("write partition %s: %w", key, err)
	}

	partDir := filepath.Join(dir, key.Path())
	if err := os.MkdirAll(filepath.Dir(partDir), 0755); err != nil {
		os.RemoveAll(stageDir)
		return fmt.Errorf("create partition parent: %w", err)
	}

	trashDir := filepath.Join(dir, ".trash-"+uuid.NewString())
	retired := false
	if _, err := os.Stat(partDir); err == nil {
		if err := os.Rename(partDir, trashDir); err != nil {
			os.RemoveAll(stageDir)
			return fmt.Errorf("retire partition %s: %w", key, err)
		}
		retired = true
	}

	if err := os.Rename(stageDir, partDir); err != nil {
		if retired {
			os.Rename(trashDir, partDir)
		}
		os.RemoveAll(stageDir)
		return fmt.Errorf("activate partition %s: %w", key, err)
	}

	if retired {
		os.RemoveAll(trashDir)
	}
	return nil
}

// removePartition deletes one partition directory and any parent directories
// it leaves empty.
func (s *Service) removePartition(dir string, key partition.Key) error {
	partDir := filepath.Join(dir, key.Path())

	trashDir := filepath.Join(dir, ".trash-"+uuid.NewString())
	if err := os.Rename(partDir, trashDir); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("remove partition %s: %w", key, err)
	}
	if err := os.RemoveAll(trashDir); err != nil {
		return fmt.Errorf("remove partition %s: %w", key, err)
	}

	removeEmptyParents(filepath.Dir(partDir), dir)
	return nil
}

// removeEmptyParents removes empty directories from child up to (not
// including) stop. Remove fails on non-empty directories, which ends the
// walk.
func removeEmptyParents(child, stop string) {
	for child != stop && len(child) > len(stop) {
		if err := os.Remove(child); err != nil {
			return
		}
		child = filepath.Dir(child)
	}
}

// sweepStale clears staging and trash directories left behind by an
// interrupted write. Only called while holding the write lock.
func (s *Service) sweepStale(dir string) {
	var stale []string
	for _, pattern := range []string{".stage-*", ".trash-*"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		stale = append(stale, matches...)
	}
	for _, path := range stale {
		os.RemoveAll(path)
	}
	if len(stale) > 0 {
		s.log.Debug("removed stale write dirs", "dir", dir, "count", len(stale))
	}
}
