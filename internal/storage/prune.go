package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xtxerr/candlestore/internal/errors"
	"github.com/xtxerr/candlestore/internal/logging"
	"github.com/xtxerr/candlestore/internal/storage/parquet"
	"github.com/xtxerr/candlestore/internal/storage/partition"
	"github.com/xtxerr/candlestore/internal/storage/types"
)

// PruneOptions controls Prune.
type PruneOptions struct {
	// Before is the retention cutoff. Partitions whose entire time range
	// lies before this instant are deleted; partitions that overlap it
	// are kept whole. Required.
	Before time.Time

	// DryRun reports what would be deleted without removing anything.
	DryRun bool
}

// PruneResult reports the outcome of a prune pass.
type PruneResult struct {
	Partitions int
	Files      int
	BytesFreed int64
	Remaining  int
}

// Prune deletes expired partitions from a dataset. A partition expires
// when its whole time range falls before the cutoff; rows are never
// split out of a partition, so the newest surviving partition may still
// contain rows older than the cutoff. Pruning the last partition removes
// the dataset itself.
func (s *Service) Prune(ctx context.Context, symbol string, timeframe types.Timeframe, opts PruneOptions) (*PruneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	if opts.Before.IsZero() {
		s.stats.errors.Add(1)
		return nil, fmt.Errorf("prune %s/%s: zero cutoff", symbol, timeframe)
	}

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

	if !opts.DryRun {
		s.sweepStale(dir)
	}

	cutoffMs := opts.Before.UTC().UnixMilli()
	result := &PruneResult{}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			s.stats.errors.Add(1)
			return nil, err
		}

		_, endMs := key.Range()
		if endMs > cutoffMs {
			result.Remaining++
			continue
		}

		files, _ := parquet.ListPartFiles(filepath.Join(dir, key.Path()))
		for _, f := range files {
			if fi, err := os.Stat(f); err == nil {
				result.BytesFreed += fi.Size()
			}
		}
		result.Files += len(files)

		if !opts.DryRun {
			if err := s.removePartition(dir, key); err != nil {
				s.stats.errors.Add(1)
				return nil, err
			}
		}
		result.Partitions++
	}

	log := logging.Dataset("storage", symbol, timeframe.String())

	if opts.DryRun {
		log.Debug("prune dry run",
			"cutoff", opts.Before.UTC().Format(time.RFC3339),
			"partitions", result.Partitions,
			"files", result.Files,
			"bytes", result.BytesFreed,
			"remaining", result.Remaining)
		return result, nil
	}

	// A fully pruned dataset leaves an empty directory behind; drop it so
	// the dataset disappears from listings, then drop the symbol directory
	// if that was its last timeframe.
	if result.Remaining == 0 && result.Partitions > 0 {
		os.Remove(dir)
		os.Remove(filepath.Dir(dir))
	}

	s.stats.partitionsPruned.Add(int64(result.Partitions))

	if result.Partitions > 0 {
		log.Info("expired partitions pruned",
			"cutoff", opts.Before.UTC().Format(time.RFC3339),
			"partitions", result.Partitions,
			"files", result.Files,
			"bytes", result.BytesFreed,
			"remaining", result.Remaining,
			"duration", time.Since(start))
	} else {
		log.Debug("nothing to prune",
			"cutoff", opts.Before.UTC().Format(time.RFC3339),
			"partitions", result.Remaining)
	}

	return result, nil
}
