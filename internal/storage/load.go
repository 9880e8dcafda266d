package storage

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/xtxerr/candlestore/internal/errors"
	"github.com/xtxerr/candlestore/internal/logging"
	"github.com/xtxerr/candlestore/internal/storage/parquet"
	"github.com/xtxerr/candlestore/internal/storage/partition"
	"github.com/xtxerr/candlestore/internal/storage/types"
)

// LoadOptions narrows a Load. The zero value loads the whole dataset with
// every column.
type LoadOptions struct {
	// Start and End bound the result by timestamp, both inclusive. A zero
	// time leaves that side open.
	Start time.Time
	End   time.Time

	// Columns selects the value columns to materialize; nil or empty means
	// all of them. The timestamp column is always included and is not named
	// here. Unknown names fail the load.
	Columns []string
}

// Load reads candles from the (symbol, timeframe) dataset into a columnar
// Frame. Partitions outside the requested time range are never opened; the
// remaining part files are scanned in one DuckDB query with the timestamp
// filter and column projection pushed down.
func (s *Service) Load(ctx context.Context, symbol string, timeframe types.Timeframe, opts LoadOptions) (*types.Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := time.Now()

	cols, err := resolveColumns(opts.Columns)
	if err != nil {
		s.stats.errors.Add(1)
		return nil, err
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

	fromMs, toMs := int64(math.MinInt64), int64(math.MaxInt64)
	if !opts.Start.IsZero() {
		fromMs = opts.Start.UnixMilli()
	}
	if !opts.End.IsZero() {
		toMs = opts.End.UnixMilli()
	}

	var files []string
	scanned := 0
	for _, key := range keys {
		if !key.Overlaps(fromMs, toMs) {
			continue
		}
		scanned++
		pf, err := parquet.ListPartFiles(filepath.Join(dir, key.Path()))
		if err != nil {
			s.stats.errors.Add(1)
			return nil, err
		}
		files = append(files, pf...)
	}
	if len(files) == 0 {
		return emptyFrame(cols), nil
	}

	selectCols := append([]string{"ts_ms"}, cols...)
	var conds []string
	var args []any
	if !opts.Start.IsZero() {
		args = append(args, fromMs)
		conds = append(conds, fmt.Sprintf("ts_ms >= $%d", len(args)))
	}
	if !opts.End.IsZero() {
		args = append(args, toMs)
		conds = append(conds, fmt.Sprintf("ts_ms <= $%d", len(args)))
	}
	query := fmt.Sprintf("SELECT %s FROM read_parquet(%s)",
		strings.Join(selectCols, ", "), quotePaths(files))
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ts_ms"

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(qctx, query, args...)
	if err != nil {
		s.stats.errors.Add(1)
		return nil, fmt.Errorf("load query: %w", err)
	}
	defer rows.Close()

	frame := emptyFrame(cols)
	slots := make([]*[]float64, len(cols))
	for i, name := range cols {
		slots[i] = columnSlot(frame, name)
	}

	var ts int64
	vals := make([]float64, len(cols))
	dest := make([]any, 0, len(cols)+1)
	dest = append(dest, &ts)
	for i := range vals {
		dest = append(dest, &vals[i])
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			s.stats.errors.Add(1)
			return nil, fmt.Errorf("scan row: %w", err)
		}
		frame.Ts = append(frame.Ts, ts)
		for i := range slots {
			*slots[i] = append(*slots[i], vals[i])
		}
	}
	if err := rows.Err(); err != nil {
		s.stats.errors.Add(1)
		return nil, fmt.Errorf("load query: %w", err)
	}

	inferFreq(frame, timeframe)

	s.stats.queriesExecuted.Add(1)
	s.stats.rowsReturned.Add(int64(frame.Len()))

	logging.Dataset("storage", symbol, timeframe.String()).Debug("dataset loaded",
		"rows", frame.Len(),
		"columns", len(cols),
		"partitions", scanned,
		"pruned", len(keys)-scanned,
		"files", len(files),
		"duration", time.Since(start),
	)
	return frame, nil
}

// resolveColumns validates a projection request and returns the selected
// value columns in canonical order, deduplicated.
func resolveColumns(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return types.ValueColumns(), nil
	}
	want := make(map[string]bool, len(requested))
	for _, name := range requested {
		if !types.IsValueColumn(name) {
			return nil, errors.NewUnknownColumn(name)
		}
		want[name] = true
	}
	var cols []string
	for _, name := range types.ValueColumns() {
		if want[name] {
			cols = append(cols, name)
		}
	}
	return cols, nil
}

// emptyFrame returns a zero-row frame with the given columns present (empty,
// not nil) so callers can tell "no rows" from "projected out".
func emptyFrame(cols []string) *types.Frame {
	f := &types.Frame{Ts: make([]int64, 0)}
	for _, name := range cols {
		*columnSlot(f, name) = make([]float64, 0)
	}
	return f
}

// columnSlot maps a value column name to its frame field. Callers pass
// validated names only.
func columnSlot(f *types.Frame, name string) *[]float64 {
	switch name {
	case types.ColumnOpen:
		return &f.Open
	case types.ColumnHigh:
		return &f.High
	case types.ColumnLow:
		return &f.Low
	case types.ColumnClose:
		return &f.Close
	case types.ColumnVolume:
		return &f.Volume
	}
	return nil
}

// inferFreq marks the frame as regularly sampled when every timestamp step
// equals the timeframe's nominal duration.
func inferFreq(f *types.Frame, timeframe types.Timeframe) {
	if f.Len() == 0 {
		return
	}
	stepMs := timeframe.Duration().Milliseconds()
	if stepMs <= 0 {
		return
	}
	for i := 1; i < f.Len(); i++ {
		if f.Ts[i]-f.Ts[i-1] != stepMs {
			return
		}
	}
	f.Freq = timeframe.Duration()
}
