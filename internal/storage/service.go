package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/xtxerr/candlestore/internal/errors"
	"github.com/xtxerr/candlestore/internal/logging"
	"github.com/xtxerr/candlestore/internal/storage/config"
	"github.com/xtxerr/candlestore/internal/storage/parquet"
	"github.com/xtxerr/candlestore/internal/storage/partition"
	"github.com/xtxerr/candlestore/internal/storage/types"
)

// Service is the storage service. It owns the data directory and a single
// in-memory DuckDB handle used for reads.
//
// Within one process, write operations (Store, Append, Delete) are
// serialized against each other and against readers. Nothing coordinates
// writers across processes; run one writer per data directory.
type Service struct {
	mu sync.RWMutex

	config      *config.Config
	db          *sql.DB
	log         *slog.Logger
	scheme      partition.Scheme
	parquetOpts parquet.Options

	// Statistics
	stats counters
}

type counters struct {
	queriesExecuted     atomic.Int64
	rowsReturned        atomic.Int64
	rowsWritten         atomic.Int64
	partitionsRewritten atomic.Int64
	partitionsPruned    atomic.Int64
	errors              atomic.Int64
}

// New creates a new storage service.
func New(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}

	// Ensure directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	scheme, err := partition.ParseScheme(cfg.Scheme())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}

	// Open in-memory DuckDB database
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	// Configure DuckDB
	if cfg.Query.MemoryLimit != "" {
		_, err = db.Exec(fmt.Sprintf("SET memory_limit='%s'", cfg.Query.MemoryLimit))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("set memory limit: %w", err)
		}
	}

	return &Service{
		config: cfg,
		db:     db,
		log:    logging.Component("storage"),
		scheme: scheme,
		parquetOpts: parquet.Options{
			Compression:      parquet.ParseCompressionType(cfg.Compression.Algorithm),
			CompressionLevel: cfg.Compression.Level,
			MaxRowsPerFile:   cfg.Files.MaxRowsPerFile,
		},
	}, nil
}

// Open creates a storage service over dataDir with default settings. Use
// New for anything beyond the data directory.
func Open(dataDir string) (*Service, error) {
	cfg := config.DefaultConfig()
	cfg.DataDir = dataDir
	return New(cfg)
}

// Close closes the storage service.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Config returns the current configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// Scheme returns the partition scheme used for new datasets.
func (s *Service) Scheme() partition.Scheme {
	return s.scheme
}

// datasetDir validates the dataset coordinates and returns its directory.
func (s *Service) datasetDir(symbol string, timeframe types.Timeframe) (string, error) {
	if err := timeframe.Validate(); err != nil {
		return "", err
	}
	return partition.DatasetDir(s.config.DataDir, symbol, timeframe.String())
}

// queryCtx applies the configured query timeout.
func (s *Service) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Query.Timeout > 0 {
		return context.WithTimeout(ctx, s.config.Query.Timeout.Duration())
	}
	return context.WithCancel(ctx)
}

// quotePaths renders file paths as a DuckDB list literal.
func quotePaths(paths []string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = "'" + strings.ReplaceAll(p, "'", "''") + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// ExecuteSQL executes a raw SQL query against the DuckDB handle. Candle
// files are plain Parquet, so ad-hoc queries can read them with
// read_parquet. This is useful for debugging and one-off analysis.
func (s *Service) ExecuteSQL(ctx context.Context, query string) ([]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.stats.errors.Add(1)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	s.stats.queriesExecuted.Add(1)
	s.stats.rowsReturned.Add(int64(len(results)))

	return results, rows.Err()
}

// Stats returns service statistics.
func (s *Service) Stats() ServiceStats {
	return ServiceStats{
		QueriesExecuted:     s.stats.queriesExecuted.Load(),
		RowsReturned:        s.stats.rowsReturned.Load(),
		RowsWritten:         s.stats.rowsWritten.Load(),
		PartitionsRewritten: s.stats.partitionsRewritten.Load(),
		PartitionsPruned:    s.stats.partitionsPruned.Load(),
		Errors:              s.stats.errors.Load(),
	}
}

// ServiceStats holds service statistics.
type ServiceStats struct {
	QueriesExecuted     int64
	RowsReturned        int64
	RowsWritten         int64
	PartitionsRewritten int64
	PartitionsPruned    int64
	Errors              int64
}
