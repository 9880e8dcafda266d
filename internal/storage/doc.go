// Package storage implements a partitioned columnar store for OHLCV candle
// history.
//
// Architecture:
//
//	┌─────────────┐     ┌──────────────┐     ┌─────────────┐
//	│   Store /   │────▶│  Partition   │────▶│   Parquet   │
//	│   Append    │     │ stage + swap │     │   Writer    │
//	└─────────────┘     └──────────────┘     └─────────────┘
//	                           │
//	                           ▼
//	┌─────────────┐     ┌──────────────┐
//	│ Load / Info │◀────│    DuckDB    │
//	│   / Stats   │     │ read_parquet │
//	└─────────────┘     └──────────────┘
//
// Datasets are keyed by (symbol, timeframe) and laid out as Hive-style
// partition directories of compressed Parquet part files. The storage system
// provides:
//   - Full-dataset writes and merge-on-append upserts (last write wins)
//   - Partition pruning plus DuckDB predicate and projection pushdown
//   - Atomic partition replacement via staged directory renames
//   - Retention pruning of expired partitions
//   - DDSketch-based column percentile statistics
//   - Catalog operations: list symbols, list timeframes, dataset info, delete
package storage
