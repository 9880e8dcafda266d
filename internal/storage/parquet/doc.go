// Package parquet implements Parquet file reading and writing for candles.
//
// The package provides:
//   - Writer/Reader for single part files
//   - WritePartition for chunked writes of a whole partition directory
//   - Support for multiple compression algorithms (snappy, zstd, lz4, gzip)
//   - Type conversion between storage types and Parquet rows
package parquet
