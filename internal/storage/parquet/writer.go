package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	kzstd "github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/xtxerr/candlestore/internal/storage/types"
)

// Options configures the Parquet writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// CompressionLevel for algorithms that support it (zstd: 1-22)
	CompressionLevel int

	// MaxRowsPerFile caps the rows per part file; a partition write is
	// chunked into several files beyond it.
	MaxRowsPerFile int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression:      CompressionZstd,
		CompressionLevel: 3,
		MaxRowsPerFile:   1_000_000,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType, level int) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		if level > 0 {
			return &zstd.Codec{Level: kzstd.EncoderLevelFromZstd(level)}
		}
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// CandleRow is the physical Parquet record. The year/month/day columns
// duplicate the timestamp's UTC date parts so every file is self-describing;
// readers strip them.
type CandleRow struct {
	TsMs   int64   `parquet:"ts_ms"`
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume float64 `parquet:"volume"`
	Year   int32   `parquet:"year"`
	Month  int32   `parquet:"month"`
	Day    int32   `parquet:"day"`
}

// PartitionColumns are the physical columns stripped from every read.
var PartitionColumns = []string{"year", "month", "day"}

// CandleToRow converts a Candle to a CandleRow.
func CandleToRow(c *types.Candle) CandleRow {
	t := time.UnixMilli(c.TsMs).UTC()
	return CandleRow{
		TsMs:   c.TsMs,
		Open:   c.Open,
		High:   c.High,
		Low:    c.Low,
		Close:  c.Close,
		Volume: c.Volume,
		Year:   int32(t.Year()),
		Month:  int32(t.Month()),
		Day:    int32(t.Day()),
	}
}

// RowToCandle converts a CandleRow to a Candle.
func RowToCandle(r *CandleRow) types.Candle {
	return types.Candle{
		TsMs:   r.TsMs,
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  r.Close,
		Volume: r.Volume,
	}
}

// PartFileName returns the canonical name of the i-th part file.
func PartFileName(i int) string {
	return fmt.Sprintf("part-%05d.parquet", i)
}

// Writer writes candles to a single Parquet file.
type Writer struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[CandleRow]
	rowCount int64
	closed   bool
}

// NewWriter creates a Parquet writer at path, creating parent directories.
func NewWriter(path string, opts Options) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression, opts.CompressionLevel)),
	}

	writer := parquet.NewGenericWriter[CandleRow](f, writerOpts...)

	return &Writer{
		path:   path,
		file:   f,
		writer: writer,
	}, nil
}

// Write writes candles to the Parquet file.
func (w *Writer) Write(candles []types.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	rows := make([]CandleRow, len(candles))
	for i := range candles {
		rows[i] = CandleToRow(&candles[i])
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// Close closes the writer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *Writer) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *Writer) Path() string {
	return w.path
}

// WritePartition writes candles into dir as one or more part files, chunked
// at opts.MaxRowsPerFile. Candles are expected sorted ascending. Returns the
// paths written.
func WritePartition(dir string, candles []types.Candle, opts Options) ([]string, error) {
	maxRows := opts.MaxRowsPerFile
	if maxRows <= 0 {
		maxRows = DefaultOptions().MaxRowsPerFile
	}

	var paths []string
	for part := 0; part*maxRows < len(candles); part++ {
		lo := part * maxRows
		hi := lo + maxRows
		if hi > len(candles) {
			hi = len(candles)
		}

		path := filepath.Join(dir, PartFileName(part))
		w, err := NewWriter(path, opts)
		if err != nil {
			return nil, err
		}
		if err := w.Write(candles[lo:hi]); err != nil {
			w.Close()
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("close %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = fmt.Errorf("parquet writer is closed")
