package parquet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/xtxerr/candlestore/internal/errors"
	"github.com/xtxerr/candlestore/internal/storage/types"
)

// Reader reads candles from a single Parquet file.
type Reader struct {
	file   *os.File
	reader *parquet.GenericReader[CandleRow]
	path   string
}

// NewReader creates a Parquet reader for path. The footer is parsed up
// front, so a truncated or garbage file fails here with a corruption error
// instead of panicking inside the row reader.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size(), parquet.ReadBufferSize(1024*1024))
	if err != nil {
		f.Close()
		return nil, errors.NewCorrupt(path, err)
	}

	reader := parquet.NewGenericReader[CandleRow](pf)

	return &Reader{
		file:   f,
		reader: reader,
		path:   path,
	}, nil
}

// Read reads up to n candles from the file.
func (r *Reader) Read(n int) ([]types.Candle, error) {
	rows := make([]CandleRow, n)
	count, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}

	candles := make([]types.Candle, count)
	for i := 0; i < count; i++ {
		candles[i] = RowToCandle(&rows[i])
	}

	return candles, nil
}

// ReadAll reads all candles from the file. Read can return io.EOF together
// with the final rows, so EOF is not an error here.
func (r *Reader) ReadAll() ([]types.Candle, error) {
	numRows := int(r.reader.NumRows())
	rows := make([]CandleRow, numRows)

	total := 0
	for total < numRows {
		n, err := r.reader.Read(rows[total:])
		total += n
		if err == io.EOF || n == 0 {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	candles := make([]types.Candle, total)
	for i := 0; i < total; i++ {
		candles[i] = RowToCandle(&rows[i])
	}

	return candles, nil
}

// NumRows returns the total number of rows in the file.
func (r *Reader) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *Reader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Path returns the file path.
func (r *Reader) Path() string {
	return r.path
}

// ListPartFiles returns the partition directory's part files in order.
// filepath.Glob sorts its results, and part names are zero padded, so
// lexical order is part order.
func ListPartFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, fmt.Errorf("list part files: %w", err)
	}
	return files, nil
}

// ReadPartition reads every part file of a partition directory and returns
// the concatenated candles.
func ReadPartition(dir string) ([]types.Candle, error) {
	files, err := ListPartFiles(dir)
	if err != nil {
		return nil, err
	}

	var candles []types.Candle
	for _, path := range files {
		r, err := NewReader(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		part, err := r.ReadAll()
		if cerr := r.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		candles = append(candles, part...)
	}

	return candles, nil
}

// ColumnSchema describes one logical column of a dataset.
type ColumnSchema struct {
	Name string
	Type string
}

// ReadSchema returns the logical schema of a Parquet file from its footer,
// with the physical partition columns stripped.
func ReadSchema(path string) ([]ColumnSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("read footer: %w", err)
	}

	var cols []ColumnSchema
	for _, field := range pf.Schema().Fields() {
		if isPartitionColumn(field.Name()) {
			continue
		}
		cols = append(cols, ColumnSchema{
			Name: field.Name(),
			Type: field.Type().Kind().String(),
		})
	}
	return cols, nil
}

func isPartitionColumn(name string) bool {
	for _, c := range PartitionColumns {
		if name == c {
			return true
		}
	}
	return false
}
