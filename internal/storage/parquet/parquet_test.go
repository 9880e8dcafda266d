package parquet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xtxerr/candlestore/internal/storage/types"
)

func testCandles(n int, start time.Time, step time.Duration) []types.Candle {
	candles := make([]types.Candle, n)
	for i := range candles {
		ts := start.Add(time.Duration(i) * step)
		candles[i] = types.NewCandle(ts, 100+float64(i), 110+float64(i), 90+float64(i), 105+float64(i), float64(1000+i))
	}
	return candles
}

func TestWriterBasic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part-00000.parquet")

	w, err := NewWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	candles := testCandles(2, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour)
	if err := w.Write(candles); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Verify file exists
	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file should exist: %v", err)
	}
	if stat.Size() == 0 {
		t.Error("file should not be empty")
	}
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part-00000.parquet")

	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	candles := []types.Candle{
		types.NewCandle(start, 100.5, 101.2, 99.8, 100.9, 1234.5),
		types.NewCandle(start.Add(time.Hour), 100.9, 102.0, 100.1, 101.7, 987.3),
	}

	// Write
	w, err := NewWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(candles); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Read
	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	if r.NumRows() != 2 {
		t.Errorf("expected 2 rows, got %d", r.NumRows())
	}

	read, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(read) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(read))
	}

	for i := range read {
		if read[i] != candles[i] {
			t.Errorf("row %d: expected %+v, got %+v", i, candles[i], read[i])
		}
	}
}

func TestLargeWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "large.parquet")

	w, err := NewWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	candles := testCandles(10000, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Minute)
	if err := w.Write(candles); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	if r.NumRows() != 10000 {
		t.Errorf("expected 10000 rows, got %d", r.NumRows())
	}

	read, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(read) != 10000 {
		t.Errorf("expected 10000 candles, got %d", len(read))
	}
}

func TestCompressionTypes(t *testing.T) {
	compressions := []struct {
		name string
		ct   CompressionType
	}{
		{"none", CompressionNone},
		{"snappy", CompressionSnappy},
		{"zstd", CompressionZstd},
		{"lz4", CompressionLZ4},
		{"gzip", CompressionGzip},
	}

	for _, tc := range compressions {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "test.parquet")

			opts := DefaultOptions()
			opts.Compression = tc.ct

			w, err := NewWriter(path, opts)
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}

			candles := testCandles(1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour)
			if err := w.Write(candles); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			// Verify can read back
			r, err := NewReader(path)
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			defer r.Close()

			read, err := r.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if len(read) != 1 {
				t.Errorf("expected 1 candle, got %d", len(read))
			}
		})
	}
}

func TestZstdLevels(t *testing.T) {
	for _, level := range []int{1, 3, 19} {
		dir := t.TempDir()
		path := filepath.Join(dir, "test.parquet")

		opts := DefaultOptions()
		opts.CompressionLevel = level

		w, err := NewWriter(path, opts)
		if err != nil {
			t.Fatalf("level %d: NewWriter: %v", level, err)
		}
		if err := w.Write(testCandles(100, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour)); err != nil {
			t.Fatalf("level %d: Write: %v", level, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("level %d: Close: %v", level, err)
		}

		r, err := NewReader(path)
		if err != nil {
			t.Fatalf("level %d: NewReader: %v", level, err)
		}
		read, err := r.ReadAll()
		r.Close()
		if err != nil {
			t.Fatalf("level %d: ReadAll: %v", level, err)
		}
		if len(read) != 100 {
			t.Errorf("level %d: expected 100 candles, got %d", level, len(read))
		}
	}
}

func TestParseCompressionType(t *testing.T) {
	tests := []struct {
		input    string
		expected CompressionType
	}{
		{"snappy", CompressionSnappy},
		{"zstd", CompressionZstd},
		{"lz4", CompressionLZ4},
		{"gzip", CompressionGzip},
		{"none", CompressionNone},
		{"", CompressionNone},
		{"invalid", CompressionZstd}, // Default
	}

	for _, tt := range tests {
		result := ParseCompressionType(tt.input)
		if result != tt.expected {
			t.Errorf("ParseCompressionType(%s): expected %d, got %d", tt.input, tt.expected, result)
		}
	}
}

func TestRowConversions(t *testing.T) {
	ts := time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)
	candle := types.NewCandle(ts, 100.5, 101.2, 99.8, 100.9, 1234.5)

	row := CandleToRow(&candle)
	if row.Year != 2024 || row.Month != 3 || row.Day != 15 {
		t.Errorf("expected date columns 2024/3/15, got %d/%d/%d", row.Year, row.Month, row.Day)
	}

	back := RowToCandle(&row)
	if back != candle {
		t.Errorf("conversion roundtrip failed: expected %+v, got %+v", candle, back)
	}
}

func TestEmptyWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.parquet")

	w, err := NewWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	// Empty write should be no-op
	if err := w.Write(nil); err != nil {
		t.Errorf("nil write should succeed: %v", err)
	}
	if err := w.Write([]types.Candle{}); err != nil {
		t.Errorf("empty write should succeed: %v", err)
	}

	if w.RowCount() != 0 {
		t.Errorf("expected 0 rows, got %d", w.RowCount())
	}

	w.Close()
}

func TestWriteToClosedWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.parquet")

	w, err := NewWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	w.Close()

	err = w.Write(testCandles(1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour))
	if err != ErrWriterClosed {
		t.Errorf("expected ErrWriterClosed, got %v", err)
	}
}

func TestWritePartitionChunks(t *testing.T) {
	dir := t.TempDir()

	opts := DefaultOptions()
	opts.MaxRowsPerFile = 40

	candles := testCandles(100, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour)
	paths, err := WritePartition(dir, candles, opts)
	if err != nil {
		t.Fatalf("WritePartition: %v", err)
	}

	// 100 rows at 40 per file means 3 part files.
	if len(paths) != 3 {
		t.Fatalf("expected 3 part files, got %d: %v", len(paths), paths)
	}
	for i, p := range paths {
		if filepath.Base(p) != PartFileName(i) {
			t.Errorf("expected %s, got %s", PartFileName(i), filepath.Base(p))
		}
	}

	listed, err := ListPartFiles(dir)
	if err != nil {
		t.Fatalf("ListPartFiles: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 listed files, got %d", len(listed))
	}

	read, err := ReadPartition(dir)
	if err != nil {
		t.Fatalf("ReadPartition: %v", err)
	}
	if len(read) != 100 {
		t.Fatalf("expected 100 candles, got %d", len(read))
	}
	for i := range read {
		if read[i] != candles[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, candles[i], read[i])
		}
	}
}

func TestReadPartitionEmptyDir(t *testing.T) {
	read, err := ReadPartition(t.TempDir())
	if err != nil {
		t.Fatalf("ReadPartition: %v", err)
	}
	if len(read) != 0 {
		t.Errorf("expected 0 candles, got %d", len(read))
	}
}

func TestReadSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.parquet")

	w, err := NewWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(testCandles(10, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	schema, err := ReadSchema(path)
	if err != nil {
		t.Fatalf("ReadSchema: %v", err)
	}

	expected := []string{"ts_ms", "open", "high", "low", "close", "volume"}
	if len(schema) != len(expected) {
		t.Fatalf("expected %d columns, got %d: %v", len(expected), len(schema), schema)
	}

	names := make(map[string]bool, len(schema))
	for _, col := range schema {
		names[col.Name] = true
		if col.Type == "" {
			t.Errorf("column %s: empty type", col.Name)
		}
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("missing column %s", name)
		}
	}
	for _, name := range PartitionColumns {
		if names[name] {
			t.Errorf("partition column %s should be stripped", name)
		}
	}
}

func BenchmarkWrite(b *testing.B) {
	dir := b.TempDir()
	path := filepath.Join(dir, "bench.parquet")

	w, err := NewWriter(path, DefaultOptions())
	if err != nil {
		b.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	candle := types.NewCandle(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100, 110, 90, 105, 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Write([]types.Candle{candle})
	}
}

func BenchmarkWriteBatch1000(b *testing.B) {
	dir := b.TempDir()
	path := filepath.Join(dir, "bench.parquet")

	w, err := NewWriter(path, DefaultOptions())
	if err != nil {
		b.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	batch := testCandles(1000, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Write(batch)
	}
}
