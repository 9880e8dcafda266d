package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/xtxerr/candlestore/internal/errors"
	"github.com/xtxerr/candlestore/internal/storage"
	"github.com/xtxerr/candlestore/internal/storage/storagetest"
	"github.com/xtxerr/candlestore/internal/storage/types"
)

func TestLoadRange(t *testing.T) {
	svc := storagetest.NewService(t)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := svc.Store(ctx, "BTC/USD", "1h", storagetest.Candles(72, start, time.Hour)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	from := start.Add(24 * time.Hour)
	to := start.Add(47 * time.Hour)
	frame, err := svc.Load(ctx, "BTC/USD", "1h", storage.LoadOptions{Start: from, End: to})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if frame.Len() != 24 {
		t.Fatalf("Len = %d, want 24", frame.Len())
	}
	if !frame.Time(0).Equal(from) {
		t.Errorf("first = %v, want %v (start is inclusive)", frame.Time(0), from)
	}
	if !frame.Time(frame.Len() - 1).Equal(to) {
		t.Errorf("last = %v, want %v (end is inclusive)", frame.Time(frame.Len()-1), to)
	}
}

func TestLoadOpenEndedRange(t *testing.T) {
	svc := storagetest.NewService(t)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := svc.Store(ctx, "BTC/USD", "1h", storagetest.Candles(48, start, time.Hour)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	frame, err := svc.Load(ctx, "BTC/USD", "1h", storage.LoadOptions{Start: start.Add(40 * time.Hour)})
	if err != nil {
		t.Fatalf("Load start-only: %v", err)
	}
	if frame.Len() != 8 {
		t.Errorf("start-only Len = %d, want 8", frame.Len())
	}

	frame, err = svc.Load(ctx, "BTC/USD", "1h", storage.LoadOptions{End: start.Add(7 * time.Hour)})
	if err != nil {
		t.Fatalf("Load end-only: %v", err)
	}
	if frame.Len() != 8 {
		t.Errorf("end-only Len = %d, want 8", frame.Len())
	}
}

func TestLoadEmptyRange(t *testing.T) {
	svc := storagetest.NewService(t)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := svc.Store(ctx, "BTC/USD", "1h", storagetest.Candles(24, start, time.Hour)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// Entirely before the data: every partition is pruned, no query runs.
	frame, err := svc.Load(ctx, "BTC/USD", "1h", storage.LoadOptions{
		Start: start.AddDate(-1, 0, 0),
		End:   start.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if frame.Len() != 0 {
		t.Fatalf("Len = %d, want 0", frame.Len())
	}
	if cols := frame.Columns(); len(cols) != 5 {
		t.Errorf("Columns = %v, want all five present", cols)
	}
	if frame.Freq != 0 {
		t.Errorf("Freq = %v, want 0 for empty result", frame.Freq)
	}
}

func TestLoadProjection(t *testing.T) {
	svc := storagetest.NewService(t)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := storagetest.Candles(10, start, time.Hour)
	if err := svc.Store(ctx, "BTC/USD", "1h", candles); err != nil {
		t.Fatalf("Store: %v", err)
	}

	frame, err := svc.Load(ctx, "BTC/USD", "1h", storage.LoadOptions{
		Columns: []string{types.ColumnClose, types.ColumnOpen},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if frame.Len() != 10 {
		t.Fatalf("Len = %d, want 10", frame.Len())
	}

	cols := frame.Columns()
	if len(cols) != 2 || cols[0] != types.ColumnOpen || cols[1] != types.ColumnClose {
		t.Errorf("Columns = %v, want [open close] in canonical order", cols)
	}
	if frame.High != nil || frame.Low != nil || frame.Volume != nil {
		t.Errorf("projected-out columns must be nil")
	}
	for i := range candles {
		if frame.Open[i] != candles[i].Open || frame.Close[i] != candles[i].Close {
			t.Fatalf("row %d: open/close = %v/%v, want %v/%v",
				i, frame.Open[i], frame.Close[i], candles[i].Open, candles[i].Close)
		}
	}
}

func TestLoadUnknownColumn(t *testing.T) {
	svc := storagetest.NewService(t)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := svc.Store(ctx, "BTC/USD", "1h", storagetest.Candles(5, start, time.Hour)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	_, err := svc.Load(ctx, "BTC/USD", "1h", storage.LoadOptions{Columns: []string{"vwap"}})
	if !errors.Is(err, errors.ErrUnknownColumn) {
		t.Errorf("err = %v, want ErrUnknownColumn", err)
	}

	// The timestamp column is implicit, never requested by name.
	_, err = svc.Load(ctx, "BTC/USD", "1h", storage.LoadOptions{Columns: []string{"ts_ms"}})
	if !errors.Is(err, errors.ErrUnknownColumn) {
		t.Errorf("ts_ms err = %v, want ErrUnknownColumn", err)
	}
}

func TestLoadMissingDataset(t *testing.T) {
	svc := storagetest.NewService(t)

	_, err := svc.Load(context.Background(), "NO/PE", "1h", storage.LoadOptions{})
	if !errors.IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
}

func TestLoadFreqWithGap(t *testing.T) {
	svc := storagetest.NewService(t)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := storagetest.Candles(10, start, time.Hour)
	candles = append(candles[:5], candles[6:]...) // drop one bar

	if err := svc.Store(ctx, "BTC/USD", "1h", candles); err != nil {
		t.Fatalf("Store: %v", err)
	}

	frame, err := svc.Load(ctx, "BTC/USD", "1h", storage.LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if frame.Len() != 9 {
		t.Fatalf("Len = %d, want 9", frame.Len())
	}
	if frame.Freq != 0 {
		t.Errorf("Freq = %v, want 0 for irregular spacing", frame.Freq)
	}
}

func TestLoadAcrossPartitions(t *testing.T) {
	svc := storagetest.NewService(t)
	ctx := context.Background()

	// Hourly data spanning three monthly partitions.
	start := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	n := 60 * 24
	if err := svc.Store(ctx, "BTC/USD", "1h", storagetest.Candles(n, start, time.Hour)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	from := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 11, 0, 0, 0, time.UTC)
	frame, err := svc.Load(ctx, "BTC/USD", "1h", storage.LoadOptions{Start: from, End: to})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if frame.Len() != 24 {
		t.Fatalf("Len = %d, want 24", frame.Len())
	}
	for i := 1; i < frame.Len(); i++ {
		if frame.Ts[i] <= frame.Ts[i-1] {
			t.Fatalf("timestamps not strictly ascending at %d", i)
		}
	}
	if !frame.Time(0).Equal(from) || !frame.Time(frame.Len()-1).Equal(to) {
		t.Errorf("range = %v..%v, want %v..%v", frame.Time(0), frame.Time(frame.Len()-1), from, to)
	}
}
