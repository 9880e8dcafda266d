package storage_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/xtxerr/candlestore/internal/storage"
	"github.com/xtxerr/candlestore/internal/storage/storagetest"
	"github.com/xtxerr/candlestore/internal/storage/types"
)

// within reports whether got is within rel of want (sketch percentiles are
// approximate by construction).
func within(got, want, rel float64) bool {
	if want == 0 {
		return math.Abs(got) <= rel
	}
	return math.Abs(got-want)/math.Abs(want) <= rel
}

func TestFrameStats(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	frame := types.NewFrame(storagetest.Candles(100, start, time.Hour))

	stats, err := storage.FrameStats(frame)
	if err != nil {
		t.Fatalf("FrameStats: %v", err)
	}
	if len(stats) != 5 {
		t.Fatalf("got %d column stats, want 5", len(stats))
	}

	// Open runs 100..199.
	open := stats[0]
	if open.Column != types.ColumnOpen {
		t.Fatalf("first column = %s, want open", open.Column)
	}
	if open.Count != 100 {
		t.Errorf("Count = %d, want 100", open.Count)
	}
	if open.Min != 100 || open.Max != 199 {
		t.Errorf("Min/Max = %v/%v, want 100/199", open.Min, open.Max)
	}
	if !within(open.Avg, 149.5, 1e-9) {
		t.Errorf("Avg = %v, want 149.5", open.Avg)
	}
	if !within(open.P50, 149.5, 0.03) {
		t.Errorf("P50 = %v, want ~149.5", open.P50)
	}
	if !within(open.P99, 198, 0.03) {
		t.Errorf("P99 = %v, want ~198", open.P99)
	}
	if open.P50 > open.P90 || open.P90 > open.P95 || open.P95 > open.P99 {
		t.Errorf("percentiles not monotone: %v %v %v %v", open.P50, open.P90, open.P95, open.P99)
	}
}

func TestFrameStatsEmpty(t *testing.T) {
	frame := types.NewFrame(nil)

	stats, err := storage.FrameStats(frame)
	if err != nil {
		t.Fatalf("FrameStats: %v", err)
	}
	if len(stats) != 5 {
		t.Fatalf("got %d column stats, want 5", len(stats))
	}
	for _, cs := range stats {
		if cs.Count != 0 || cs.Min != 0 || cs.Max != 0 || cs.Avg != 0 {
			t.Errorf("%s: zero-row stats = %+v, want zeros", cs.Column, cs)
		}
	}
}

func TestDatasetStats(t *testing.T) {
	svc := storagetest.NewService(t)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := svc.Store(ctx, "BTC/USD", "1h", storagetest.Candles(100, start, time.Hour)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	stats, err := svc.DatasetStats(ctx, "BTC/USD", "1h", storage.LoadOptions{
		Columns: []string{types.ColumnClose},
	})
	if err != nil {
		t.Fatalf("DatasetStats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("got %d column stats, want 1", len(stats))
	}

	// Close runs 101..200.
	cs := stats[0]
	if cs.Column != types.ColumnClose {
		t.Errorf("Column = %s, want close", cs.Column)
	}
	if cs.Count != 100 {
		t.Errorf("Count = %d, want 100", cs.Count)
	}
	if cs.Min != 101 || cs.Max != 200 {
		t.Errorf("Min/Max = %v/%v, want 101/200", cs.Min, cs.Max)
	}
	if !within(cs.Avg, 150.5, 1e-9) {
		t.Errorf("Avg = %v, want 150.5", cs.Avg)
	}
	if cs.P50 < cs.Min || cs.P99 > cs.Max*1.01 {
		t.Errorf("percentiles outside range: P50=%v P99=%v", cs.P50, cs.P99)
	}

	// Bounded stats only see the window.
	stats, err = svc.DatasetStats(ctx, "BTC/USD", "1h", storage.LoadOptions{
		Start:   start,
		End:     start.Add(9 * time.Hour),
		Columns: []string{types.ColumnClose},
	})
	if err != nil {
		t.Fatalf("DatasetStats bounded: %v", err)
	}
	if stats[0].Count != 10 {
		t.Errorf("bounded Count = %d, want 10", stats[0].Count)
	}
	if stats[0].Max != 110 {
		t.Errorf("bounded Max = %v, want 110", stats[0].Max)
	}
}
