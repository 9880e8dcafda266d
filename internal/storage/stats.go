package storage

import (
	"context"
	"fmt"
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/xtxerr/candlestore/internal/storage/types"
)

// ColumnStats summarizes the distribution of one value column. Percentiles
// come from a DDSketch with 1% relative accuracy.
type ColumnStats struct {
	Column string
	Count  int64
	Min    float64
	Max    float64
	Avg    float64
	P50    float64
	P90    float64
	P95    float64
	P99    float64
}

// DatasetStats loads a dataset (narrowed by opts like Load) and summarizes
// each selected column.
func (s *Service) DatasetStats(ctx context.Context, symbol string, timeframe types.Timeframe, opts LoadOptions) ([]ColumnStats, error) {
	frame, err := s.Load(ctx, symbol, timeframe, opts)
	if err != nil {
		return nil, err
	}
	return FrameStats(frame)
}

// FrameStats summarizes every present value column of a frame.
func FrameStats(frame *types.Frame) ([]ColumnStats, error) {
	cols := frame.Columns()
	out := make([]ColumnStats, 0, len(cols))
	for _, name := range cols {
		values, _ := frame.Column(name)
		cs, err := summarize(name, values)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, nil
}

// summarize runs one pass over values, feeding the sketch alongside the
// running min, max and sum.
func summarize(name string, values []float64) (ColumnStats, error) {
	cs := ColumnStats{Column: name}
	if len(values) == 0 {
		return cs, nil
	}

	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		return cs, fmt.Errorf("create sketch: %w", err)
	}

	cs.Min = math.MaxFloat64
	cs.Max = -math.MaxFloat64
	var sum float64
	for _, v := range values {
		if v < cs.Min {
			cs.Min = v
		}
		if v > cs.Max {
			cs.Max = v
		}
		sum += v
		sketch.Add(v)
	}
	cs.Count = int64(len(values))
	cs.Avg = sum / float64(len(values))

	cs.P50, _ = sketch.GetValueAtQuantile(0.50)
	cs.P90, _ = sketch.GetValueAtQuantile(0.90)
	cs.P95, _ = sketch.GetValueAtQuantile(0.95)
	cs.P99, _ = sketch.GetValueAtQuantile(0.99)
	return cs, nil
}
