package types

import (
	"fmt"
	"sort"
	"time"

	"github.com/xtxerr/candlestore/internal/errors"
)

// Frame is a columnar in-memory table of candles, sorted ascending by
// timestamp. Ts is always present; a value column slice is nil when a load
// projected it out, otherwise it has the same length as Ts.
//
// Partition columns are an on-disk detail and never appear in a Frame.
type Frame struct {
	// Ts holds Unix-millisecond timestamps, ascending.
	Ts []int64

	// Value columns. Nil means "not loaded", not "all zero".
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64

	// Freq is the inferred sampling interval. It is set only when the
	// timestamp spacing is perfectly regular and matches the timeframe's
	// nominal duration; 0 means unknown or irregular. It is a hint, not a
	// guarantee.
	Freq time.Duration
}

// NewFrame builds a full-schema Frame from candles. The candles are assumed
// to be normalized (see Normalize); order is preserved.
func NewFrame(candles []Candle) *Frame {
	f := &Frame{
		Ts:     make([]int64, len(candles)),
		Open:   make([]float64, len(candles)),
		High:   make([]float64, len(candles)),
		Low:    make([]float64, len(candles)),
		Close:  make([]float64, len(candles)),
		Volume: make([]float64, len(candles)),
	}
	for i := range candles {
		f.Ts[i] = candles[i].TsMs
		f.Open[i] = candles[i].Open
		f.High[i] = candles[i].High
		f.Low[i] = candles[i].Low
		f.Close[i] = candles[i].Close
		f.Volume[i] = candles[i].Volume
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Ts)
}

// Columns returns the present value columns in canonical order.
func (f *Frame) Columns() []string {
	var cols []string
	if f.Open != nil {
		cols = append(cols, ColumnOpen)
	}
	if f.High != nil {
		cols = append(cols, ColumnHigh)
	}
	if f.Low != nil {
		cols = append(cols, ColumnLow)
	}
	if f.Close != nil {
		cols = append(cols, ColumnClose)
	}
	if f.Volume != nil {
		cols = append(cols, ColumnVolume)
	}
	return cols
}

// Column returns the named value column, or nil, false when the column is
// unknown or was projected out.
func (f *Frame) Column(name string) ([]float64, bool) {
	switch name {
	case ColumnOpen:
		return f.Open, f.Open != nil
	case ColumnHigh:
		return f.High, f.High != nil
	case ColumnLow:
		return f.Low, f.Low != nil
	case ColumnClose:
		return f.Close, f.Close != nil
	case ColumnVolume:
		return f.Volume, f.Volume != nil
	default:
		return nil, false
	}
}

// Time returns row i's timestamp in UTC.
func (f *Frame) Time(i int) time.Time {
	return time.UnixMilli(f.Ts[i]).UTC()
}

// Candle returns row i as a Candle. Columns that were projected out read as
// zero.
func (f *Frame) Candle(i int) Candle {
	c := Candle{TsMs: f.Ts[i]}
	if f.Open != nil {
		c.Open = f.Open[i]
	}
	if f.High != nil {
		c.High = f.High[i]
	}
	if f.Low != nil {
		c.Low = f.Low[i]
	}
	if f.Close != nil {
		c.Close = f.Close[i]
	}
	if f.Volume != nil {
		c.Volume = f.Volume[i]
	}
	return c
}

// Candles returns all rows as a candle slice.
func (f *Frame) Candles() []Candle {
	out := make([]Candle, f.Len())
	for i := range out {
		out[i] = f.Candle(i)
	}
	return out
}

// Normalize validates candles and returns a copy sorted ascending by
// timestamp with duplicate timestamps collapsed to the last occurrence
// (later rows win, matching append's upsert semantics).
//
// Fails with an input-shape error when the input is empty or a row has a
// missing (non-positive) timestamp; nothing is written on failure.
func Normalize(candles []Candle) ([]Candle, error) {
	if len(candles) == 0 {
		return nil, errors.ErrEmptyInput
	}
	for i := range candles {
		if candles[i].TsMs <= 0 {
			return nil, errors.Wrapf(errors.ErrMissingTimestamp, "row %d", i)
		}
	}

	out := make([]Candle, len(candles))
	copy(out, candles)

	// Stable keeps input order among equal timestamps so the last
	// occurrence survives the dedup below.
	sort.SliceStable(out, func(i, j int) bool { return out[i].TsMs < out[j].TsMs })

	dedup := out[:0]
	for i := range out {
		if len(dedup) > 0 && dedup[len(dedup)-1].TsMs == out[i].TsMs {
			dedup[len(dedup)-1] = out[i]
			continue
		}
		dedup = append(dedup, out[i])
	}
	return dedup, nil
}

// String returns a short human-readable summary, useful in logs and the CLI.
func (f *Frame) String() string {
	if f.Len() == 0 {
		return "Frame(0 rows)"
	}
	return fmt.Sprintf("Frame(%d rows, %s..%s, cols=%v)",
		f.Len(),
		f.Time(0).Format(time.RFC3339),
		f.Time(f.Len()-1).Format(time.RFC3339),
		f.Columns(),
	)
}
