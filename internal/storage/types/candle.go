package types

import "time"

// Value column names in canonical order. Loads project onto a subset of
// these; the timestamp column is always present and is not listed here.
const (
	ColumnOpen   = "open"
	ColumnHigh   = "high"
	ColumnLow    = "low"
	ColumnClose  = "close"
	ColumnVolume = "volume"
)

// ValueColumns returns the value column names in canonical order.
func ValueColumns() []string {
	return []string{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume}
}

// IsValueColumn reports whether name is a known value column.
func IsValueColumn(name string) bool {
	switch name {
	case ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume:
		return true
	default:
		return false
	}
}

// Candle represents a single OHLCV bar.
// This is the primary data unit flowing through the storage system.
type Candle struct {
	// TsMs is the bar open time as Unix milliseconds, UTC.
	TsMs int64

	// Prices
	Open  float64
	High  float64
	Low   float64
	Close float64

	// Volume traded during the bar.
	Volume float64
}

// Time returns the bar timestamp as a time.Time in UTC.
func (c *Candle) Time() time.Time {
	return time.UnixMilli(c.TsMs).UTC()
}

// Value returns the named column's value. Unknown names return 0, false.
func (c *Candle) Value(column string) (float64, bool) {
	switch column {
	case ColumnOpen:
		return c.Open, true
	case ColumnHigh:
		return c.High, true
	case ColumnLow:
		return c.Low, true
	case ColumnClose:
		return c.Close, true
	case ColumnVolume:
		return c.Volume, true
	default:
		return 0, false
	}
}

// NewCandle builds a Candle from a time.Time timestamp.
func NewCandle(ts time.Time, open, high, low, close, volume float64) Candle {
	return Candle{
		TsMs:   ts.UnixMilli(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
	}
}
