// Package types defines the core data types used throughout the storage system.
//
// Key types:
//   - Candle: A single OHLCV bar at one timestamp
//   - Frame: A columnar in-memory table of candles
//   - Timeframe: A validated bar interval such as "1h" or "15m"
package types
