package config

import (
	"fmt"
)

// PlanInput describes an expected deployment for capacity planning.
type PlanInput struct {
	// Datasets is the number of distinct (symbol, timeframe) pairs.
	Datasets int

	// RowsPerDay is the rows per dataset per day (1440 for 1m candles).
	RowsPerDay int64

	// RetentionDays is how long data is kept.
	RetentionDays int
}

// Requirements represents calculated resource requirements.
type Requirements struct {
	// Storage requirements
	RowsPerDataset    int64
	TotalRows         int64
	TotalStorageBytes int64

	// Memory requirements
	AppendBufferBytes int64
	QueryCacheBytes   int64
	TotalRAMBytes     int64

	// Throughput across all datasets
	RowsIngestedPerDay int64
}

// Constants for calculations
const (
	// Bytes per candle (in-memory)
	bytesPerCandle = 48

	// Bytes per row in Parquet (zstd compressed OHLCV)
	bytesPerRowCompressed = 26
)

// CalculateRequirements computes resource requirements for a deployment.
func (c *Config) CalculateRequirements(in PlanInput) Requirements {
	r := Requirements{}

	// -------------------------------------------------------------------------
	// Storage Requirements
	// -------------------------------------------------------------------------

	r.RowsPerDataset = in.RowsPerDay * int64(in.RetentionDays)
	r.TotalRows = r.RowsPerDataset * int64(in.Datasets)
	r.TotalStorageBytes = r.TotalRows * bytesPerRowCompressed

	// -------------------------------------------------------------------------
	// Memory Requirements
	// -------------------------------------------------------------------------

	// Append rewrites whole partitions in memory, bounded by part file size.
	r.AppendBufferBytes = int64(c.Append.Workers) * int64(c.Files.MaxRowsPerFile) * bytesPerCandle

	// Query cache (from config or default)
	r.QueryCacheBytes = parseMemoryLimit(c.Query.MemoryLimit)

	// Total RAM, plus 1GB for OS and Go runtime
	r.TotalRAMBytes = r.AppendBufferBytes + r.QueryCacheBytes
	r.TotalRAMBytes += 1 * 1024 * 1024 * 1024

	// -------------------------------------------------------------------------
	// Throughput
	// -------------------------------------------------------------------------

	r.RowsIngestedPerDay = in.RowsPerDay * int64(in.Datasets)

	return r
}

// FormatRequirements returns a human-readable summary of requirements.
func (r *Requirements) FormatRequirements() string {
	return fmt.Sprintf(`Resource Requirements
=====================

Throughput:
  Rows ingested/day: %s

Storage:
  Rows/dataset:      %s
  Total Rows:        %s
  Total Storage:     %s (recommended)

Memory:
  Append Buffer:     %s
  Query Cache:       %s
  Total RAM:         %s (recommended)
`,
		formatNumber(r.RowsIngestedPerDay),
		formatNumber(r.RowsPerDataset),
		formatNumber(r.TotalRows),
		formatBytes(r.TotalStorageBytes),
		formatBytes(r.AppendBufferBytes),
		formatBytes(r.QueryCacheBytes),
		formatBytes(r.TotalRAMBytes),
	)
}

// parseMemoryLimit parses a memory limit string like "2GB" into bytes.
func parseMemoryLimit(s string) int64 {
	if s == "" {
		return 2 * 1024 * 1024 * 1024 // Default 2GB
	}

	var value int64
	var unit string
	_, err := fmt.Sscanf(s, "%d%s", &value, &unit)
	if err != nil {
		// Try without space
		for i, c := range s {
			if c < '0' || c > '9' {
				fmt.Sscanf(s[:i], "%d", &value)
				unit = s[i:]
				break
			}
		}
	}

	switch unit {
	case "B", "b", "":
		return value
	case "KB", "kb", "K", "k":
		return value * 1024
	case "MB", "mb", "M", "m":
		return value * 1024 * 1024
	case "GB", "gb", "G", "g":
		return value * 1024 * 1024 * 1024
	case "TB", "tb", "T", "t":
		return value * 1024 * 1024 * 1024 * 1024
	default:
		return value
	}
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats a number with thousand separators.
func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	if n < 1000000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	return fmt.Sprintf("%.1fB", float64(n)/1000000000)
}
