// Package partition owns the on-disk layout of a dataset: Hive-style
// partition directories derived from candle timestamps, and the encoding of
// symbols into filesystem-safe directory names.
//
// A partition key is a pure function of (timestamp, scheme), so two rows with
// the same timestamp always land in the same partition regardless of when
// they were written.
package partition

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xtxerr/candlestore/internal/errors"
)

// Scheme selects the partition granularity of a dataset.
type Scheme string

const (
	SchemeYearly  Scheme = "yearly"
	SchemeMonthly Scheme = "monthly"
	SchemeDaily   Scheme = "daily"
)

// ParseScheme converts a string to a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemeYearly, SchemeMonthly, SchemeDaily:
		return Scheme(s), nil
	default:
		return "", fmt.Errorf("unknown partition scheme %q (valid: yearly, monthly, daily)", s)
	}
}

func (s Scheme) String() string {
	return string(s)
}

// Key identifies one partition directory. Month and Day are zero when the
// scheme does not use them.
type Key struct {
	Year  int
	Month int
	Day   int
}

// KeyFor derives the partition key for a Unix-millisecond timestamp under the
// given scheme. Timestamps are interpreted in UTC.
func KeyFor(tsMs int64, scheme Scheme) Key {
	t := time.UnixMilli(tsMs).UTC()
	switch scheme {
	case SchemeDaily:
		return Key{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
	case SchemeMonthly:
		return Key{Year: t.Year(), Month: int(t.Month())}
	default:
		return Key{Year: t.Year()}
	}
}

// Scheme reports the granularity implied by the key's shape.
func (k Key) Scheme() Scheme {
	switch {
	case k.Day != 0:
		return SchemeDaily
	case k.Month != 0:
		return SchemeMonthly
	default:
		return SchemeYearly
	}
}

// Path returns the partition directory path relative to the dataset root,
// e.g. "year=2024/month=03" for a monthly key.
func (k Key) Path() string {
	switch k.Scheme() {
	case SchemeDaily:
		return filepath.Join(
			fmt.Sprintf("year=%04d", k.Year),
			fmt.Sprintf("month=%02d", k.Month),
			fmt.Sprintf("day=%02d", k.Day),
		)
	case SchemeMonthly:
		return filepath.Join(
			fmt.Sprintf("year=%04d", k.Year),
			fmt.Sprintf("month=%02d", k.Month),
		)
	default:
		return fmt.Sprintf("year=%04d", k.Year)
	}
}

func (k Key) String() string {
	return k.Path()
}

// Range returns the time window covered by the partition as Unix-millisecond
// bounds, start inclusive and end exclusive.
func (k Key) Range() (startMs, endMs int64) {
	var start, end time.Time
	switch k.Scheme() {
	case SchemeDaily:
		start = time.Date(k.Year, time.Month(k.Month), k.Day, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
	case SchemeMonthly:
		start = time.Date(k.Year, time.Month(k.Month), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	default:
		start = time.Date(k.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
	}
	return start.UnixMilli(), end.UnixMilli()
}

// Overlaps reports whether the partition's window intersects the inclusive
// query range [fromMs, toMs].
func (k Key) Overlaps(fromMs, toMs int64) bool {
	startMs, endMs := k.Range()
	return fromMs < endMs && toMs >= startMs
}

// Compare orders keys chronologically.
func (k Key) Compare(other Key) int {
	if k.Year != other.Year {
		return k.Year - other.Year
	}
	if k.Month != other.Month {
		return k.Month - other.Month
	}
	return k.Day - other.Day
}

// ListKeys scans a dataset directory and returns its partition keys in
// chronological order. Directories that do not follow the year=/month=/day=
// naming (staging dirs, trash dirs, stray files) are ignored, as are leaf
// directories holding no part files, which can be left behind by an
// interrupted write.
func ListKeys(datasetDir string) ([]Key, error) {
	years, err := readDirValues(datasetDir, "year=")
	if err != nil {
		return nil, err
	}

	var keys []Key
	for _, y := range years {
		yearDir := filepath.Join(datasetDir, fmt.Sprintf("year=%04d", y))
		months, err := readDirValues(yearDir, "month=")
		if err != nil {
			return nil, err
		}
		if len(months) == 0 {
			if hasPartFiles(yearDir) {
				keys = append(keys, Key{Year: y})
			}
			continue
		}
		for _, m := range months {
			monthDir := filepath.Join(yearDir, fmt.Sprintf("month=%02d", m))
			days, err := readDirValues(monthDir, "day=")
			if err != nil {
				return nil, err
			}
			if len(days) == 0 {
				if hasPartFiles(monthDir) {
					keys = append(keys, Key{Year: y, Month: m})
				}
				continue
			}
			for _, d := range days {
				dayDir := filepath.Join(monthDir, fmt.Sprintf("day=%02d", d))
				if hasPartFiles(dayDir) {
					keys = append(keys, Key{Year: y, Month: m, Day: d})
				}
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
	return keys, nil
}

func hasPartFiles(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	return err == nil && len(matches) > 0
}

// SchemeOf returns the scheme shared by all keys. Keys of mixed shapes mean
// the dataset directory was corrupted or hand-edited.
func SchemeOf(keys []Key) (Scheme, error) {
	if len(keys) == 0 {
		return "", errors.ErrNotFound
	}
	scheme := keys[0].Scheme()
	for _, k := range keys[1:] {
		if k.Scheme() != scheme {
			return "", errors.Wrapf(errors.ErrSchemeMismatch, "%s vs %s", scheme, k.Scheme())
		}
	}
	return scheme, nil
}

func readDirValues(dir, prefix string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrapf(err, "read dir %s", dir)
	}

	var vals []int
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		v, err := strconv.Atoi(strings.TrimPrefix(e.Name(), prefix))
		if err != nil || v <= 0 {
			continue
		}
		vals = append(vals, v)
	}
	sort.Ints(vals)
	return vals, nil
}

// ValidateSymbol checks that a symbol is non-empty, uses only letters,
// digits, '.', '-' and '/', and contains no empty, "." or ".." path
// segments. Underscores are rejected because '_' encodes '/' on disk.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return errors.NewInvalidSymbol(symbol, "empty")
	}
	for _, r := range symbol {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '/':
		default:
			return errors.NewInvalidSymbol(symbol, fmt.Sprintf("character %q not allowed", r))
		}
	}
	for _, seg := range strings.Split(symbol, "/") {
		switch seg {
		case "":
			return errors.NewInvalidSymbol(symbol, "empty path segment")
		case ".", "..":
			return errors.NewInvalidSymbol(symbol, fmt.Sprintf("segment %q not allowed", seg))
		}
	}
	return nil
}

// EncodeSymbol maps a symbol to its on-disk directory name, replacing '/'
// with '_'. The mapping is reversible because ValidateSymbol rejects
// underscores in symbols.
func EncodeSymbol(symbol string) (string, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return "", err
	}
	return strings.ReplaceAll(symbol, "/", "_"), nil
}

// DecodeSymbol maps an on-disk directory name back to the symbol.
func DecodeSymbol(dir string) string {
	return strings.ReplaceAll(dir, "_", "/")
}

// DatasetDir returns the root directory of one (symbol, timeframe) dataset.
// The timeframe is assumed to be validated by the caller.
func DatasetDir(dataDir, symbol, timeframe string) (string, error) {
	enc, err := EncodeSymbol(symbol)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, enc, timeframe), nil
}
