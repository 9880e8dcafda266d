package types

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xtxerr/candlestore/internal/errors"
)

// Timeframe is a validated bar interval such as "1m", "4h" or "1d".
// The string form doubles as the dataset directory name on disk.
//
// Format: <n><unit> with n >= 1 and unit one of s, m, h, d, w.
type Timeframe string

// ParseTimeframe validates s and returns it as a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if err := tf.Validate(); err != nil {
		return "", err
	}
	return tf, nil
}

// Validate checks the timeframe format.
func (t Timeframe) Validate() error {
	if t == "" {
		return errors.NewInvalidTimeframe(string(t), "empty")
	}
	_, _, err := t.split()
	return err
}

// Duration returns the nominal bar spacing. Returns 0 for an invalid
// timeframe.
func (t Timeframe) Duration() time.Duration {
	n, unit, err := t.split()
	if err != nil {
		return 0
	}
	return time.Duration(n) * unit
}

// String returns the timeframe as stored on disk.
func (t Timeframe) String() string {
	return string(t)
}

// split parses the <n><unit> form.
func (t Timeframe) split() (int64, time.Duration, error) {
	s := string(t)
	if len(s) < 2 {
		return 0, 0, errors.NewInvalidTimeframe(s, "want <n><unit>")
	}

	var unit time.Duration
	switch s[len(s)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		return 0, 0, errors.NewInvalidTimeframe(s, "unit must be one of s, m, h, d, w")
	}

	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, 0, errors.NewInvalidTimeframe(s, "count is not a number")
	}
	if n < 1 {
		return 0, 0, errors.NewInvalidTimeframe(s, fmt.Sprintf("count %d must be >= 1", n))
	}

	return n, unit, nil
}
