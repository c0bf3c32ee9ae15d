package timespec

import (
	"fmt"
	"time"
)

const dateOnly = "2006-01-02"

// Parse turns a time specification into a Unix timestamp in milliseconds.
// Three forms are accepted:
//   - RFC3339 timestamps: "2026-08-31T13:00:00Z"
//   - calendar dates: "2026-08-31" (midnight UTC)
//   - Go durations: "1h", "30m", "1h30m" (relative, meaning "that long ago")
func Parse(spec string) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if t, err := time.Parse(dateOnly, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return time.Now().Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m', a date like '2026-08-31' or RFC3339 like '2026-08-31T13:00:00Z')", spec)
}

// ParseRange parses the --since and --until flag values into a time range
// in milliseconds. A zero value means that end of the range is unbounded.
// When both ends are given, since must come before until.
func ParseRange(since, until string) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	if since != "" {
		sinceMS, err = Parse(since)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		untilMS, err = Parse(until)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}

	return sinceMS, untilMS, nil
}
