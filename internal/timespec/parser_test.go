package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("RFC3339 timestamp", func(t *testing.T) {
		got, err := Parse("2026-08-31T13:00:00Z")
		require.NoError(t, err)
		want := time.Date(2026, 8, 31, 13, 0, 0, 0, time.UTC).UnixMilli()
		assert.Equal(t, want, got)
	})

	t.Run("calendar date is midnight UTC", func(t *testing.T) {
		got, err := Parse("2026-08-31")
		require.NoError(t, err)
		want := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC).UnixMilli()
		assert.Equal(t, want, got)
	})

	t.Run("duration is relative to now", func(t *testing.T) {
		before := time.Now().Add(-time.Hour).UnixMilli()
		got, err := Parse("1h")
		after := time.Now().Add(-time.Hour).UnixMilli()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, before)
		assert.LessOrEqual(t, got, after)
	})

	t.Run("compound duration", func(t *testing.T) {
		_, err := Parse("1h30m")
		assert.NoError(t, err)
	})

	t.Run("empty spec", func(t *testing.T) {
		_, err := Parse("")
		assert.Error(t, err)
	})

	t.Run("garbage spec", func(t *testing.T) {
		_, err := Parse("yesterday")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid time specification")
	})
}

func TestParseRange(t *testing.T) {
	t.Run("both bounds", func(t *testing.T) {
		since, until, err := ParseRange("2026-08-01T00:00:00Z", "2026-08-31T00:00:00Z")
		require.NoError(t, err)
		assert.Less(t, since, until)
	})

	t.Run("unbounded ends are zero", func(t *testing.T) {
		since, until, err := ParseRange("", "")
		require.NoError(t, err)
		assert.Zero(t, since)
		assert.Zero(t, until)
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		_, _, err := ParseRange("2026-08-31T00:00:00Z", "2026-08-01T00:00:00Z")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--since must be before --until")
	})

	t.Run("bad since flagged", func(t *testing.T) {
		_, _, err := ParseRange("nope", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --since")
	})
}
