package printer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The error helpers print their rich output to stderr; the returned error
// carries only the title so Cobra (running with SilenceErrors) can set the
// exit code without printing the message a second time.
func TestErrorReturnsTitleOnly(t *testing.T) {
	tests := []struct {
		name        string
		suggestions []string
	}{
		{name: "no suggestions", suggestions: nil},
		{name: "one suggestion", suggestions: []string{"Run trellis init"}},
		{name: "several suggestions", suggestions: []string{"Check the address", "Start Redis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Error("connection failed", "Could not reach Redis.", tt.suggestions)
			require.Error(t, err)
			require.Equal(t, "connection failed", err.Error())
		})
	}
}

func TestErrorWithContextReturnsTitleOnly(t *testing.T) {
	ctx := map[string]string{
		"Config":   "/path/to/trellis.yml",
		"Instance": "default",
	}

	err := ErrorWithContext("config not found", "No trellis.yml in this directory.", ctx, []string{"Run trellis init"})
	require.Error(t, err)
	require.Equal(t, "config not found", err.Error())

	err = ErrorWithContext("config not found", "", nil, nil)
	require.Error(t, err)
	require.Equal(t, "config not found", err.Error())
}
