package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewCommand_PrintsPlan(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(dateLayout)
	end := time.Date(now.Year(), now.Month(), 28, 0, 0, 0, 0, time.UTC).Format(dateLayout)

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{
		"preview", "--env-file", "",
		"--count", "3", "--min-total", "150000", "--max-total", "160000",
		"--start", start, "--end", end,
	})

	require.NoError(t, root.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "AMOUNT")
	assert.Contains(t, lines[4], "TOTAL")
}

func TestPreviewCommand_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing count", args: []string{"preview", "--env-file", "", "--min-total", "1000"}},
		{name: "bad total", args: []string{"preview", "--env-file", "", "--count", "2", "--min-total", "many"}},
		{name: "bad date", args: []string{"preview", "--env-file", "", "--count", "2", "--min-total", "90000", "--start", "20/10/2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRootCommand()
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})
			root.SetArgs(tt.args)

			assert.Error(t, root.Execute())
		})
	}
}
