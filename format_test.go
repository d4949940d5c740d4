package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"bytes", 512, "512 B"},
		{"kilobytes", 1536, "1.5 KB"},
		{"megabytes", 5242880, "5.0 MB"},
		{"gigabytes", 1610612736, "1.5 GB"},
		{"terabytes", 1099511627776, "1.0 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatSize(tt.bytes))
		})
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()
	sameYear := time.Date(now.Year(), time.March, 15, 10, 30, 0, 0, time.UTC)
	diffYear := time.Date(2020, time.December, 25, 8, 0, 0, 0, time.UTC)

	t.Run("same year", func(t *testing.T) {
		result := formatTime(sameYear)
		assert.Contains(t, result, "Mar")
		assert.Contains(t, result, "15")
		assert.Contains(t, result, "10:30")
	})

	t.Run("different year", func(t *testing.T) {
		result := formatTime(diffYear)
		assert.Contains(t, result, "Dec")
		assert.Contains(t, result, "25")
		assert.Contains(t, result, "2020")
	})

	t.Run("zero", func(t *testing.T) {
		assert.Equal(t, "-", formatTime(time.Time{}))
	})
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	headers := []string{"NAME", "SIZE", "MODIFIED"}
	rows := [][]string{
		{"file.txt", "1.2 MB", "Jan 15 10:30"},
		{"folder/", "-", "-"},
	}

	require.NoError(t, printTable(&buf, headers, rows))

	out := buf.String()
	assert.Contains(t, out, "file.txt")
	assert.Contains(t, out, "folder/")
	assert.Contains(t, out, "1.2 MB")

	// One line per row plus at least the header.
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), 3)
}

func TestStatusf_Quiet(t *testing.T) {
	old := flagQuiet
	t.Cleanup(func() { flagQuiet = old })

	var buf bytes.Buffer

	flagQuiet = true
	statusf(&buf, "Wrote %s\n", "a.txt")
	assert.Empty(t, buf.String())

	flagQuiet = false
	statusf(&buf, "Wrote %s\n", "a.txt")
	assert.Contains(t, buf.String(), "Wrote a.txt")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printJSON(&buf, map[string]int{"bytes": 3}))
	assert.JSONEq(t, `{"bytes": 3}`, buf.String())
}
