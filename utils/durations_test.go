package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		defaultUnit Unit
		want        time.Duration
	}{
		{"compact hours and minutes", []string{"1h30m"}, UnitSeconds, 90 * time.Minute},
		{"bare number uses default", []string{"90"}, UnitSeconds, 90 * time.Second},
		{"explicit seconds", []string{"90s"}, UnitMinutes, 90 * time.Second},
		{"colon advances default", []string{"2:00"}, UnitHours, 2 * time.Hour},
		{"colon with minutes default", []string{"2:00"}, UnitMinutes, 2 * time.Minute},
		{"separate tokens", []string{"1h", "30m"}, UnitSeconds, 90 * time.Minute},
		{"default decays across tokens", []string{"1:", "30"}, UnitHours, 90 * time.Minute},
		{"mixed units in one token", []string{"1h2m3s"}, UnitSeconds, time.Hour + 2*time.Minute + 3*time.Second},
		{"uppercase units", []string{"1H30M"}, UnitSeconds, 90 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.args, tt.defaultUnit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDurationErrors(t *testing.T) {
	_, err := ParseDuration(nil, UnitSeconds)
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)

	_, err = ParseDuration([]string{"abc"}, UnitSeconds)
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, err.Error(), "abc")

	_, err = ParseDuration([]string{"90x"}, UnitSeconds)
	require.ErrorAs(t, err, &formatErr)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "0 seconds"},
		{"single hour", time.Hour, "1 hour"},
		{"hour and minutes", 90 * time.Minute, "1 hour and 30 minutes"},
		{"minute and seconds", 90 * time.Second, "1 minute and 30 seconds"},
		{"three parts", time.Hour + time.Minute + time.Second, "1 hour, 1 minute, and 1 second"},
		{"plural everything", 2*time.Hour + 10*time.Minute + 5*time.Second, "2 hours, 10 minutes, and 5 seconds"},
		{"fractional seconds", 500 * time.Millisecond, "0.5 seconds"},
		{"one second singular", time.Second, "1 second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}

// Formatting a duration parsed from canonical tokens must render words
// that map back to the same duration.
func TestDurationRoundTrip(t *testing.T) {
	canonical := [][]string{
		{"1h30m"},
		{"90s"},
		{"2:00"},
		{"45"},
		{"3h"},
	}

	for _, tokens := range canonical {
		parsed, err := ParseDuration(tokens, UnitSeconds)
		require.NoError(t, err)

		reparsed, err := ParseDuration(reencode(FormatDuration(parsed)), UnitSeconds)
		require.NoError(t, err)
		assert.Equal(t, parsed, reparsed, "tokens %v", tokens)
	}
}

// reencode turns "1 hour and 30 minutes" back into compact tokens like
// "1h" "30m" so the formatter's output can be fed to the parser.
func reencode(formatted string) []string {
	replacer := map[string]string{
		"hours": "h", "hour": "h",
		"minutes": "m", "minute": "m",
		"seconds": "s", "second": "s",
	}
	var tokens []string
	var pending string
	for _, word := range strings.Fields(strings.ReplaceAll(formatted, ",", "")) {
		if suffix, ok := replacer[word]; ok {
			tokens = append(tokens, pending+suffix)
			pending = ""
			continue
		}
		if word != "and" {
			pending = word
		}
	}
	return tokens
}

func TestNatJoin(t *testing.T) {
	assert.Equal(t, "0 seconds", NatJoin(nil, "0 seconds"))
	assert.Equal(t, "A", NatJoin([]string{"A"}, ""))
	assert.Equal(t, "A and B", NatJoin([]string{"A", "B"}, ""))
	assert.Equal(t, "A, B, and C", NatJoin([]string{"A", "B", "C"}, ""))
	assert.Equal(t, "A, B, C, and D", NatJoin([]string{"A", "B", "C", "D"}, ""))
}
