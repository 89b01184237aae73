package gridview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	cases := map[string]string{
		"MM/dd/yyyy":              "01/02/2006",
		"dd.MM.yy":                "02.01.06",
		"MM/dd/yyyy HH:mm:ss":     "01/02/2006 15:04:05",
		"dd MMM yyyy hh:mm a":     "02 Jan 2006 03:04 PM",
		"EEEE, MMMM d":            "Monday, January 2",
		"yyyy-MM-dd'T'HH:mm":      "2006-01-02T15:04",
		"MM/dd/yyyy HH:mm:ss Z":   "01/02/2006 15:04:05 -07:00",
		"HH:mm:ss.SSS":            "15:04:05.000",
	}
	for pattern, want := range cases {
		assert.Equal(t, want, Layout(pattern), pattern)
	}
}

func TestParseAndFormatDate(t *testing.T) {
	got, err := ParseDate("06/03/2024", "MM/dd/yyyy", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("2024-06-03", "MM/dd/yyyy", time.UTC)
	assert.Error(t, err)

	got, err = ParseDate("1/5/2024", "MM/dd/yyyy", time.UTC)
	require.NoError(t, err, "single-digit month and day are accepted")
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("3/7/2024 9:05:01", "MM/dd/yyyy HH:mm:ss", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 7, 9, 5, 1, 0, time.UTC), got)
	got, err = ParseDate("06/03/2024", "MM/dd/yyyy", time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "03.06.2024", FormatDate(got, "dd.MM.yyyy"))
}

func TestDefaultPattern(t *testing.T) {
	assert.Equal(t, PatternDate, DefaultPattern("LocalDate"))
	assert.Equal(t, PatternLocalDateTime, DefaultPattern("local-date-time"))
	assert.Equal(t, PatternZonedDateTime, DefaultPattern("ZonedDateTime"))
	assert.Empty(t, DefaultPattern("string"))
}
