package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodayDropsTimeOfDay(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	c := NewFixed(time.Date(2024, 3, 10, 23, 30, 0, 0, tokyo))

	got := Today(c)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestEpochDay(t *testing.T) {
	assert.Equal(t, int64(0), EpochDay(time.Date(1970, 1, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, int64(-1), EpochDay(time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC)))

	due := time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC)
	today := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(6), EpochDay(today)-EpochDay(due)) // leap year February
}

func TestFixedAddDays(t *testing.T) {
	c := NewFixed(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	c.AddDays(15)
	assert.Equal(t, "2024-01-16", FormatDate(Today(c)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("01/05/2024")
	assert.Error(t, err)
}

func TestRealUsesLocation(t *testing.T) {
	loc := time.FixedZone("X", 3600)
	assert.Equal(t, loc, Real{Loc: loc}.Now().Location())
	assert.Equal(t, time.UTC, Real{}.Now().Location())
}
