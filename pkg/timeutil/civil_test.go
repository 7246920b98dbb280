package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCivilDate(t *testing.T) {
	loc := LoadZone(DefaultZone)

	d, err := ParseCivilDate("1990-05-10", loc)
	require.NoError(t, err)
	assert.Equal(t, "1990-05-10", d.Format("2006-01-02"))

	// A browser in UTC+X serialises local midnight as the previous evening UTC.
	d, err = ParseCivilDate("1990-05-10T03:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, "1990-05-09", d.Format("2006-01-02"))

	d, err = ParseCivilDate("1990-05-10T12:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, "1990-05-10", d.Format("2006-01-02"))

	_, err = ParseCivilDate("10/05/1990", loc)
	assert.Error(t, err)
}

func TestCivilDateIsMidnightInZone(t *testing.T) {
	loc := LoadZone(DefaultZone)
	d := CivilDate(time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC), loc)

	assert.Equal(t, 29, d.Day())
	assert.Equal(t, time.February, d.Month())
	assert.Equal(t, 0, d.Hour())
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("09:45")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+45*time.Minute, d)

	_, err = ParseClock("9am")
	assert.Error(t, err)
}
