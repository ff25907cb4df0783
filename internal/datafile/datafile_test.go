package datafile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klefe6/almanac/internal/calendar"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1min/es.txt", "")
	writeFile(t, dir, "1min/NQ.txt", "")
	writeFile(t, dir, "daily/ES_daily.txt", "")
	writeFile(t, dir, "daily/cl_daily.txt", "")
	writeFile(t, dir, "daily/notes.txt", "") // no _daily suffix, ignored

	found, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, found, 3)

	assert.Equal(t, "CL", found[0].Symbol)
	assert.Empty(t, found[0].MinutePath)
	assert.NotEmpty(t, found[0].DailyPath)

	assert.Equal(t, "ES", found[1].Symbol)
	assert.NotEmpty(t, found[1].MinutePath)
	assert.NotEmpty(t, found[1].DailyPath)

	assert.Equal(t, "NQ", found[2].Symbol)
	assert.NotEmpty(t, found[2].MinutePath)
	assert.Empty(t, found[2].DailyPath)
}

func TestDiscover_MissingDirs(t *testing.T) {
	found, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestParseMinuteFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "1min/ES.txt",
		"time,open,high,low,close,volume\n"+
			"2024-03-11 09:30:00,5000.25,5001.50,4999.75,5001.00,1250\n"+
			"2024-03-11 09:31,5001.00,5002.00,5000.50,5001.75,980\n"+
			"not,a,bar,row,at,all\n"+
			"2024-03-11 09:32:00,5001.75,5001.75,5000.00,5000.25,1100\n")

	res, err := ParseMinuteFile(path)
	require.NoError(t, err)
	require.Len(t, res.Bars, 3)
	assert.Equal(t, 1, res.Skipped)

	first := res.Bars[0]
	assert.Equal(t, time.Date(2024, 3, 11, 9, 30, 0, 0, calendar.NewYork()), first.Time)
	assert.InDelta(t, 5000.25, first.Open, 1e-9)
	assert.InDelta(t, 5001.00, first.Close, 1e-9)
	assert.Equal(t, int64(1250), first.Volume)

	// Second row exercises the minute-precision layout.
	assert.Equal(t, 31, res.Bars[1].Time.Minute())
}

func TestParseMinuteFile_NoHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "1min/ES.txt",
		"2024-03-11 09:30:00,5000,5001,4999,5000.5,100\n")

	res, err := ParseMinuteFile(path)
	require.NoError(t, err)
	require.Len(t, res.Bars, 1)
	assert.Zero(t, res.Skipped)
}

func TestParseDailyFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "daily/ES_daily.txt",
		"2024-03-11,5000,5030,4990,5020,150000\n"+
			"03/12/2024 00:00,5020,5040,5010,5015,142000.0\n")

	res, err := ParseDailyFile(path)
	require.NoError(t, err)
	require.Len(t, res.Bars, 2)

	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, calendar.NewYork()), res.Bars[0].Time)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, calendar.NewYork()), res.Bars[1].Time)
	assert.Equal(t, int64(142000), res.Bars[1].Volume)
}

func TestParseMinuteFile_MissingFile(t *testing.T) {
	_, err := ParseMinuteFile(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}
