package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klefe6/almanac/pkg/contracts/domain"
)

func bar(t *testing.T, ts string, o, h, l, c float64) domain.Bar {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", ts)
	require.NoError(t, err)
	return domain.Bar{Time: parsed, Open: o, High: h, Low: l, Close: c, Volume: 100}
}

func TestByHour(t *testing.T) {
	bars := []domain.Bar{
		bar(t, "2024-01-08 09:30", 100, 102, 99, 101), // +1%, rng 3
		bar(t, "2024-01-08 09:45", 100, 101, 98, 99),  // -1%, rng 3
		bar(t, "2024-01-08 14:00", 200, 203, 199, 202), // +1%, rng 4
	}

	out := ByHour(bars, 5)
	require.Len(t, out, 2)

	assert.Equal(t, "9", out[0].Bucket)
	assert.Equal(t, 2, out[0].Count)
	assert.InDelta(t, 0, out[0].PctChange.Mean, 1e-12)
	assert.InDelta(t, 3, out[0].Range.Mean, 1e-12)

	assert.Equal(t, "14", out[1].Bucket)
	assert.Equal(t, 1, out[1].Count)
	assert.InDelta(t, 0.01, out[1].PctChange.Mean, 1e-12)
	assert.InDelta(t, 4, out[1].Range.Mean, 1e-12)
}

func TestByHour_ZeroOpen(t *testing.T) {
	bars := []domain.Bar{
		{Time: time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC), Open: 0, High: 2, Low: 1, Close: 2},
	}
	out := ByHour(bars, 5)
	require.Len(t, out, 1)
	assert.Zero(t, out[0].PctChange.Mean)
	assert.InDelta(t, 1, out[0].Range.Mean, 1e-12)
}

func TestByMinute(t *testing.T) {
	bars := []domain.Bar{
		bar(t, "2024-01-08 09:30", 100, 101, 99, 101),
		bar(t, "2024-01-09 09:30", 200, 202, 198, 198),
		bar(t, "2024-01-08 09:31", 100, 100.5, 99.5, 100.2),
		bar(t, "2024-01-08 10:30", 100, 101, 99, 100), // other hour, ignored
	}

	out := ByMinute(bars, 9, 5)
	require.Len(t, out, 2)

	assert.Equal(t, "30", out[0].Bucket)
	assert.Equal(t, 2, out[0].Count)
	assert.Equal(t, "31", out[1].Bucket)
	assert.Equal(t, 1, out[1].Count)
}

func TestByMinute_EmptyHour(t *testing.T) {
	bars := []domain.Bar{
		bar(t, "2024-01-08 09:30", 100, 101, 99, 101),
	}
	assert.Empty(t, ByMinute(bars, 3, 5))
}

func TestByDayOfWeek(t *testing.T) {
	bars := []domain.Bar{
		bar(t, "2024-01-10 09:30", 100, 101, 99, 101), // Wednesday
		bar(t, "2024-01-08 09:30", 100, 101, 99, 99),  // Monday
		bar(t, "2024-01-12 09:30", 100, 101, 99, 100), // Friday
		bar(t, "2024-01-15 09:30", 100, 101, 99, 102), // next Monday
	}

	out := ByDayOfWeek(bars, 5)
	require.Len(t, out, 3)

	// Monday-first ordering regardless of input order.
	assert.Equal(t, "Monday", out[0].Bucket)
	assert.Equal(t, 2, out[0].Count)
	assert.Equal(t, "Wednesday", out[1].Bucket)
	assert.Equal(t, "Friday", out[2].Bucket)

	// Monday pct changes are -1% and +2%.
	assert.InDelta(t, 0.005, out[0].PctChange.Mean, 1e-12)
}

func TestByMonth(t *testing.T) {
	bars := []domain.Bar{
		bar(t, "2024-03-05 09:30", 100, 101, 99, 101),
		bar(t, "2024-01-08 09:30", 100, 101, 99, 99),
		bar(t, "2023-03-07 09:30", 100, 101, 99, 103),
	}

	out := ByMonth(bars, 5)
	require.Len(t, out, 2)

	assert.Equal(t, "January", out[0].Bucket)
	assert.Equal(t, 1, out[0].Count)
	assert.Equal(t, "March", out[1].Bucket)
	assert.Equal(t, 2, out[1].Count)
	assert.InDelta(t, 0.02, out[1].PctChange.Mean, 1e-12)
}
