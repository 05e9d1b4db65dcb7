package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryFixture() []Entry {
	day := func(d, h int) time.Time { return time.Date(2024, 4, d, h, 0, 0, 0, time.UTC) }
	return []Entry{
		{ID: "trade_3", Coin: "ETH", Exchange: "EdgeX", Status: StatusClosed, Timestamp: day(12, 9)},
		{ID: "trade_1", Coin: "BTC", Exchange: "Blofin", Status: StatusOpen, Timestamp: day(10, 9)},
		{ID: "trade_2", Coin: "btc", Exchange: "blofin", Status: StatusPartiallyClosed, Timestamp: day(10, 23)},
		{ID: "trade_4", Coin: "SOL", Exchange: "Breakout", Status: StatusOpen, Timestamp: day(11, 0)},
	}
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestSelect(t *testing.T) {
	t.Parallel()

	entries := queryFixture()

	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{"all, oldest first", Filter{}, []string{"trade_1", "trade_2", "trade_4", "trade_3"}},
		{"status", Filter{Status: StatusOpen}, []string{"trade_1", "trade_4"}},
		{"coin ignores case", Filter{Coin: "BTC"}, []string{"trade_1", "trade_2"}},
		{"exchange ignores case", Filter{Exchange: "BLOFIN", Status: StatusPartiallyClosed}, []string{"trade_2"}},
		{"no match", Filter{Coin: "DOGE"}, []string{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ids(Select(entries, tt.f)))
		})
	}

	// The input order is left alone.
	assert.Equal(t, "trade_3", entries[0].ID)
}

func TestOpenedBetweenDay(t *testing.T) {
	t.Parallel()

	start, end, err := DayBounds(time.UTC, "2024-04-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 4, 11, 0, 0, 0, 0, time.UTC), end)

	got := OpenedBetween(queryFixture(), start, end)
	assert.Equal(t, []string{"trade_1", "trade_2"}, ids(got))
}

func TestDayBoundsLocation(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("no tzdata")
	}

	start, end, err := DayBounds(ny, "2024-04-10")
	require.NoError(t, err)

	// 2024-04-10 in New York is 04:00Z to 04:00Z.
	got := OpenedBetween(queryFixture(), start, end)
	assert.Equal(t, []string{"trade_1", "trade_2", "trade_4"}, ids(got))

	_, _, err = DayBounds(time.UTC, "10/04/2024")
	assert.Error(t, err)
}

func TestWeekStart(t *testing.T) {
	t.Parallel()

	monday := time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   time.Time
	}{
		{"monday midnight", monday},
		{"wednesday", time.Date(2024, 4, 10, 15, 30, 0, 0, time.UTC)},
		{"sunday night", time.Date(2024, 4, 14, 23, 59, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, monday, WeekStart(tt.in))
		})
	}
}
