package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/adboard/internal/models"
)

func TestSafeDivF(t *testing.T) {
	assert.Equal(t, 0.0, safeDivF(10, 0))
	assert.Equal(t, 2.5, safeDivF(5, 2))
}

func TestAggregateSummary(t *testing.T) {
	records := []models.NormalizedRecord{
		{Date: "2024-10-31", Cost: 30, Impressions: 1000, Clicks: 20, Conversions: 2},
		{Date: "2024-10-31", Cost: 10, Impressions: 1000, Clicks: 30, Conversions: 2},
		{Date: "2024-11-01", Cost: 10, Likes: 3},
	}
	sum, daily := Aggregate(records)

	assert.Equal(t, 3, sum.RecordCount)
	assert.Equal(t, 50.0, sum.Cost)
	assert.Equal(t, 2000, sum.Impressions)
	assert.Equal(t, 50, sum.Clicks)
	assert.Equal(t, 3, sum.Likes)
	assert.InDelta(t, 2.5, sum.AverageClickRate, 1e-9)
	assert.InDelta(t, 12.5, sum.AverageConversionCost, 1e-9)
	assert.InDelta(t, 25.0, sum.AverageCPM, 1e-9)

	require.Len(t, daily, 2)
	assert.Equal(t, 40.0, daily["2024-10-31"].Cost)
	assert.Equal(t, 50, daily["2024-10-31"].Clicks)
	assert.Equal(t, 3, daily["2024-11-01"].Likes)
}

func TestAggregateZeroGuards(t *testing.T) {
	sum, daily := Aggregate([]models.NormalizedRecord{{Date: "2024-10-31", Cost: 12, Clicks: 4}})
	assert.Equal(t, 0.0, sum.AverageClickRate)
	assert.Equal(t, 0.0, sum.AverageConversionCost)
	assert.Equal(t, 0.0, sum.AverageCPM)
	assert.Len(t, daily, 1)

	sum, daily = Aggregate(nil)
	assert.Equal(t, models.Summary{}, sum)
	assert.Empty(t, daily)
}

func TestAggregateKeepsDistinctDateStrings(t *testing.T) {
	_, daily := Aggregate([]models.NormalizedRecord{
		{Date: "2024-1-5", Clicks: 1},
		{Date: "2024-01-05", Clicks: 2},
	})
	assert.Len(t, daily, 2)
}

func TestSortDaily(t *testing.T) {
	_, daily := Aggregate([]models.NormalizedRecord{
		{Date: "2024-10-31"},
		{Date: "garbage"},
		{Date: "2024-09-05"},
		{Date: "01/10/2024"},
		{Date: "2024-10-01"},
		{Date: ""},
	})

	var got []string
	for _, b := range SortDaily(daily) {
		got = append(got, b.Date)
	}
	assert.Equal(t, []string{"2024-09-05", "01/10/2024", "2024-10-01", "2024-10-31", "", "garbage"}, got)
}
