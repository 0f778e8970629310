package ingest

import (
	"sort"

	"github.com/AngelCh415/adboard/internal/models"
)

// Aggregate folds records into one summary and per-date buckets. Buckets are
// keyed by the normalized date string verbatim, so "2024-1-5" and
// "2024-01-05" stay apart.
func Aggregate(records []models.NormalizedRecord) (models.Summary, map[string]*models.DailyBucket) {
	var sum models.Summary
	daily := make(map[string]*models.DailyBucket)
	for _, r := range records {
		sum.Add(r)
		b, ok := daily[r.Date]
		if !ok {
			b = &models.DailyBucket{Date: r.Date}
			daily[r.Date] = b
		}
		b.Add(r)
	}
	sum.RecordCount = len(records)

	// derived ratios only once the fold is complete
	sum.AverageClickRate = safeDivF(float64(sum.Clicks), float64(sum.Impressions)) * 100
	sum.AverageConversionCost = safeDivF(sum.Cost, float64(sum.Conversions))
	sum.AverageCPM = safeDivF(sum.Cost, float64(sum.Impressions)) * 1000
	return sum, daily
}

// SortDaily orders buckets ascending by DecomposeDate. Dates that cannot be
// decomposed go last; equal days fall back to string order.
func SortDaily(daily map[string]*models.DailyBucket) []models.DailyBucket {
	type keyed struct {
		b  models.DailyBucket
		at int64
		ok bool
	}
	ks := make([]keyed, 0, len(daily))
	for _, b := range daily {
		t, ok := DecomposeDate(b.Date)
		ks = append(ks, keyed{b: *b, at: t.Unix(), ok: ok})
	}
	sort.Slice(ks, func(i, j int) bool {
		if ks[i].ok != ks[j].ok {
			return ks[i].ok
		}
		if ks[i].ok && ks[i].at != ks[j].at {
			return ks[i].at < ks[j].at
		}
		return ks[i].b.Date < ks[j].b.Date
	})

	out := make([]models.DailyBucket, len(ks))
	for i, k := range ks {
		out[i] = k.b
	}
	return out
}

func safeDivF(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
