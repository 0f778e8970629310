package metrics

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/AngelCh415/adboard/internal/ingest"
	"github.com/AngelCh415/adboard/internal/models"
	"github.com/AngelCh415/adboard/internal/store"
)

type Service struct{ st store.SnapshotStore }

func NewService(st store.SnapshotStore) *Service { return &Service{st: st} }

// Current returns the latest snapshot for a profile. limit/offset page through
// records or notes; without them the full result is returned.
func (s *Service) Current(ctx context.Context, profile string, v url.Values) (models.Snapshot, bool, error) {
	snap, ok, err := s.st.Get(ctx, profile)
	if err != nil || !ok {
		return models.Snapshot{}, ok, err
	}
	limit := atoiDef(v.Get("limit"), 0)
	offset := atoiDef(v.Get("offset"), 0)

	switch {
	case snap.Ads != nil:
		ads := *snap.Ads
		l, o := clampLimitOffset(limit, offset, len(ads.Records))
		ads.Records = paginate(ads.Records, l, o)
		snap.Ads = &ads
	case snap.Notes != nil:
		notes := *snap.Notes
		l, o := clampLimitOffset(limit, offset, len(notes.Notes))
		notes.Notes = paginate(notes.Notes, l, o)
		snap.Notes = &notes
	}
	return snap, true, nil
}

// Daily returns the chronological daily series of the latest ads snapshot,
// optionally bounded by from/to (YYYY-MM-DD, inclusive). Buckets whose date
// cannot be decomposed are only returned when no bound is given.
func (s *Service) Daily(ctx context.Context, profile string, v url.Values) ([]models.DailyBucket, bool, error) {
	snap, ok, err := s.st.Get(ctx, profile)
	if err != nil || !ok || snap.Ads == nil {
		return nil, ok && snap.Ads != nil, err
	}
	from, hasFrom := parseDay(v.Get("from"))
	to, hasTo := parseDay(v.Get("to"))

	out := make([]models.DailyBucket, 0, len(snap.Ads.Daily))
	for _, b := range snap.Ads.Daily {
		if !hasFrom && !hasTo {
			out = append(out, b)
			continue
		}
		d, ok := ingest.DecomposeDate(b.Date)
		if !ok {
			continue
		}
		if hasFrom && d.Before(from) {
			continue
		}
		if hasTo && d.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, true, nil
}

func (s *Service) Clear(ctx context.Context, profile string) error {
	return s.st.Clear(ctx, profile)
}

func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	} else if limit > 1000 {
		limit = 1000
	}
	if offset > n {
		offset = n
	}
	return limit, offset
}
