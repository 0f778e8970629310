package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AngelCh415/adboard/internal/models"
)

// Retainer holds the most recent snapshot per profile.
type Retainer interface {
	Put(ctx context.Context, profile string, snap models.Snapshot) error
}

// Publisher writes a processed result to a well-known location.
type Publisher interface {
	Publish(name string, v any) error
}

// Observer receives per-upload measurements.
type Observer interface {
	ObserveUpload(profile, outcome string, took time.Duration, rows int)
	AddCoercions(profile string, byKind map[string]int)
}

const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

type Pipeline struct {
	profiles *Registry
	st       Retainer
	pub      Publisher
	obs      Observer
	log      *slog.Logger
	now      func() time.Time
}

func NewPipeline(profiles *Registry, st Retainer, pub Publisher, obs Observer, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		profiles: profiles,
		st:       st,
		pub:      pub,
		obs:      obs,
		log:      log.With(slog.String("component", "pipeline")),
		now:      time.Now,
	}
}

func (p *Pipeline) Profiles() *Registry { return p.profiles }

// Process runs one upload end to end. It is a single attempt: the caller gets
// either a complete snapshot or an error, and nothing is retained on error.
func (p *Pipeline) Process(ctx context.Context, profileName, filename string, r io.Reader) (models.Snapshot, error) {
	start := p.now()
	prof, ok := p.profiles.Get(profileName)
	if !ok {
		return models.Snapshot{}, invalid(ErrUnknownProfile, "%s", profileName)
	}
	if r == nil {
		p.observe(prof.Name, OutcomeInvalid, start, 0)
		return models.Snapshot{}, &ValidationError{Err: ErrMissingFile}
	}

	snap, stats, err := Transform(prof, filename, r)
	if err != nil {
		outcome := OutcomeFailed
		if IsValidation(err) {
			outcome = OutcomeInvalid
		}
		p.observe(prof.Name, outcome, start, 0)
		p.log.WarnContext(ctx, "upload rejected",
			slog.String("profile", prof.Name),
			slog.String("file", filename),
			slog.String("outcome", outcome),
			slog.String("err", err.Error()))
		return models.Snapshot{}, err
	}
	snap.Version = uuid.NewString()
	snap.UploadedAt = p.now().UTC()

	if stats.Total() > 0 {
		p.log.DebugContext(ctx, "coercion defaults applied",
			slog.String("profile", prof.Name),
			slog.Any("by_kind", map[string]int(stats)))
		if p.obs != nil {
			p.obs.AddCoercions(prof.Name, stats)
		}
	}

	if prof.PersistFile != "" && p.pub != nil {
		if err := p.pub.Publish(prof.PersistFile, snap); err != nil {
			p.observe(prof.Name, OutcomeFailed, start, 0)
			return models.Snapshot{}, fmt.Errorf("persist %s: %w", prof.PersistFile, err)
		}
	}
	if p.st != nil {
		if err := p.st.Put(ctx, prof.Name, snap); err != nil {
			p.observe(prof.Name, OutcomeFailed, start, 0)
			return models.Snapshot{}, fmt.Errorf("retain snapshot: %w", err)
		}
	}

	p.observe(prof.Name, OutcomeOK, start, snap.Total)
	p.log.InfoContext(ctx, "upload processed",
		slog.String("profile", prof.Name),
		slog.String("file", filename),
		slog.String("version", snap.Version),
		slog.Int("total", snap.Total),
		slog.Duration("took", p.now().Sub(start)))
	return snap, nil
}

func (p *Pipeline) observe(profile, outcome string, start time.Time, rows int) {
	if p.obs == nil {
		return
	}
	p.obs.ObserveUpload(profile, outcome, p.now().Sub(start), rows)
}

// Transform decodes and processes one file under a profile without touching
// any store. Version and UploadedAt are left for the caller.
func Transform(prof Profile, filename string, r io.Reader) (models.Snapshot, CoercionStats, error) {
	rows, err := readRows(prof, filename, r)
	if err != nil {
		return models.Snapshot{}, nil, err
	}

	snap := models.Snapshot{
		Profile:  prof.Name,
		Account:  prof.Account,
		Kind:     prof.Kind,
		FileName: filename,
	}
	stats := CoercionStats{}

	switch prof.Kind {
	case models.KindNotes:
		notes := ExtractNotes(rows, prof.NoteFilter, prof.Aliases)
		snap.Notes = &models.NotesResult{Notes: notes}
		snap.Total = len(notes)
	default:
		format, _ := DetectFormat(filename)
		n := &Normalizer{
			Aliases:          prof.Aliases,
			ConvertCurrency:  prof.ConvertCurrency,
			CurrencyRate:     prof.CurrencyRate,
			ExcelSerialDates: format == FormatExcel,
			Stats:            stats,
		}
		records := make([]models.NormalizedRecord, 0, len(rows))
		for _, row := range rows {
			records = append(records, n.Normalize(row))
		}
		summary, daily := Aggregate(records)
		snap.Ads = &models.AdsResult{
			Records: records,
			Summary: summary,
			Daily:   SortDaily(daily),
		}
		snap.Total = len(records)
	}
	return snap, stats, nil
}

func readRows(prof Profile, filename string, r io.Reader) ([]models.RawRow, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	var table [][]string
	switch format {
	case FormatJSON:
		objs, err := decodeJSON(r)
		if err != nil {
			return nil, err
		}
		if len(objs) == 0 {
			return nil, invalid(ErrTooFewRows, "empty array")
		}
		return RowsFromObjects(objs), nil
	case FormatCSV:
		var prefixes []string
		if prof.DropSummaryLines {
			prefixes = prof.SummaryPrefixes
		}
		table, err = decodeCSV(r, prefixes)
	case FormatExcel:
		table, err = decodeExcel(r)
	}
	if err != nil {
		return nil, err
	}
	return ParseRows(table, prof.HeaderRow)
}
