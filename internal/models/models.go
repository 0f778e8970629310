package models

import "time"

// RawRow is one decoded spreadsheet row keyed by header name.
type RawRow map[string]string

type Kind string

const (
	KindAds   Kind = "ads"
	KindNotes Kind = "notes"
)

type NormalizedRecord struct {
	Date            string  `json:"date"`
	Cost            float64 `json:"cost"`
	Impressions     int     `json:"impressions"`
	Clicks          int     `json:"clicks"`
	ClickRate       float64 `json:"clickRate"`
	Interactions    int     `json:"interactions"`
	Followers       int     `json:"followers"`
	Saves           int     `json:"saves"`
	Likes           int     `json:"likes"`
	Comments        int     `json:"comments"`
	Shares          int     `json:"shares"`
	Conversions     int     `json:"conversions"`
	ConversionCost  float64 `json:"conversionCost"`
	CostPerMille    float64 `json:"costPerMille"`
	ActionClicks    int     `json:"actionClicks"`
	ActionClickRate float64 `json:"actionClickRate"`
}

// Totals holds the summable fields shared by Summary and DailyBucket.
type Totals struct {
	Cost         float64 `json:"cost"`
	Impressions  int     `json:"impressions"`
	Clicks       int     `json:"clicks"`
	Interactions int     `json:"interactions"`
	Followers    int     `json:"followers"`
	Saves        int     `json:"saves"`
	Likes        int     `json:"likes"`
	Comments     int     `json:"comments"`
	Shares       int     `json:"shares"`
	Conversions  int     `json:"conversions"`
	ActionClicks int     `json:"actionClicks"`
}

func (t *Totals) Add(r NormalizedRecord) {
	t.Cost += r.Cost
	t.Impressions += r.Impressions
	t.Clicks += r.Clicks
	t.Interactions += r.Interactions
	t.Followers += r.Followers
	t.Saves += r.Saves
	t.Likes += r.Likes
	t.Comments += r.Comments
	t.Shares += r.Shares
	t.Conversions += r.Conversions
	t.ActionClicks += r.ActionClicks
}

type Summary struct {
	Totals
	RecordCount           int     `json:"recordCount"`
	AverageClickRate      float64 `json:"averageClickRate"`
	AverageConversionCost float64 `json:"averageConversionCost"`
	AverageCPM            float64 `json:"averageCpm"`
}

type DailyBucket struct {
	Date string `json:"date"`
	Totals
}

type Note struct {
	PublishTime string `json:"publishTime"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Link        string `json:"link"`
}

type AdsResult struct {
	Records []NormalizedRecord `json:"records"`
	Summary Summary            `json:"summary"`
	Daily   []DailyBucket      `json:"daily"`
}

type NotesResult struct {
	Notes []Note `json:"notes"`
}

// Snapshot is one processed upload. Version changes on every upload.
type Snapshot struct {
	Version    string       `json:"version"`
	Profile    string       `json:"profile"`
	Account    string       `json:"account"`
	Kind       Kind         `json:"kind"`
	FileName   string       `json:"fileName"`
	UploadedAt time.Time    `json:"uploadedAt"`
	Total      int          `json:"total"`
	Ads        *AdsResult   `json:"ads,omitempty"`
	Notes      *NotesResult `json:"notes,omitempty"`
}

// Data returns the kind-specific payload.
func (s Snapshot) Data() any {
	if s.Kind == KindNotes {
		return s.Notes
	}
	return s.Ads
}
