package ingest

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/adboard/internal/models"
)

// DefaultCurrencyRate converts the source currency into the reporting one.
const DefaultCurrencyRate = 4.7

type Field string

const (
	FieldDate            Field = "date"
	FieldCost            Field = "cost"
	FieldImpressions     Field = "impressions"
	FieldClicks          Field = "clicks"
	FieldClickRate       Field = "clickRate"
	FieldInteractions    Field = "interactions"
	FieldFollowers       Field = "followers"
	FieldSaves           Field = "saves"
	FieldLikes           Field = "likes"
	FieldComments        Field = "comments"
	FieldShares          Field = "shares"
	FieldConversions     Field = "conversions"
	FieldConversionCost  Field = "conversionCost"
	FieldCostPerMille    Field = "costPerMille"
	FieldActionClicks    Field = "actionClicks"
	FieldActionClickRate Field = "actionClickRate"

	FieldPublishTime Field = "publishTime"
	FieldNoteType    Field = "type"
	FieldNoteName    Field = "name"
	FieldNoteLink    Field = "link"
	FieldNoteStatus  Field = "status"
)

// Aliases maps a field to its candidate header names, primary first.
type Aliases map[Field][]string

func (a Aliases) Lookup(row models.RawRow, f Field) string {
	return firstPresent(row, a[f])
}

// Coercion kinds reported in CoercionStats.
const (
	KindCount   = "count"
	KindAmount  = "amount"
	KindPercent = "percent"
	KindDate    = "date"
)

// CoercionStats counts non-empty cells that fell back to their default.
type CoercionStats map[string]int

func (s CoercionStats) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

// Normalizer is not safe for concurrent use; build one per upload.
type Normalizer struct {
	Aliases          Aliases
	ConvertCurrency  bool
	CurrencyRate     float64
	// ExcelSerialDates reads bare numbers in the date column as workbook
	// serial days. Only set for workbook sources.
	ExcelSerialDates bool
	Stats            CoercionStats
}

func (n *Normalizer) Normalize(row models.RawRow) models.NormalizedRecord {
	if n.Stats == nil {
		n.Stats = CoercionStats{}
	}
	return models.NormalizedRecord{
		Date:            n.date(row),
		Cost:            n.amount(row, FieldCost),
		Impressions:     n.count(row, FieldImpressions),
		Clicks:          n.count(row, FieldClicks),
		ClickRate:       n.percent(row, FieldClickRate),
		Interactions:    n.count(row, FieldInteractions),
		Followers:       n.count(row, FieldFollowers),
		Saves:           n.count(row, FieldSaves),
		Likes:           n.count(row, FieldLikes),
		Comments:        n.count(row, FieldComments),
		Shares:          n.count(row, FieldShares),
		Conversions:     n.count(row, FieldConversions),
		ConversionCost:  n.amount(row, FieldConversionCost),
		CostPerMille:    n.amount(row, FieldCostPerMille),
		ActionClicks:    n.count(row, FieldActionClicks),
		ActionClickRate: n.percent(row, FieldActionClickRate),
	}
}

func (n *Normalizer) count(row models.RawRow, f Field) int {
	s := n.Aliases.Lookup(row, f)
	v, ok := parseCount(s)
	n.note(s, ok, KindCount)
	return v
}

func (n *Normalizer) amount(row models.RawRow, f Field) float64 {
	s := n.Aliases.Lookup(row, f)
	v, ok := parseAmount(s)
	n.note(s, ok, KindAmount)
	if n.ConvertCurrency {
		rate := n.CurrencyRate
		if rate <= 0 {
			rate = DefaultCurrencyRate
		}
		v = v / rate
	}
	return v
}

func (n *Normalizer) percent(row models.RawRow, f Field) float64 {
	s := n.Aliases.Lookup(row, f)
	v, ok := parsePercent(s)
	n.note(s, ok, KindPercent)
	return v
}

func (n *Normalizer) date(row models.RawRow) string {
	s := n.Aliases.Lookup(row, FieldDate)
	v, ok := normalizeDate(s)
	if !ok && n.ExcelSerialDates {
		v, ok = serialDate(s)
	}
	n.note(s, ok, KindDate)
	return v
}

func (n *Normalizer) note(raw string, ok bool, kind string) {
	if raw != "" && !ok {
		n.Stats[kind]++
	}
}

// ParseCount parses an integer count. Thousands separators are ignored and
// fractional values truncated; anything unparseable or negative is 0.
func ParseCount(s string) int {
	v, _ := parseCount(s)
	return v
}

// ParseAmount parses a money value, ignoring separators and currency marks.
// Unparseable, negative or non-finite values are 0.
func ParseAmount(s string) float64 {
	v, _ := parseAmount(s)
	return v
}

// ParsePercent strips one trailing '%' and parses the rest; failures are 0.
func ParsePercent(s string) float64 {
	v, _ := parsePercent(s)
	return v
}

var amountReplacer = strings.NewReplacer(",", "", "，", "", "¥", "", "￥", "", "$", "", "元", "")

func parseCount(s string) (int, bool) {
	s = strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), "，", "")
	if s == "" {
		return 0, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return max0(int(i)), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(f) {
		return 0, false
	}
	return max0(int(f)), true
}

func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(amountReplacer.Replace(s))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(f) {
		return 0, false
	}
	return maxf(f), true
}

func parsePercent(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(f) {
		return 0, false
	}
	return maxf(f), true
}

var (
	isoDate = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
	dmyDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// genericLayouts is tried in order once the two explicit shapes miss.
var genericLayouts = []string{
	"2006/1/2",
	"2006.1.2",
	"2006年1月2日",
	"20060102",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	time.RFC3339,
	"02-01-06",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// NormalizeDate rewrites D/M/YYYY to YYYY-MM-DD and leaves dash separated
// Y-M-D values alone, padded or not. Other shapes go through a generic parse;
// if that fails too the input is returned unchanged.
func NormalizeDate(s string) string {
	v, _ := normalizeDate(s)
	return v
}

func normalizeDate(s string) (string, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return s, false
	}
	if isoDate.MatchString(t) {
		return t, true
	}
	if m := dmyDate.FindStringSubmatch(t); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%s-%02d-%02d", m[3], mo, d), true
	}
	for _, layout := range genericLayouts {
		if parsed, err := time.Parse(layout, t); err == nil {
			return parsed.Format(time.DateOnly), true
		}
	}
	return s, false
}

// serialDate converts a workbook serial day number.
func serialDate(s string) (string, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 1 || f >= 2958466 {
		return s, false
	}
	parsed, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return s, false
	}
	return parsed.Format(time.DateOnly), true
}

// DecomposeDate is the single ordering rule for date strings: '-' separated
// values are read as year-month-day, '/' separated values as day/month/year.
func DecomposeDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if parts := strings.Split(s, "-"); len(parts) == 3 && len(parts[0]) == 4 {
		return civil(parts[0], parts[1], parts[2])
	}
	if parts := strings.Split(s, "/"); len(parts) == 3 && len(parts[2]) == 4 {
		return civil(parts[2], parts[1], parts[0])
	}
	return time.Time{}, false
}

func civil(y, m, d string) (time.Time, bool) {
	yi, err1 := strconv.Atoi(y)
	mi, err2 := strconv.Atoi(m)
	di, err3 := strconv.Atoi(d)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	return time.Date(yi, time.Month(mi), di, 0, 0, 0, 0, time.UTC), true
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}

func maxf(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
