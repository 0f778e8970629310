package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/AngelCh415/adboard/internal/models"
)

// Header row policies. Some exports carry a banner row above the real header.
const (
	HeaderFirstRow  = 0
	HeaderSecondRow = 1
)

// ParseRows matches every data row positionally against the header row.
// Short rows yield "" for the missing trailing columns; surplus cells and
// blank rows are dropped.
func ParseRows(table [][]string, headerRow int) ([]models.RawRow, error) {
	if headerRow < 0 {
		headerRow = HeaderFirstRow
	}
	if len(table)-headerRow < 2 {
		return nil, invalid(ErrTooFewRows, "got %d usable rows", max(len(table)-headerRow, 0))
	}

	header := make([]string, len(table[headerRow]))
	for i, h := range table[headerRow] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([]models.RawRow, 0, len(table)-headerRow-1)
	for _, cells := range table[headerRow+1:] {
		if blank(cells) {
			continue
		}
		row := make(models.RawRow, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if _, dup := row[h]; dup {
				continue
			}
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, invalid(ErrTooFewRows, "every data row is blank")
	}
	return rows, nil
}

// RowsFromObjects handles array-of-objects input, where each object is
// already keyed by header.
func RowsFromObjects(objs []map[string]any) []models.RawRow {
	rows := make([]models.RawRow, 0, len(objs))
	for _, o := range objs {
		row := make(models.RawRow, len(o))
		for k, v := range o {
			row[strings.TrimSpace(k)] = cellText(v)
		}
		rows = append(rows, row)
	}
	return rows
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
