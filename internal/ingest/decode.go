package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatJSON  Format = "json"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func DetectFormat(filename string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm", ".xltx":
		return FormatExcel, nil
	case ".json":
		return FormatJSON, nil
	case "":
		return "", invalid(ErrUnsupportedExtension, "file %q has no extension", filename)
	default:
		return "", invalid(ErrUnsupportedExtension, "%s", ext)
	}
}

// decodeCSV reads the whole payload. Non UTF-8 input is assumed to be a GBK
// export and decoded as GB18030.
func decodeCSV(r io.Reader, summaryPrefixes []string) ([][]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	b = bytes.TrimPrefix(b, utf8BOM)
	if !utf8.Valid(b) {
		if b, _, err = transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), b); err != nil {
			return nil, fmt.Errorf("decode gb18030: %w", err)
		}
	}

	cr := csv.NewReader(bytes.NewReader(b))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, invalid(ErrMalformedFile, "malformed csv: %v", err)
	}
	return dropSummaryLines(records, summaryPrefixes), nil
}

func decodeExcel(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, invalid(ErrMalformedFile, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func decodeJSON(r io.Reader) ([]map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var objs []map[string]any
	if err := dec.Decode(&objs); err != nil {
		return nil, invalid(ErrMalformedFile, "expected a JSON array of objects: %v", err)
	}
	return objs, nil
}
