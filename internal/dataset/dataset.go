// Package dataset loads uploaded tables (CSV, TSV, plain text, XLSX) and
// produces the previews and structural summaries that are sent to the model.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// DefaultPreviewLines is the number of lines Preview returns when n <= 0.
const DefaultPreviewLines = 100

// ErrEmpty is returned when a file has no header row.
var ErrEmpty = errors.New("dataset is empty")

// Dataset is a decoded table. Raw holds the UTF-8 text of the file; for
// workbooks it is the first sheet re-encoded as CSV.
type Dataset struct {
	Name      string
	Raw       string
	Lines     []string
	Header    []string
	Rows      [][]string
	Delimiter rune
}

// Load reads a dataset from r. The format is chosen from the extension of name.
func Load(name string, r io.Reader) (*Dataset, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return loadWorkbook(name, b)
	case ".csv", ".tsv", ".txt", "":
		return loadText(name, b)
	default:
		return nil, fmt.Errorf("unsupported file type %q (use .csv, .tsv, .txt or .xlsx)", filepath.Ext(name))
	}
}

func loadText(name string, b []byte) (*Dataset, error) {
	text, err := decodeText(b)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	delim := sniffDelimiter(name, text)
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return build(name, text, delim, records)
}

func loadWorkbook(name string, b []byte) (*Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("encode sheet %q: %w", sheets[0], err)
	}
	return build(name, buf.String(), ',', rows)
}

func build(name, text string, delim rune, records [][]string) (*Dataset, error) {
	// drop fully blank records
	kept := records[:0]
	for _, rec := range records {
		if !blankRecord(rec) {
			kept = append(kept, rec)
		}
	}
	if len(kept) == 0 {
		return nil, ErrEmpty
	}
	header := make([]string, len(kept[0]))
	for i, h := range kept[0] {
		header[i] = safeName(h)
	}
	rows := make([][]string, 0, len(kept)-1)
	for _, rec := range kept[1:] {
		row := make([]string, len(header))
		copy(row, rec)
		rows = append(rows, row)
	}
	return &Dataset{
		Name:      filepath.Base(name),
		Raw:       text,
		Lines:     splitLines(text),
		Header:    header,
		Rows:      rows,
		Delimiter: delim,
	}, nil
}

// decodeText returns b as UTF-8. Input that is not valid UTF-8 is read as GB18030.
func decodeText(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if utf8.Valid(b) {
		return string(b), nil
	}
	out, err := simplifiedchinese.GB18030.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func sniffDelimiter(name, text string) rune {
	if strings.EqualFold(filepath.Ext(name), ".tsv") || strings.Contains(text, "\t") {
		return '\t'
	}
	return ','
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Preview returns the first n lines of the file, followed by a marker line
// when more lines exist. n <= 0 means DefaultPreviewLines.
func (d *Dataset) Preview(n int) string {
	if n <= 0 {
		n = DefaultPreviewLines
	}
	if len(d.Lines) <= n {
		return strings.Join(d.Lines, "\n")
	}
	return strings.Join(d.Lines[:n], "\n") + fmt.Sprintf("\n... %d more lines not shown", len(d.Lines)-n)
}

// Records returns the data rows keyed by column name.
func (d *Dataset) Records() []map[string]string {
	out := make([]map[string]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		rec := make(map[string]string, len(d.Header))
		for i, h := range d.Header {
			rec[h] = row[i]
		}
		out = append(out, rec)
	}
	return out
}
