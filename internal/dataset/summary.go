package dataset

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/vizloom-cli/internal/utils"
)

// Column kinds.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
)

const (
	maxUniqueValues = 5
	previewRows     = 3
)

// Summary is the structural description of a dataset sent to the model and
// stored next to backups.
type Summary struct {
	FileName string           `json:"file_name"`
	Rows     int              `json:"rows"`
	Columns  []Column         `json:"columns"`
	Preview  []map[string]any `json:"data_preview"`
	GroupBy  string           `json:"group_by,omitempty"`
	Grouped  map[string]int   `json:"grouped,omitempty"`
}

// Column describes one column. UniqueValues is set for categorical columns only.
type Column struct {
	Name         string   `json:"name"`
	Kind         string   `json:"type"`
	Unit         string   `json:"unit,omitempty"`
	Missing      int      `json:"missing,omitempty"`
	UniqueValues []string `json:"unique_values,omitempty"`
}

// Summarize classifies every column and counts rows per value of the first
// datetime column, or of the first categorical column when there is none.
func (d *Dataset) Summarize() Summary {
	s := Summary{FileName: d.Name, Rows: len(d.Rows)}
	for i, h := range d.Header {
		s.Columns = append(s.Columns, d.column(i, h))
	}

	groupIdx := -1
	for _, kind := range []string{KindDatetime, KindCategorical} {
		for i, c := range s.Columns {
			if c.Kind == kind {
				groupIdx = i
				break
			}
		}
		if groupIdx >= 0 {
			break
		}
	}
	if groupIdx >= 0 {
		s.GroupBy = d.Header[groupIdx]
		s.Grouped = map[string]int{}
		for _, row := range d.Rows {
			if v := strings.TrimSpace(row[groupIdx]); v != "" {
				s.Grouped[v]++
			}
		}
	}

	for _, row := range d.Rows[:min(previewRows, len(d.Rows))] {
		rec := make(map[string]any, len(d.Header))
		for i, h := range d.Header {
			rec[h] = previewValue(row[i], s.Columns[i].Kind)
		}
		s.Preview = append(s.Preview, rec)
	}
	return s
}

func (d *Dataset) column(idx int, name string) Column {
	_, unit := splitUnits(name)
	c := Column{Name: name, Unit: unit}
	var present, numeric, dated int
	for _, row := range d.Rows {
		v := strings.TrimSpace(row[idx])
		if v == "" {
			c.Missing++
			continue
		}
		present++
		if _, ok := parseNumeric(v); ok {
			numeric++
		}
		if _, ok := parseTimeMaybe(v); ok {
			dated++
		}
	}
	switch {
	case present > 0 && numeric == present:
		c.Kind = KindNumeric
	case dated*2 > len(d.Rows):
		c.Kind = KindDatetime
	default:
		c.Kind = KindCategorical
		seen := map[string]bool{}
		for _, row := range d.Rows {
			v := strings.TrimSpace(row[idx])
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			c.UniqueValues = append(c.UniqueValues, v)
			if len(c.UniqueValues) == maxUniqueValues {
				break
			}
		}
	}
	return c
}

func previewValue(v, kind string) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if kind == KindNumeric {
		if f, ok := parseNumeric(v); ok {
			return f
		}
	}
	return v
}

// JSON renders the summary as indented JSON.
func (s Summary) JSON() (string, error) {
	b, err := utils.PrettyJSON(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Markdown renders a compact report suitable for prompts or terminal output.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.FileName != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.FileName))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", s.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(s.Columns)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range s.Columns {
		b.WriteString(fmt.Sprintf("- %s (%s", c.Name, c.Kind))
		if c.Unit != "" {
			b.WriteString(", unit " + c.Unit)
		}
		if c.Missing > 0 {
			b.WriteString(fmt.Sprintf(", %d missing", c.Missing))
		}
		b.WriteString(")")
		if len(c.UniqueValues) > 0 {
			vals := make([]string, len(c.UniqueValues))
			for i, v := range c.UniqueValues {
				vals[i] = safeVal(v)
			}
			b.WriteString(": " + strings.Join(vals, ", "))
		}
		b.WriteString("\n")
	}

	if len(s.Preview) > 0 {
		b.WriteString("\n[HEAD ROWS]\n")
		names := make([]string, len(s.Columns))
		for i, c := range s.Columns {
			names[i] = safeVal(c.Name)
		}
		b.WriteString("| " + strings.Join(names, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(names)) + "\n")
		for _, rec := range s.Preview {
			cells := make([]string, len(s.Columns))
			for i, c := range s.Columns {
				if v := rec[c.Name]; v != nil {
					cells[i] = safeVal(fmt.Sprint(v))
				}
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
	}

	if s.GroupBy != "" {
		b.WriteString(fmt.Sprintf("\n[GROUPS BY %s]\n", s.GroupBy))
		for _, k := range sortedKeys(s.Grouped) {
			b.WriteString(fmt.Sprintf("- %s: %d\n", safeVal(k), s.Grouped[k]))
		}
	}
	return b.String()
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
		"2006-01", "2006年1月2日", "2006年1月",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric accepts plain numbers, percentages and locale formatted
// numbers such as 1.000,5 or 1,000.5. NaN and Inf read as text.
func parseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	var dec rune = '.'
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	if cpos >= 0 && (dpos < 0 || cpos > dpos) {
		dec = ','
	}
	// Remove thousands separators
	for _, sep := range []rune{',', '.', ' '} {
		if sep != dec {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Sales (USD)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Volume [L]
	{regexp.MustCompile(`^(.*)\s*（([^）]+)）\s*$`), 2},    // e.g., 销售额（元）
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
