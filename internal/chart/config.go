package chart

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Supported chart types.
const (
	TypeBar      = "bar"
	TypeLine     = "line"
	TypePie      = "pie"
	TypeDoughnut = "doughnut"
	TypeScatter  = "scatter"
)

// Config is the typed form of a Chart.js style configuration.
type Config struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

// Data holds category labels and one or more datasets.
type Data struct {
	Labels   []string  `json:"labels,omitempty"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset is a single series. Scatter datasets use Points, all others Values.
type Dataset struct {
	Label           string    `json:"label,omitempty"`
	Values          []float64 `json:"values,omitempty"`
	Points          []Point   `json:"points,omitempty"`
	BackgroundColor []string  `json:"background_color,omitempty"`
	BorderColor     []string  `json:"border_color,omitempty"`
	Fill            bool      `json:"fill,omitempty"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Options keeps the handful of presentation options the renderer honors.
type Options struct {
	Title     string `json:"title,omitempty"`
	XLabel    string `json:"x_label,omitempty"`
	YLabel    string `json:"y_label,omitempty"`
	Stacked   bool   `json:"stacked,omitempty"`
	IndexAxis string `json:"index_axis,omitempty"`
}

// DecodeConfig converts a parsed literal into a Config and validates it.
func DecodeConfig(obj map[string]any) (*Config, error) {
	typ, ok := obj["type"].(string)
	if !ok || strings.TrimSpace(typ) == "" {
		return nil, fmt.Errorf("config: missing chart type")
	}
	cfg := &Config{Type: strings.ToLower(strings.TrimSpace(typ))}
	switch cfg.Type {
	case TypeBar, TypeLine, TypePie, TypeDoughnut, TypeScatter:
	default:
		return nil, fmt.Errorf("config: unsupported chart type %q", typ)
	}

	data, ok := obj["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config: missing data object")
	}
	if raw, ok := data["labels"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("config: data.labels must be an array")
		}
		for _, l := range list {
			cfg.Data.Labels = append(cfg.Data.Labels, labelString(l))
		}
	}
	rawSets, ok := data["datasets"].([]any)
	if !ok || len(rawSets) == 0 {
		return nil, fmt.Errorf("config: data.datasets must be a non-empty array")
	}
	for i, rs := range rawSets {
		m, ok := rs.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("config: dataset %d is not an object", i)
		}
		ds, err := decodeDataset(m, cfg.Type == TypeScatter)
		if err != nil {
			return nil, fmt.Errorf("config: dataset %d: %w", i, err)
		}
		cfg.Data.Datasets = append(cfg.Data.Datasets, ds)
	}
	if opts, ok := obj["options"].(map[string]any); ok {
		cfg.Options = decodeOptions(opts)
	}
	return cfg, nil
}

func decodeDataset(m map[string]any, scatter bool) (Dataset, error) {
	var ds Dataset
	if l, ok := m["label"]; ok && l != nil {
		ds.Label = labelString(l)
	}
	raw, ok := m["data"].([]any)
	if !ok {
		return ds, fmt.Errorf("data must be an array")
	}
	for j, v := range raw {
		if pt, ok := v.(map[string]any); ok {
			x, okx := number(pt["x"])
			y, oky := number(pt["y"])
			if !okx || !oky {
				return ds, fmt.Errorf("point %d needs numeric x and y", j)
			}
			if !finite(x) || !finite(y) {
				return ds, fmt.Errorf("point %d is not finite", j)
			}
			ds.Points = append(ds.Points, Point{X: x, Y: y})
			continue
		}
		f, ok := number(v)
		if !ok {
			return ds, fmt.Errorf("value %d is not numeric: %v", j, v)
		}
		if !finite(f) {
			return ds, fmt.Errorf("value %d is not finite", j)
		}
		if scatter {
			ds.Points = append(ds.Points, Point{X: float64(j), Y: f})
			continue
		}
		ds.Values = append(ds.Values, f)
	}
	if !scatter && len(ds.Points) > 0 {
		// category charts plot the y component of point data
		for _, p := range ds.Points {
			ds.Values = append(ds.Values, p.Y)
		}
		ds.Points = nil
	}
	ds.BackgroundColor = colorList(m["backgroundColor"])
	ds.BorderColor = colorList(m["borderColor"])
	if f, ok := m["fill"].(bool); ok {
		ds.Fill = f
	}
	return ds, nil
}

func decodeOptions(m map[string]any) Options {
	var o Options
	// Chart.js 3+ keeps the title under plugins, 2.x at the top level.
	if plugins, ok := m["plugins"].(map[string]any); ok {
		o.Title = titleText(plugins["title"])
	}
	if o.Title == "" {
		o.Title = titleText(m["title"])
	}
	if ia, ok := m["indexAxis"].(string); ok {
		o.IndexAxis = ia
	}
	if scales, ok := m["scales"].(map[string]any); ok {
		for _, key := range sortedKeys(scales) {
			axis, ok := scales[key].(map[string]any)
			if !ok {
				continue
			}
			if s, ok := axis["stacked"].(bool); ok && s {
				o.Stacked = true
			}
			text := titleText(axis["title"])
			switch {
			case strings.HasPrefix(key, "x"):
				o.XLabel = text
			case strings.HasPrefix(key, "y"):
				o.YLabel = text
			}
		}
	}
	return o
}

func titleText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if d, ok := t["display"].(bool); ok && !d {
			return ""
		}
		switch text := t["text"].(type) {
		case string:
			return text
		case []any:
			parts := make([]string, 0, len(text))
			for _, p := range text {
				parts = append(parts, labelString(p))
			}
			return strings.Join(parts, " ")
		}
	}
	return ""
}

func colorList(v any) []string {
	switch c := v.(type) {
	case string:
		return []string{c}
	case []any:
		var out []string
		for _, x := range c {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case nil:
		return 0, true
	}
	return 0, false
}

// finite rejects NaN and the infinities, which strconv accepts from quoted
// strings like 'NaN' and 'Infinity' but no axis can be scaled to.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func labelString(v any) string {
	switch l := v.(type) {
	case string:
		return l
	case float64:
		return strconv.FormatFloat(l, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(l)
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(l))
		for _, p := range l {
			parts = append(parts, labelString(p))
		}
		return strings.Join(parts, " ")
	}
	return fmt.Sprint(v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
