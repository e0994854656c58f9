package chart

import (
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// Render draws cfg at the given size and writes it encoded as format.
func Render(cfg *Config, width, height int, format string, w io.Writer) error {
	if cfg == nil {
		return fmt.Errorf("render: nil config")
	}
	rp := gochart.PNG
	if format == FormatSVG {
		rp = gochart.SVG
	}
	var err error
	switch cfg.Type {
	case TypeBar:
		if len(cfg.Data.Datasets) > 1 {
			err = stackedBars(cfg, width, height).Render(rp, w)
		} else {
			err = bars(cfg, width, height).Render(rp, w)
		}
	case TypeLine, TypeScatter:
		err = xyChart(cfg, width, height).Render(rp, w)
	case TypePie:
		err = gochart.PieChart{Title: cfg.Options.Title, Width: width, Height: height, Values: pieValues(cfg)}.Render(rp, w)
	case TypeDoughnut:
		err = gochart.DonutChart{Title: cfg.Options.Title, Width: width, Height: height, Values: pieValues(cfg)}.Render(rp, w)
	default:
		return fmt.Errorf("render: unsupported chart type %q", cfg.Type)
	}
	if err != nil {
		return fmt.Errorf("render %s chart: %w", cfg.Type, err)
	}
	return nil
}

func labelAt(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}
	return fmt.Sprintf("%d", i+1)
}

func fillStyle(ds Dataset, i int) gochart.Style {
	var st gochart.Style
	if c, ok := colorAt(ds.BackgroundColor, i); ok {
		st.FillColor = opaque(c)
	}
	if c, ok := colorAt(ds.BorderColor, i); ok {
		st.StrokeColor = c
		st.StrokeWidth = 1
		if st.FillColor.IsZero() {
			st.FillColor = c
		}
	}
	return st
}

func bars(cfg *Config, width, height int) gochart.BarChart {
	ds := cfg.Data.Datasets[0]
	values := make([]gochart.Value, 0, len(ds.Values))
	for i, v := range ds.Values {
		values = append(values, gochart.Value{Value: v, Label: labelAt(cfg.Data.Labels, i), Style: fillStyle(ds, i)})
	}
	return gochart.BarChart{
		Title:    cfg.Options.Title,
		Width:    width,
		Height:   height,
		BarWidth: barWidth(width, len(values)),
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40},
		},
		YAxis: gochart.YAxis{Name: cfg.Options.YLabel, Range: flatRange(ds.Values)},
		Bars:  values,
	}
}

func stackedBars(cfg *Config, width, height int) gochart.StackedBarChart {
	n := len(cfg.Data.Labels)
	for _, ds := range cfg.Data.Datasets {
		if len(ds.Values) > n {
			n = len(ds.Values)
		}
	}
	out := make([]gochart.StackedBar, 0, n)
	for i := 0; i < n; i++ {
		sb := gochart.StackedBar{Name: labelAt(cfg.Data.Labels, i), Width: barWidth(width, n)}
		for j, ds := range cfg.Data.Datasets {
			if i >= len(ds.Values) {
				continue
			}
			st := fillStyle(ds, 0)
			if st.FillColor.IsZero() {
				st.FillColor = gochart.GetDefaultColor(j)
			}
			sb.Values = append(sb.Values, gochart.Value{Value: ds.Values[i], Label: ds.Label, Style: st})
		}
		out = append(out, sb)
	}
	return gochart.StackedBarChart{
		Title:  cfg.Options.Title,
		Width:  width,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40},
		},
		Bars: out,
	}
}

func barWidth(width, n int) int {
	if n == 0 {
		return 0
	}
	bw := width / (n * 2)
	if bw > 80 {
		bw = 80
	}
	if bw < 4 {
		bw = 4
	}
	return bw
}

func xyChart(cfg *Config, width, height int) gochart.Chart {
	scatter := cfg.Type == TypeScatter
	var series []gochart.Series
	var allYs []float64
	for j, ds := range cfg.Data.Datasets {
		var xs, ys []float64
		if scatter {
			for _, p := range ds.Points {
				xs = append(xs, p.X)
				ys = append(ys, p.Y)
			}
		} else {
			for i, v := range ds.Values {
				xs = append(xs, float64(i))
				ys = append(ys, v)
			}
		}
		allYs = append(allYs, ys...)
		if len(xs) == 1 {
			// a single point has no range on either axis
			xs = append(xs, xs[0]+1)
			ys = append(ys, ys[0])
		}
		color := gochart.GetDefaultColor(j)
		if c, ok := colorAt(ds.BorderColor, 0); ok {
			color = c
		} else if c, ok := colorAt(ds.BackgroundColor, 0); ok {
			color = opaque(c)
		}
		st := gochart.Style{StrokeColor: color, StrokeWidth: 2}
		if scatter {
			st = gochart.Style{StrokeWidth: gochart.Disabled, DotWidth: 4, DotColor: color}
		} else if ds.Fill {
			st.FillColor = color.WithAlpha(64)
		}
		series = append(series, gochart.ContinuousSeries{Name: ds.Label, XValues: xs, YValues: ys, Style: st})
	}

	xAxis := gochart.XAxis{Name: cfg.Options.XLabel}
	if !scatter && len(cfg.Data.Labels) > 0 {
		ticks := make([]gochart.Tick, 0, len(cfg.Data.Labels))
		for i, l := range cfg.Data.Labels {
			ticks = append(ticks, gochart.Tick{Value: float64(i), Label: l})
		}
		if len(ticks) == 1 {
			// match the padded series so the axis keeps a non-zero span
			ticks = append(ticks, gochart.Tick{Value: 1})
		}
		xAxis.Ticks = ticks
	}
	ch := gochart.Chart{
		Title:      cfg.Options.Title,
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      xAxis,
		YAxis:      gochart.YAxis{Name: cfg.Options.YLabel, Range: flatRange(allYs)},
		Series:     series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	return ch
}

// flatRange returns an explicit y range when every value is equal, since
// go-chart refuses to scale an axis with no span. It returns nil otherwise
// so the library picks its own bounds.
func flatRange(values []float64) gochart.Range {
	if len(values) == 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo != hi {
		return nil
	}
	r := &gochart.ContinuousRange{Min: math.Min(0, lo), Max: math.Max(0, hi)}
	if r.Min == r.Max {
		r.Max = r.Min + 1
	}
	return r
}

func pieValues(cfg *Config) []gochart.Value {
	ds := cfg.Data.Datasets[0]
	out := make([]gochart.Value, 0, len(ds.Values))
	for i, v := range ds.Values {
		val := gochart.Value{Value: v, Label: labelAt(cfg.Data.Labels, i)}
		if c, ok := colorAt(ds.BackgroundColor, i); ok && len(ds.BackgroundColor) > 1 {
			val.Style = gochart.Style{FillColor: opaque(c)}
		}
		out = append(out, val)
	}
	return out
}
