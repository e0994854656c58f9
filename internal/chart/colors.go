package chart

import (
	"math"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

var namedColors = map[string]drawing.Color{
	"black":       drawing.ColorBlack,
	"white":       drawing.ColorWhite,
	"red":         drawing.ColorRed,
	"green":       drawing.ColorGreen,
	"blue":        drawing.ColorBlue,
	"transparent": drawing.ColorTransparent,
	"orange":      {R: 255, G: 165, B: 0, A: 255},
	"yellow":      {R: 255, G: 255, B: 0, A: 255},
	"purple":      {R: 128, G: 0, B: 128, A: 255},
	"gray":        {R: 128, G: 128, B: 128, A: 255},
	"grey":        {R: 128, G: 128, B: 128, A: 255},
}

// ParseColor converts a CSS color (#rgb, #rgba, #rrggbb, #rrggbbaa, rgb(),
// rgba() or a basic color name) to a drawing color.
func ParseColor(s string) (drawing.Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}
	var body string
	switch {
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		body = s[5 : len(s)-1]
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		body = s[4 : len(s)-1]
	default:
		return drawing.Color{}, false
	}
	parts := strings.FieldsFunc(body, func(r rune) bool { return r == ',' || r == ' ' || r == '/' })
	if len(parts) != 3 && len(parts) != 4 {
		return drawing.Color{}, false
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSuffix(parts[i], "%"), 64)
		if err != nil {
			return drawing.Color{}, false
		}
		if strings.HasSuffix(parts[i], "%") {
			v = v * 255 / 100
		}
		ch[i] = clampByte(v)
	}
	alpha := uint8(255)
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSuffix(parts[3], "%"), 64)
		if err != nil {
			return drawing.Color{}, false
		}
		if strings.HasSuffix(parts[3], "%") {
			a /= 100
		}
		alpha = clampByte(a * 255)
	}
	return drawing.Color{R: ch[0], G: ch[1], B: ch[2], A: alpha}, true
}

func parseHex(h string) (drawing.Color, bool) {
	switch len(h) {
	case 3, 4:
		var b strings.Builder
		for _, r := range h {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		h = b.String()
	case 6, 8:
	default:
		return drawing.Color{}, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return drawing.Color{}, false
	}
	if len(h) == 6 {
		return drawing.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
	}
	return drawing.Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

func clampByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

// colorAt returns the i-th color of a Chart.js color option, which is either
// a single color or one color per data point.
func colorAt(colors []string, i int) (drawing.Color, bool) {
	switch len(colors) {
	case 0:
		return drawing.Color{}, false
	case 1:
		return ParseColor(colors[0])
	}
	return ParseColor(colors[i%len(colors)])
}

// opaque makes a visible color fully opaque. Fully transparent colors stay transparent.
func opaque(c drawing.Color) drawing.Color {
	if c.A == 0 {
		return c
	}
	c.A = 255
	return c
}
