package web

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	"mmtips-service/services"
)

const (
	ChartTitle  = "Evolução do P/L Acumulado"
	ChartXLabel = "Número de Entradas"
	ChartYLabel = "P/L Acumulado"
)

// ChartPoint is one x/y pair of the P/L series.
type ChartPoint struct {
	X int
	Y float64
}

// SeriesFromHistory maps history rows to x = EntryIndex, y = CumulativePL.
func SeriesFromHistory(rows []services.HistoryRow) []ChartPoint {
	points := make([]ChartPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, ChartPoint{X: r.EntryIndex, Y: r.CumulativePL.InexactFloat64()})
	}
	return points
}

// HoverLabel is the tooltip text shown for a point.
func HoverLabel(p ChartPoint) string {
	return fmt.Sprintf("Entrada: %d\nP/L Acumulado: %.2f", p.X, p.Y)
}

// LineChart renders a single-series SVG line chart with a hover title on
// every point.
func LineChart(w, h int, points []ChartPoint) template.HTML {
	if w <= 0 {
		w = 900
	}
	if h <= 0 {
		h = 420
	}

	const left, right, top, bottom = 70, 30, 50, 50
	plotW := float64(w - left - right)
	plotH := float64(h - top - bottom)

	var b bytes.Buffer
	fmt.Fprintf(&b, "<svg class='pl-chart' xmlns='http://www.w3.org/2000/svg' width='100%%' viewBox='0 0 %d %d' role='img'>", w, h)
	fmt.Fprintf(&b, "<text class='chart-title' x='%d' y='28'>%s</text>", left, template.HTMLEscapeString(ChartTitle))
	fmt.Fprintf(&b, "<text class='axis-label' x='%d' y='%d' text-anchor='middle'>%s</text>", left+int(plotW/2), h-12, template.HTMLEscapeString(ChartXLabel))
	fmt.Fprintf(&b, "<text class='axis-label' x='18' y='%d' text-anchor='middle' transform='rotate(-90 18 %d)'>%s</text>", top+int(plotH/2), top+int(plotH/2), template.HTMLEscapeString(ChartYLabel))

	fmt.Fprintf(&b, "<g transform='translate(%d,%d)'>", left, top)
	fmt.Fprintf(&b, "<line class='axis' x1='0' y1='0' x2='0' y2='%.0f'/>", plotH)
	fmt.Fprintf(&b, "<line class='axis' x1='0' y1='%.0f' x2='%.0f' y2='%.0f'/>", plotH, plotW, plotH)

	if len(points) > 0 {
		minx, maxx := float64(points[0].X), float64(points[0].X)
		miny, maxy := points[0].Y, points[0].Y
		for _, p := range points {
			minx = math.Min(minx, float64(p.X))
			maxx = math.Max(maxx, float64(p.X))
			miny = math.Min(miny, p.Y)
			maxy = math.Max(maxy, p.Y)
		}
		sx := plotW / (maxx - minx + 1e-9)
		sy := plotH / (maxy - miny + 1e-9)
		px := func(p ChartPoint) float64 {
			if len(points) == 1 {
				return plotW / 2
			}
			return (float64(p.X) - minx) * sx
		}
		py := func(p ChartPoint) float64 {
			if maxy == miny {
				return plotH / 2
			}
			return plotH - (p.Y-miny)*sy
		}

		// zero line when the curve crosses it
		if miny < 0 && maxy > 0 {
			zero := plotH - (0-miny)*sy
			fmt.Fprintf(&b, "<line class='zero' x1='0' y1='%.2f' x2='%.0f' y2='%.2f'/>", zero, plotW, zero)
		}

		fmt.Fprintf(&b, "<text class='tick' x='-8' y='%.2f' text-anchor='end'>%.2f</text>", py(ChartPoint{Y: maxy}), maxy)
		fmt.Fprintf(&b, "<text class='tick' x='-8' y='%.2f' text-anchor='end'>%.2f</text>", py(ChartPoint{Y: miny}), miny)

		b.WriteString("<polyline class='series' fill='none' points='")
		for i, p := range points {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%.2f,%.2f", px(p), py(p))
		}
		b.WriteString("'/>")

		for _, p := range points {
			fmt.Fprintf(&b, "<circle class='point' cx='%.2f' cy='%.2f' r='3'><title>%s</title></circle>",
				px(p), py(p), template.HTMLEscapeString(HoverLabel(p)))
		}
	}

	b.WriteString("</g></svg>")
	return template.HTML(b.String())
}
