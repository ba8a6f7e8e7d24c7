package charts

import (
	"fmt"
	"image/color"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"bikepulse/pkg/contracts/domain"
)

// Palette of the dashboard.
var (
	Pink      = color.RGBA{R: 0xFF, G: 0x69, B: 0xB4, A: 0xFF} // #FF69B4
	LightPink = color.RGBA{R: 0xFF, G: 0xB6, B: 0xC1, A: 0xFF} // #FFB6C1
)

// Default canvas size.
const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// Renderer draws charts at a fixed size.
type Renderer struct {
	Width  vg.Length
	Height vg.Length
}

// NewRenderer returns a renderer using the default canvas size.
func NewRenderer() *Renderer {
	return &Renderer{Width: DefaultWidth, Height: DefaultHeight}
}

// DailyTrend draws total rentals per day as a line with point markers.
func (r *Renderer) DailyTrend(w io.Writer, daily []domain.DailyAggregate) error {
	p := newPlot("Daily Rentals", "Date", "Total rentals")

	if len(daily) == 0 {
		markEmpty(p)
		return r.write(w, p)
	}

	xys := make(plotter.XYs, len(daily))
	for i, d := range daily {
		xys[i].X = float64(d.Date.Unix())
		xys[i].Y = float64(d.TotalCountSum)
	}

	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return fmt.Errorf("daily trend: %w", err)
	}
	line.Color = Pink
	line.Width = vg.Points(2)
	points.Shape = draw.CircleGlyph{}
	points.Color = Pink
	points.Radius = vg.Points(2.5)

	p.Add(line, points)
	p.X.Tick.Marker = plot.TimeTicks{Format: domain.DateLayout}
	p.Y.Tick.Marker = thousandsTicks{}
	p.Y.Min = 0

	return r.write(w, p)
}

// UserSplit draws casual against registered rentals as two bars.
func (r *Renderer) UserSplit(w io.Writer, m domain.DashboardMetrics) error {
	p := newPlot("Casual vs Registered", "", "Rentals")

	width := r.Width / 5
	bars := []struct {
		value float64
		fill  color.Color
	}{
		{float64(m.TotalCasual), LightPink},
		{float64(m.TotalRegistered), Pink},
	}
	for i, b := range bars {
		bar, err := plotter.NewBarChart(plotter.Values{b.value}, width)
		if err != nil {
			return fmt.Errorf("user split: %w", err)
		}
		bar.Color = b.fill
		bar.LineStyle.Width = 0
		bar.XMin = float64(i)
		p.Add(bar)
	}

	p.NominalX("Casual", "Registered")
	p.Y.Tick.Marker = thousandsTicks{}
	p.Y.Min = 0
	if m.TotalCasual == 0 && m.TotalRegistered == 0 {
		p.Y.Max = 1
	}

	return r.write(w, p)
}

// SeasonBoxes draws one box per season.
func (r *Renderer) SeasonBoxes(w io.Writer, boxes []domain.BoxStats) error {
	return r.boxes(w, "Daily Rentals by Season", "Season", "Total rentals", boxes)
}

// HourBoxes draws one box per hour of day.
func (r *Renderer) HourBoxes(w io.Writer, boxes []domain.BoxStats) error {
	return r.boxes(w, "Hourly Rentals by Hour of Day", "Hour", "Rentals per hour", boxes)
}

func (r *Renderer) boxes(w io.Writer, title, xLabel, yLabel string, boxes []domain.BoxStats) error {
	p := newPlot(title, xLabel, yLabel)

	var labels []string
	for _, b := range boxes {
		if b.Count == 0 {
			continue
		}
		bp, err := boxPlot(b, float64(len(labels)), r.Width/vg.Length(2*max(len(boxes), 4)))
		if err != nil {
			return fmt.Errorf("%s: %w", title, err)
		}
		p.Add(bp)
		labels = append(labels, b.Label)
	}

	if len(labels) == 0 {
		markEmpty(p)
		return r.write(w, p)
	}

	p.NominalX(labels...)
	p.Y.Tick.Marker = thousandsTicks{}
	return r.write(w, p)
}

// boxPlot builds a gonum box from precomputed statistics. gonum computes
// its own quartiles from raw values, so the values handed to it are only
// placeholders and every statistic is overwritten afterwards.
func boxPlot(b domain.BoxStats, loc float64, width vg.Length) (*plotter.BoxPlot, error) {
	values := plotter.Values{b.LowerWhisker, b.Q1, b.Median, b.Q3, b.UpperWhisker}
	values = append(values, b.Outliers...)

	bp, err := plotter.NewBoxPlot(width, loc, values)
	if err != nil {
		return nil, err
	}

	bp.Median = b.Median
	bp.Quartile1 = b.Q1
	bp.Quartile3 = b.Q3
	bp.AdjLow = b.LowerWhisker
	bp.AdjHigh = b.UpperWhisker
	bp.Min = b.Min
	bp.Max = b.Max
	bp.Outside = bp.Outside[:0]
	for i := range b.Outliers {
		bp.Outside = append(bp.Outside, 5+i)
	}
	bp.FillColor = LightPink
	bp.GlyphStyle.Color = Pink

	return bp, nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func markEmpty(p *plot.Plot) {
	p.Title.Text += " (no data in selected range)"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.X.Tick.Marker = plot.ConstantTicks{}
	p.Y.Tick.Marker = plot.ConstantTicks{}
}

func (r *Renderer) write(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(r.Width, r.Height, "svg")
	if err != nil {
		return fmt.Errorf("encode svg: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// thousandsTicks labels the default ticks with thousands separators.
type thousandsTicks struct{}

var tickPrinter = message.NewPrinter(language.English)

func (thousandsTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i, t := range ticks {
		if t.Label == "" {
			continue
		}
		if t.Value == float64(int64(t.Value)) {
			ticks[i].Label = tickPrinter.Sprintf("%d", int64(t.Value))
		} else {
			ticks[i].Label = tickPrinter.Sprintf("%.1f", t.Value)
		}
	}
	return ticks
}
