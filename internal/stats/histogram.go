package stats

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when a histogram has no finite values to draw.
var ErrNoData = errors.New("no finite values")

// Bins is a histogram: Counts[i] values fell in [Edges[i], Edges[i+1]).
// The last bin also holds the maximum value.
type Bins struct {
	Edges  []float64
	Counts []int
}

// Histogram buckets the finite values into n equal-width bins.
func Histogram(values []float64, n int) (Bins, error) {
	if n <= 0 {
		return Bins{}, fmt.Errorf("bin count must be positive, got %d", n)
	}
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return Bins{}, ErrNoData
	}
	sort.Float64s(x)

	lo, hi := x[0], x[len(x)-1]
	if hi == lo {
		hi = lo + math.Max(1, math.Abs(lo)*1e-9)
	}
	edges := floats.Span(make([]float64, n+1), lo, hi)

	// stat.Histogram wants the last divider strictly above the largest value.
	dividers := append([]float64(nil), edges...)
	dividers[n] = math.Nextafter(hi, math.Inf(1))

	raw := stat.Histogram(nil, dividers, x, nil)
	counts := make([]int, n)
	for i, c := range raw {
		counts[i] = int(c)
	}
	return Bins{Edges: edges, Counts: counts}, nil
}

// WriteHistogramPNG draws the histogram of values to a PNG at path.
func WriteHistogramPNG(path, title string, values []float64, n int) error {
	b, err := Histogram(values, n)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Value"
	p.Y.Label.Text = "Count"

	xys := make(plotter.XYs, len(b.Counts))
	for i, c := range b.Counts {
		xys[i].X = (b.Edges[i] + b.Edges[i+1]) / 2
		xys[i].Y = float64(c)
	}
	h, err := plotter.NewHistogram(xys, len(b.Counts))
	if err != nil {
		return fmt.Errorf("failed to build histogram: %w", err)
	}
	p.Add(h)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save histogram %s: %w", path, err)
	}
	return nil
}

// WriteHistogramHTML renders the histogram of values as an echarts page.
func WriteHistogramHTML(w io.Writer, title string, values []float64, n int) error {
	b, err := Histogram(values, n)
	if err != nil {
		return err
	}

	labels := make([]string, len(b.Counts))
	data := make([]opts.BarData, len(b.Counts))
	for i, c := range b.Counts {
		labels[i] = fmt.Sprintf("%.4g", b.Edges[i])
		data[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("values=%d bins=%d", len(values), n)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("count", data)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}
