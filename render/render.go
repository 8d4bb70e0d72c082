// Package render draws the diagnostic plots of a report.
package render

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/op/go-logging"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"bitbucket.org/Davydov/chaindiag/analysis"
	"bitbucket.org/Davydov/chaindiag/diag"
	"bitbucket.org/Davydov/chaindiag/hist"
	"bitbucket.org/Davydov/chaindiag/rhat"
	"bitbucket.org/Davydov/chaindiag/sampler"
)

// log is the global logging variable.
var log = logging.MustGetLogger("render")

var formats = map[string]bool{
	"eps": true, "jpg": true, "jpeg": true, "pdf": true,
	"png": true, "svg": true, "tif": true, "tiff": true,
}

// sigmaDashes are the line dashes of the credible levels, innermost
// first.
var sigmaDashes = [][]vg.Length{
	nil,
	{vg.Points(6), vg.Points(3)},
	{vg.Points(2), vg.Points(2)},
}

// RHatBounds are the class boundaries of the R-hat matrix: below the
// first a chain is converged, above the second it is not.
var RHatBounds = []float64{1.01, 1.05, 1.1}

// rhatColors are the colors of the R-hat classes.
var rhatColors = classes{
	color.White,
	color.RGBA{R: 240, G: 128, B: 128, A: 255},
	color.RGBA{R: 139, A: 255},
}

// classes is a palette with one color per class.
type classes []color.Color

func (c classes) Colors() []color.Color { return c }

// Renderer saves plots into a directory.
type Renderer struct {
	Dir    string
	Format string
	Width  vg.Length
	Height vg.Length
}

// New creates a Renderer writing files with extension format into dir,
// creating dir if needed.
func New(dir, format string) (*Renderer, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if !formats[format] {
		return nil, &diag.ConfigError{Msg: fmt.Sprintf("unknown plot format %q", format)}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Renderer{Dir: dir, Format: format, Width: 10 * vg.Inch, Height: 8 * vg.Inch}, nil
}

// fileName makes a key safe to use in a file name.
func fileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, s)
}

func (r *Renderer) save(p *plot.Plot, kind, name string, h vg.Length) (string, error) {
	path := filepath.Join(r.Dir, fmt.Sprintf("%s_%s.%s", kind, fileName(name), r.Format))
	if err := p.Save(r.Width, h, path); err != nil {
		return "", err
	}
	log.Debugf("Saved %s", path)
	return path, nil
}

// Autocorrelations plots the mean autocorrelation of every key.
func (r *Renderer) Autocorrelations(acfs map[string][]float64, keys []string) ([]string, error) {
	var files []string
	for _, key := range keys {
		a := acfs[key]
		if a == nil {
			continue
		}
		pts := make(plotter.XYs, len(a))
		for l, v := range a {
			pts[l].X = float64(l)
			pts[l].Y = v
		}
		p := plot.New()
		p.Title.Text = "Autocorrelation of " + sampler.DisplayName(key)
		p.X.Label.Text = "Lag"
		p.Y.Label.Text = "Autocorrelation"
		p.Add(plotter.NewGrid())
		line, err := plotter.NewLine(pts)
		if err != nil {
			return files, err
		}
		line.Color = plotutil.Color(0)
		p.Add(line)
		f, err := r.save(p, "acf", key, r.Height)
		if err != nil {
			return files, err
		}
		files = append(files, f)
	}
	return files, nil
}

// AutocorrelationOverview draws the autocorrelation of every key in
// one plot. Interesting keys of cfg get a labelled line, the others
// share a thin black one.
func (r *Renderer) AutocorrelationOverview(acfs map[string][]float64, keys []string, cfg sampler.Config) (string, error) {
	interesting := make(map[string]bool)
	for _, key := range cfg.InterestingKeys(keys) {
		interesting[key] = true
	}
	p := plot.New()
	p.Title.Text = "Autocorrelation per parameter"
	p.X.Label.Text = "Lag"
	p.Y.Label.Text = "Autocorrelation"
	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.Color = color.Black
	zero.Dashes = sigmaDashes[1]
	p.Add(zero)

	drawn, systematic, colour := 0, false, 0
	for _, key := range keys {
		a := acfs[key]
		if a == nil {
			continue
		}
		pts := make(plotter.XYs, len(a))
		for l, v := range a {
			pts[l].X = float64(l)
			pts[l].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return "", err
		}
		if interesting[key] {
			line.Color = plotutil.Color(colour)
			colour++
			p.Legend.Add(sampler.DisplayName(key), line)
		} else {
			line.Color = color.Black
			line.Width = vg.Points(0.1)
			if !systematic {
				p.Legend.Add("systematic", line)
				systematic = true
			}
		}
		p.Add(line)
		drawn++
	}
	if drawn == 0 {
		return "", nil
	}
	return r.save(p, "overview", "acf", r.Height)
}

// RHat plots the split-half statistic of every chain of a key, with the
// between-chain statistic as a horizontal line.
func (r *Renderer) RHat(results map[string]rhat.Result) ([]string, error) {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var files []string
	for _, key := range keys {
		res := results[key]
		p := plot.New()
		p.Title.Text = fmt.Sprintf("R-hat of %s: %.4f", sampler.DisplayName(key), res.RHat)
		p.X.Label.Text = "Chain"
		p.Y.Label.Text = "Split-half R-hat"
		pts := make(plotter.XYs, len(res.Within))
		for i, w := range res.Within {
			pts[i].X = float64(i)
			pts[i].Y = w
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return files, err
		}
		s.Color = plotutil.Color(0)
		between := plotter.NewFunction(func(float64) float64 { return res.RHat })
		between.Color = plotutil.Color(1)
		between.Dashes = sigmaDashes[1]
		p.Add(plotter.NewGrid(), s, between)
		p.Legend.Add("within chain", s)
		p.Legend.Add("between chains", between)
		f, err := r.save(p, "rhat", key, r.Height/2)
		if err != nil {
			return files, err
		}
		files = append(files, f)
	}
	return files, nil
}

// rhatClass returns the index of the R-hat class of v.
func rhatClass(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return v
	case v < RHatBounds[0]:
		return 0
	case v < RHatBounds[1]:
		return 1
	}
	return 2
}

// rhatGrid lays out R-hat classes with keys as rows and the
// between-chain statistic followed by every chain as columns.
type rhatGrid struct {
	keys    []string
	results map[string]rhat.Result
	chains  int
}

func (g rhatGrid) Dims() (c, r int) { return g.chains + 1, len(g.keys) }
func (g rhatGrid) X(c int) float64  { return float64(c) }
func (g rhatGrid) Y(r int) float64  { return float64(r) }
func (g rhatGrid) Min() float64     { return 0 }
func (g rhatGrid) Max() float64     { return float64(len(rhatColors) - 1) }

func (g rhatGrid) Z(c, r int) float64 {
	res := g.results[g.keys[r]]
	if c == 0 {
		return rhatClass(res.RHat)
	}
	if c-1 >= len(res.Within) {
		return math.NaN()
	}
	return rhatClass(res.Within[c-1])
}

// RHatMatrix draws the R-hat classes of every key, between chains and
// within every chain, in one heat map.
func (r *Renderer) RHatMatrix(results map[string]rhat.Result, keys []string) (string, error) {
	g := rhatGrid{results: results}
	for _, key := range keys {
		res, ok := results[key]
		if !ok {
			continue
		}
		g.keys = append(g.keys, key)
		if len(res.Within) > g.chains {
			g.chains = len(res.Within)
		}
	}
	if len(g.keys) == 0 {
		return "", nil
	}

	p := plot.New()
	p.Title.Text = "R-hat"
	hm := plotter.NewHeatMap(g, rhatColors)
	hm.NaN = color.Gray{Y: 200}
	p.Add(hm)

	columns := []string{"Total"}
	for i := 0; i < g.chains; i++ {
		columns = append(columns, fmt.Sprintf("chain %d", i))
	}
	rows := make([]string, len(g.keys))
	for i, key := range g.keys {
		rows[i] = sampler.DisplayName(key)
	}
	p.NominalX(columns...)
	p.NominalY(rows...)

	border := draw.LineStyle{Color: color.Black, Width: vg.Points(0.5)}
	labels := []string{
		fmt.Sprintf("< %v", RHatBounds[0]),
		fmt.Sprintf("%v - %v", RHatBounds[0], RHatBounds[1]),
		fmt.Sprintf(">= %v", RHatBounds[1]),
	}
	for i, l := range labels {
		p.Legend.Add(l, &plotter.Polygon{Color: rhatColors[i], LineStyle: border})
	}
	p.Legend.Top = true
	return r.save(p, "overview", "rhat", r.Height)
}

// SplitHistograms overlays the normalized partitions of every key.
func (r *Renderer) SplitHistograms(agg *hist.Aggregator) ([]string, error) {
	var files []string
	for _, key := range agg.Keys() {
		p := plot.New()
		name := sampler.DisplayName(key)
		p.Title.Text = "Split posterior for " + name
		p.X.Label.Text = name
		p.Y.Label.Text = "Posterior probability density"
		drawn := false
		for i, part := range hist.Partitions {
			h := agg.Hist(key, part)
			if h == nil {
				continue
			}
			n := h.Normalized()
			if n == nil {
				continue
			}
			pts := make(plotter.XYs, len(n))
			for j, c := range h.Centers() {
				pts[j].X = c
				pts[j].Y = n[j]
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return files, err
			}
			line.StepStyle = plotter.MidStep
			line.Color = plotutil.Color(i)
			if part != hist.Full {
				line.Dashes = sigmaDashes[1]
			}
			p.Add(line)
			p.Legend.Add(part.String(), line)
			drawn = true
		}
		if !drawn {
			continue
		}
		f, err := r.save(p, "split", key, r.Height)
		if err != nil {
			return files, err
		}
		files = append(files, f)
	}
	return files, nil
}

// grid adapts a 2D histogram to plotter.GridXYZ, placing values at bin
// centers.
type grid struct {
	h *hist.Hist2D
}

func (g grid) Dims() (c, r int)   { return g.h.Dims() }
func (g grid) Z(c, r int) float64 { return g.h.At(c, r) }
func (g grid) X(c int) float64    { return (g.h.XEdges[c] + g.h.XEdges[c+1]) / 2 }
func (g grid) Y(r int) float64    { return (g.h.YEdges[r] + g.h.YEdges[r+1]) / 2 }

// Contours draws the credible regions of every pair, one colour per
// partition and one dash style per level.
func (r *Renderer) Contours(agg *hist.Aggregator, credible map[sampler.Pair]map[hist.Partition][]float64) ([]string, error) {
	var files []string
	for _, pair := range agg.Pairs() {
		byPart := credible[pair]
		if len(byPart) == 0 {
			continue
		}
		p := plot.New()
		x, y := sampler.DisplayName(pair.X), sampler.DisplayName(pair.Y)
		p.Title.Text = fmt.Sprintf("Split posterior for %s vs %s", x, y)
		p.X.Label.Text = x
		p.Y.Label.Text = y
		for i, part := range hist.Partitions {
			thr, ok := byPart[part]
			if !ok {
				continue
			}
			// ascending levels: outermost region first
			levels := make([]float64, len(thr))
			styles := make([]draw.LineStyle, len(thr))
			for j := range thr {
				k := len(thr) - 1 - j
				levels[j] = thr[k]
				styles[j] = draw.LineStyle{
					Color:  plotutil.Color(i),
					Width:  vg.Points(1),
					Dashes: sigmaDashes[k%len(sigmaDashes)],
				}
			}
			c := plotter.NewContour(grid{agg.Hist2D(pair, part)}, levels, nil)
			c.LineStyles = styles
			p.Add(c)
			p.Legend.Add(part.String(), &plotter.Line{LineStyle: styles[len(styles)-1]})
		}
		f, err := r.save(p, "contour", pair.X+"_"+pair.Y, r.Height)
		if err != nil {
			return files, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Traces draws the iteration heat map of every key.
func (r *Renderer) Traces(t *hist.Trace) ([]string, error) {
	var files []string
	for _, key := range t.Keys() {
		h := t.Hist(key)
		if h == nil {
			continue
		}
		p := plot.New()
		name := sampler.DisplayName(key)
		p.Title.Text = "Heatmap trace plot for " + name
		p.X.Label.Text = "Iteration"
		p.Y.Label.Text = name
		p.Add(plotter.NewHeatMap(grid{h}, palette.Heat(64, 1)))
		f, err := r.save(p, "trace", key, r.Height/2)
		if err != nil {
			return files, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Report draws every available result of rep.
func (r *Renderer) Report(rep *analysis.Report) ([]string, error) {
	var files []string
	add := func(f []string, err error) error {
		files = append(files, f...)
		return err
	}
	one := func(f string, err error) error {
		if f != "" {
			files = append(files, f)
		}
		return err
	}
	if rep.Autocorrelations != nil {
		if err := one(r.AutocorrelationOverview(rep.Autocorrelations, rep.Keys, rep.Sampler)); err != nil {
			return files, err
		}
		if err := add(r.Autocorrelations(rep.Autocorrelations, rep.Keys)); err != nil {
			return files, err
		}
	}
	if rep.RHat != nil {
		if err := one(r.RHatMatrix(rep.RHat, rep.Keys)); err != nil {
			return files, err
		}
		if err := add(r.RHat(rep.RHat)); err != nil {
			return files, err
		}
	}
	if rep.Histograms != nil {
		if err := add(r.SplitHistograms(rep.Histograms)); err != nil {
			return files, err
		}
		if err := add(r.Contours(rep.Histograms, rep.Credible)); err != nil {
			return files, err
		}
	}
	if rep.Traces != nil {
		if err := add(r.Traces(rep.Traces)); err != nil {
			return files, err
		}
	}
	log.Infof("Wrote %d plots to %s", len(files), r.Dir)
	return files, nil
}
