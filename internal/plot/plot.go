// Package plot renders likelihood surfaces, confidence regions and tracks
// as PNG files.
package plot

import (
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/qraat/qraat/internal/covariance"
	"github.com/qraat/qraat/internal/position"
	"github.com/qraat/qraat/internal/track"
)

const (
	width  = 8 * vg.Inch
	height = 8 * vg.Inch

	ellipsePoints = 100
)

var (
	siteColor  = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	fixColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	knownColor = color.RGBA{R: 0, G: 160, B: 0, A: 255}
)

// surface adapts a likelihood grid to plotter.GridXYZ. Column c is the
// easting offset and row r the northing offset from the grid centre.
type surface struct{ g *position.Grid }

func (s surface) Dims() (c, r int) { return s.g.Span(), s.g.Span() }
func (s surface) Z(c, r int) float64 {
	return s.g.Likelihoods[c*s.g.Span()+r]
}
func (s surface) X(c int) float64 {
	return imag(s.g.Center) + float64(c-s.g.HalfSpan)*s.g.Scale
}
func (s surface) Y(r int) float64 {
	return real(s.g.Center) + float64(r-s.g.HalfSpan)*s.g.Scale
}

// SearchSpace describes one search-space figure.
type SearchSpace struct {
	Title    string
	Grid     *position.Grid
	Sites    map[int]complex128
	Fix      *complex128
	Known    *complex128
	Ellipses []*covariance.Ellipse
}

// xy maps complex positions to easting/northing plot points.
func xy(ps ...complex128) plotter.XYs {
	out := make(plotter.XYs, len(ps))
	for i, p := range ps {
		out[i] = plotter.XY{X: imag(p), Y: real(p)}
	}
	return out
}

func sortedSites(sites map[int]complex128) []complex128 {
	ids := make([]int, 0, len(sites))
	for id := range sites {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]complex128, len(ids))
	for i, id := range ids {
		out[i] = sites[id]
	}
	return out
}

func addPoints(p *plot.Plot, label string, c color.Color, shape draw.GlyphDrawer, pts plotter.XYs) error {
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Shape = shape
	sc.GlyphStyle.Radius = vg.Points(4)
	p.Add(sc)
	p.Legend.Add(label, sc)
	return nil
}

// Build returns the figure: a heat map of the surface with sites, the
// fix, an optional known location and confidence ellipses on top.
func (s *SearchSpace) Build() (*plot.Plot, error) {
	if s.Grid == nil {
		return nil, fmt.Errorf("search space %q has no grid", s.Title)
	}
	p := plot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = "Easting (m)"
	p.Y.Label.Text = "Northing (m)"

	p.Add(plotter.NewHeatMap(surface{s.Grid}, palette.Heat(64, 1)))

	if len(s.Sites) > 0 {
		if err := addPoints(p, "sites", siteColor, draw.TriangleGlyph{}, xy(sortedSites(s.Sites)...)); err != nil {
			return nil, err
		}
	}
	if s.Fix != nil {
		if err := addPoints(p, "estimate", fixColor, draw.CrossGlyph{}, xy(*s.Fix)); err != nil {
			return nil, err
		}
	}
	if s.Known != nil {
		if err := addPoints(p, "known", knownColor, draw.CircleGlyph{}, xy(*s.Known)); err != nil {
			return nil, err
		}
	}

	colors := generateColors(len(s.Ellipses))
	for i, e := range s.Ellipses {
		pts := e.Boundary(ellipsePoints)
		line, err := plotter.NewLine(xy(append(pts, pts[0])...))
		if err != nil {
			return nil, err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%.0f%%", 100*e.Level), line)
	}

	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// Save renders the figure to path; the format follows the extension.
func (s *SearchSpace) Save(path string) error {
	p, err := s.Build()
	if err != nil {
		return err
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save search space plot: %w", err)
	}
	return nil
}

// Track renders a reconstructed track over the raw positions it was
// chosen from.
func Track(path, title string, positions, points []track.Point, sites map[int]complex128) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Easting (m)"
	p.Y.Label.Text = "Northing (m)"

	toXY := func(ps []track.Point) plotter.XYs {
		out := make(plotter.XYs, len(ps))
		for i, pt := range ps {
			out[i] = plotter.XY{X: imag(pt.P), Y: real(pt.P)}
		}
		return out
	}

	if len(positions) > 0 {
		gray := color.RGBA{R: 160, G: 160, B: 160, A: 255}
		if err := addPoints(p, "positions", gray, draw.CircleGlyph{}, toXY(positions)); err != nil {
			return err
		}
	}
	if len(points) > 1 {
		line, err := plotter.NewLine(toXY(points))
		if err != nil {
			return err
		}
		line.Color = color.RGBA{R: 200, G: 30, B: 30, A: 255}
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add("track", line)
	}
	if len(sites) > 0 {
		if err := addPoints(p, "sites", siteColor, draw.TriangleGlyph{}, xy(sortedSites(sites)...)); err != nil {
			return err
		}
	}

	p.Legend.Top = true
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save track plot: %w", err)
	}
	return nil
}
