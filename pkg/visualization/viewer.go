// Package visualization renders landmark scan profiles as PNG plots and an
// interactive HTML page for inspecting why a neck or head-base height was chosen.
package visualization

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"headfit/pkg/landmark"
)

var (
	radiusColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	widthColor    = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	selectedColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Viewer holds the scan profiles of one run
type Viewer struct {
	// profiles in the order they were added
	profiles []landmark.Profile

	// selected maps a profile name to the height the scan picked
	selected map[string]float64
}

// NewViewer creates a viewer over the given profiles
func NewViewer(profiles ...landmark.Profile) *Viewer {
	return &Viewer{
		profiles: profiles,
		selected: make(map[string]float64),
	}
}

// Add appends a profile and records the height chosen from it
func (v *Viewer) Add(p landmark.Profile, selectedZ float64) {
	v.profiles = append(v.profiles, p)
	v.selected[p.Name] = selectedZ
}

// Profiles returns the profiles held by the viewer
func (v *Viewer) Profiles() []landmark.Profile {
	return v.profiles
}

func fileStem(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

func measured(p landmark.Profile) (radius, width plotter.XYs) {
	for _, s := range p.Samples {
		if s.Skipped {
			continue
		}
		radius = append(radius, plotter.XY{X: s.Z, Y: s.Radius})
		width = append(width, plotter.XY{X: s.Z, Y: s.Width})
	}
	return radius, width
}

// SaveProfilePNG plots radius and width against height for one profile.
// Profiles without any measured sample produce no file and report false.
func (v *Viewer) SaveProfilePNG(p landmark.Profile, path string) (bool, error) {
	radiusPts, widthPts := measured(p)
	if len(radiusPts) == 0 {
		return false, nil
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("%s scan", p.Name)
	pl.X.Label.Text = "Height"
	pl.Y.Label.Text = "Size"

	radiusLine, err := plotter.NewLine(radiusPts)
	if err != nil {
		return false, err
	}
	radiusLine.Color = radiusColor
	radiusLine.Width = vg.Points(1)
	pl.Add(radiusLine)
	pl.Legend.Add("radius", radiusLine)

	widthLine, err := plotter.NewLine(widthPts)
	if err != nil {
		return false, err
	}
	widthLine.Color = widthColor
	widthLine.Width = vg.Points(1)
	pl.Add(widthLine)
	pl.Legend.Add("width", widthLine)

	if z, ok := v.selected[p.Name]; ok {
		for _, s := range p.Samples {
			if s.Z != z || s.Skipped {
				continue
			}
			mark, err := plotter.NewScatter(plotter.XYs{{X: s.Z, Y: s.Radius}})
			if err != nil {
				return false, err
			}
			mark.GlyphStyle.Color = selectedColor
			mark.GlyphStyle.Shape = draw.CircleGlyph{}
			mark.GlyphStyle.Radius = vg.Points(4)
			pl.Add(mark)
			pl.Legend.Add("selected", mark)
			break
		}
	}

	pl.Legend.Top = true
	pl.Legend.Left = false
	pl.Legend.XOffs = -10
	pl.Legend.YOffs = -10

	if err := pl.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return false, fmt.Errorf("failed to save plot: %w", err)
	}
	return true, nil
}

func (v *Viewer) lineChart(p landmark.Profile) *charts.Line {
	xs := make([]string, 0, len(p.Samples))
	radius := make([]opts.LineData, 0, len(p.Samples))
	width := make([]opts.LineData, 0, len(p.Samples))
	for _, s := range p.Samples {
		xs = append(xs, fmt.Sprintf("%.4f", s.Z))
		if s.Skipped {
			radius = append(radius, opts.LineData{Value: nil})
			width = append(width, opts.LineData{Value: nil})
			continue
		}
		radius = append(radius, opts.LineData{Value: s.Radius})
		width = append(width, opts.LineData{Value: s.Width})
	}

	subtitle := fmt.Sprintf("samples=%d", len(p.Samples))
	if z, ok := v.selected[p.Name]; ok {
		subtitle += fmt.Sprintf(" selected z=%.4f", z)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Landmark scans", Width: "900px", Height: "450px"}),
		charts.WithTitleOpts(opts.Title{Title: p.Name, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Height", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Size", NameLocation: "middle", NameGap: 40}),
	)
	line.SetXAxis(xs).
		AddSeries("radius", radius).
		AddSeries("width", width)
	return line
}

// SaveHTML renders every profile as a line chart on one page
func (v *Viewer) SaveHTML(path string) error {
	page := components.NewPage()
	for _, p := range v.profiles {
		page.AddCharts(v.lineChart(p))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SaveAll writes one PNG per profile and a combined HTML page into dir and
// returns the paths written.
func (v *Viewer) SaveAll(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	for _, p := range v.profiles {
		path := filepath.Join(dir, fileStem(p.Name)+"_scan.png")
		ok, err := v.SaveProfilePNG(p, path)
		if err != nil {
			return written, err
		}
		if ok {
			written = append(written, path)
		}
	}

	html := filepath.Join(dir, "scans.html")
	if err := v.SaveHTML(html); err != nil {
		return written, err
	}
	return append(written, html), nil
}
