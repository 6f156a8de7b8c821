package graph

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/lunahealth/moodtrack-backend/internal/domain"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/envutil"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
)

const (
	canvasWidth  = 1000
	canvasHeight = 600
	marginLeft   = 70
	marginRight  = 30
	marginTop    = 60
	marginBottom = 70
)

var palette = []color.NRGBA{
	{R: 0xd6, G: 0x2f, B: 0x2f, A: 0xff},
	{R: 0x2f, G: 0x5f, B: 0xd6, A: 0xff},
	{R: 0x2f, G: 0xa8, B: 0x4f, A: 0xff},
	{R: 0xb8, G: 0x6f, B: 0x0e, A: 0xff},
	{R: 0x7a, G: 0x3f, B: 0xb0, A: 0xff},
}

// Renderer draws monthly time-series charts of record data and writes them as
// PNG files under its output directory.
type Renderer struct {
	log       *logger.Logger
	outputDir string
	face      font.Face
}

func NewRenderer(baseLog *logger.Logger) (*Renderer, error) {
	outputDir := envutil.String("GRAPH_OUTPUT_DIR", "graphs")
	return NewRendererWithDir(outputDir, baseLog)
}

func NewRendererWithDir(outputDir string, baseLog *logger.Logger) (*Renderer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure graph output dir: %w", err)
	}
	face, err := loadFace()
	if err != nil {
		return nil, err
	}
	return &Renderer{
		log:       baseLog.With("component", "GraphRenderer"),
		outputDir: outputDir,
		face:      face,
	}, nil
}

// loadFace prefers a truetype font pointed at by GRAPH_FONT and falls back to
// the built-in bitmap face, which keeps rendering working with no assets.
func loadFace() (font.Face, error) {
	path := envutil.String("GRAPH_FONT", "")
	if path == "" {
		return basicfont.Face7x13, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph font: %w", err)
	}
	parsed, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse graph font: %w", err)
	}
	return truetype.NewFace(parsed, &truetype.Options{Size: 14}), nil
}

// RenderMonth draws one chart for the given month: one line per metric,
// multiple records on the same day averaged, missing days left as gaps.
// Returns the path of the written PNG.
func (r *Renderer) RenderMonth(user *domain.User, records []*domain.Record, month Month) (string, error) {
	days := month.Days()
	metricNames := make([]string, len(user.Metrics))
	for i, m := range user.Metrics {
		metricNames[i] = m.Name
	}
	series := DailyAverages(records, metricNames, month)

	dc := gg.NewContext(canvasWidth, canvasHeight)
	dc.SetFontFace(r.face)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	lo, hi := valueBounds(series)

	r.drawFrame(dc, month, days, lo, hi)
	for i, name := range metricNames {
		c := palette[i%len(palette)]
		r.drawSeries(dc, series[name], days, lo, hi, c)
		r.drawLegendEntry(dc, name, i, c)
	}

	path := filepath.Join(r.outputDir, fmt.Sprintf("records_%04d-%02d.png", month.Year, month.Month))
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("save graph: %w", err)
	}
	r.log.Info("rendered graph", "path", path, "records", len(records))
	return path, nil
}

func (r *Renderer) drawFrame(dc *gg.Context, month Month, days int, lo, hi float64) {
	plotW := float64(canvasWidth - marginLeft - marginRight)
	plotH := float64(canvasHeight - marginTop - marginBottom)

	dc.SetColor(color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff})
	dc.DrawStringAnchored(
		fmt.Sprintf("Daily averages %04d-%02d", month.Year, month.Month),
		canvasWidth/2, marginTop/2, 0.5, 0.5,
	)

	// axes
	dc.SetLineWidth(1)
	dc.DrawLine(marginLeft, marginTop, marginLeft, marginTop+plotH)
	dc.DrawLine(marginLeft, marginTop+plotH, marginLeft+plotW, marginTop+plotH)
	dc.Stroke()

	// x ticks every few days
	step := 1
	if days > 15 {
		step = 2
	}
	for day := 1; day <= days; day += step {
		x := xFor(day, days)
		dc.DrawStringAnchored(fmt.Sprintf("%d", day), x, marginTop+plotH+18, 0.5, 0.5)
	}

	// y ticks
	for i := 0; i <= 4; i++ {
		v := lo + (hi-lo)*float64(i)/4
		y := yFor(v, lo, hi)
		dc.DrawStringAnchored(fmt.Sprintf("%.1f", v), marginLeft-10, y, 1, 0.5)
		dc.SetColor(color.NRGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff})
		dc.DrawLine(marginLeft, y, marginLeft+plotW, y)
		dc.Stroke()
		dc.SetColor(color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff})
	}
}

func (r *Renderer) drawSeries(dc *gg.Context, values []*float64, days int, lo, hi float64, c color.NRGBA) {
	dc.SetColor(c)
	dc.SetLineWidth(2)
	for day := 1; day < days; day++ {
		a, b := values[day-1], values[day]
		if a == nil || b == nil {
			continue
		}
		dc.DrawLine(xFor(day, days), yFor(*a, lo, hi), xFor(day+1, days), yFor(*b, lo, hi))
		dc.Stroke()
	}
	for day := 1; day <= days; day++ {
		if v := values[day-1]; v != nil {
			dc.DrawCircle(xFor(day, days), yFor(*v, lo, hi), 3)
			dc.Fill()
		}
	}
}

func (r *Renderer) drawLegendEntry(dc *gg.Context, name string, index int, c color.NRGBA) {
	x := float64(marginLeft + index*160)
	y := float64(canvasHeight - 25)
	dc.SetColor(c)
	dc.DrawRectangle(x, y-6, 12, 12)
	dc.Fill()
	dc.SetColor(color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff})
	dc.DrawStringAnchored(name, x+20, y, 0, 0.5)
}

func xFor(day, days int) float64 {
	plotW := float64(canvasWidth - marginLeft - marginRight)
	if days <= 1 {
		return marginLeft + plotW/2
	}
	return marginLeft + plotW*float64(day-1)/float64(days-1)
}

func yFor(v, lo, hi float64) float64 {
	plotH := float64(canvasHeight - marginTop - marginBottom)
	if hi == lo {
		return marginTop + plotH/2
	}
	return marginTop + plotH*(1-(v-lo)/(hi-lo))
}

func valueBounds(series map[string][]*float64) (float64, float64) {
	lo, hi := 0.0, 1.0
	first := true
	for _, values := range series {
		for _, v := range values {
			if v == nil {
				continue
			}
			if first {
				lo, hi = *v, *v
				first = false
				continue
			}
			if *v < lo {
				lo = *v
			}
			if *v > hi {
				hi = *v
			}
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

// DailyAverages buckets records by UTC calendar day and averages each
// metric's values per day. The result maps metric name to a slice with one
// entry per day of the month, nil where no record touched that day.
func DailyAverages(records []*domain.Record, metricNames []string, month Month) map[string][]*float64 {
	days := month.Days()
	sums := make(map[string][]float64, len(metricNames))
	counts := make(map[string][]int, len(metricNames))
	for _, name := range metricNames {
		sums[name] = make([]float64, days)
		counts[name] = make([]int, days)
	}

	for _, rec := range records {
		ts := rec.Timestamp.UTC()
		if int(ts.Month()) != month.Month || ts.Year() != month.Year {
			continue
		}
		day := ts.Day()
		for _, name := range metricNames {
			if v, ok := rec.ValueOf(name); ok {
				sums[name][day-1] += float64(v)
				counts[name][day-1]++
			}
		}
	}

	out := make(map[string][]*float64, len(metricNames))
	for _, name := range metricNames {
		values := make([]*float64, days)
		for i := 0; i < days; i++ {
			if counts[name][i] > 0 {
				avg := sums[name][i] / float64(counts[name][i])
				values[i] = &avg
			}
		}
		out[name] = values
	}
	return out
}
