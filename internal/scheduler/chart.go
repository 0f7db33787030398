package scheduler

import (
	"bytes"
	"fmt"

	"github.com/triskcraft/custodian/internal/database/types"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	titleFontSize   = 12.0
	axisFontSize    = 10.0
	gridLineWidth   = 1.0
	seriesLineWidth = 3.0
	seriesDotWidth  = 4.0
	chartPadding    = 30
)

// ErrNotEnoughSamples is returned when a trend needs at least two samples.
var ErrNotEnoughSamples = fmt.Errorf("need at least two samples to render a trend")

// RenderRoleTrend draws the active/inactive population trend for one
// tracked role from its snapshot time series, as a PNG.
func RenderRoleTrend(title string, stats []*types.RoleStatistic) (*bytes.Buffer, error) {
	if len(stats) < 2 {
		return nil, ErrNotEnoughSamples
	}

	xValues := make([]float64, len(stats))
	activeSeries := make([]float64, len(stats))
	inactiveSeries := make([]float64, len(stats))
	ticks := make([]chart.Tick, len(stats))
	gridLines := make([]chart.GridLine, len(stats))

	for i, stat := range stats {
		xValues[i] = float64(i)
		activeSeries[i] = float64(stat.ActiveCount)
		inactiveSeries[i] = float64(stat.InactiveCount)
		gridLines[i] = chart.GridLine{Value: float64(i)}
		ticks[i] = chart.Tick{
			Value: float64(i),
			Label: stat.CapturedAt.Format("Jan 2"),
		}
	}

	graph := &chart.Chart{
		Title:      title,
		TitleStyle: chart.Style{FontSize: titleFontSize},
		Background: chart.Style{
			Padding: chart.Box{
				Top:    chartPadding,
				Left:   chartPadding,
				Right:  chartPadding,
				Bottom: chartPadding,
			},
		},
		XAxis: chart.XAxis{
			Style: chart.Style{FontSize: axisFontSize},
			GridMajorStyle: chart.Style{
				StrokeColor: chart.ColorAlternateGray,
				StrokeWidth: gridLineWidth,
			},
			GridLines:    gridLines,
			Ticks:        ticks,
			TickPosition: chart.TickPositionUnderTick,
		},
		YAxis: chart.YAxis{
			Style: chart.Style{FontSize: axisFontSize},
			GridMajorStyle: chart.Style{
				StrokeColor: chart.ColorAlternateGray,
				StrokeWidth: gridLineWidth,
			},
			ValueFormatter: func(v any) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			newTrendSeries("Active", xValues, activeSeries, chart.ColorGreen),
			newTrendSeries("Inactive", xValues, inactiveSeries, chart.ColorOrange),
		},
	}

	graph.Elements = []chart.Renderable{
		chart.Legend(graph),
	}

	buf := new(bytes.Buffer)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("failed to render trend chart: %w", err)
	}

	return buf, nil
}

func newTrendSeries(name string, xValues, yValues []float64, color drawing.Color) chart.Series {
	return chart.ContinuousSeries{
		Name:    name,
		XValues: xValues,
		YValues: yValues,
		Style: chart.Style{
			StrokeColor: color,
			StrokeWidth: seriesLineWidth,
			DotColor:    color,
			DotWidth:    seriesDotWidth,
		},
	}
}
