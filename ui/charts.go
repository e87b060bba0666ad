package ui

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"airhealth/domain/analysis"
	"airhealth/domain/core"
	"airhealth/internal/report"
)

func (s *Server) handleCharts(c *gin.Context) {
	year, ok := s.yearParam(c)
	if !ok {
		return
	}
	bundle, ok := s.loadBundle(c, year)
	if !ok {
		return
	}

	page := components.NewPage()
	for _, fc := range bundle.Forecasts {
		page.AddCharts(forecastChart(fc))
	}
	if len(bundle.LagAnalysis) > 0 {
		page.AddCharts(lagChart(bundle.LagAnalysis))
	}
	if len(bundle.ThresholdAnalysis.Thresholds) > 0 {
		page.AddCharts(thresholdChart(bundle.ThresholdAnalysis))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		s.logger.Error("Failed to render charts for %d: %v", year, err)
		c.String(http.StatusInternalServerError, "failed to render charts")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// forecastChart plots one target's projection with its interval bounds.
func forecastChart(fc analysis.ForecastResult) *charts.Line {
	x := make([]string, len(fc.Points))
	value := make([]opts.LineData, len(fc.Points))
	lower := make([]opts.LineData, len(fc.Points))
	upper := make([]opts.LineData, len(fc.Points))
	for i, p := range fc.Points {
		x[i] = core.YearWeek{Year: p.Year, Week: p.Week}.String()
		value[i] = opts.LineData{Value: p.Value}
		lower[i] = opts.LineData{Value: p.CILower}
		upper[i] = opts.LineData{Value: p.CIUpper}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s forecast", fc.Target),
			Subtitle: modelSubtitle(fc.Model),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(x).
		AddSeries("forecast", value,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)})).
		AddSeries("lower 95%", lower,
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"})).
		AddSeries("upper 95%", upper,
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))
	return line
}

func modelSubtitle(m analysis.ModelDescriptor) string {
	if m.FailureReason != "" {
		return fmt.Sprintf("%s (fallback: %s)", m.Family, m.FailureReason)
	}
	return m.Description
}

// lagChart plots correlation strength against case-count shift per group.
func lagChart(results []analysis.LagResult) *charts.Line {
	x := make([]string, len(results[0].Correlations))
	for i, p := range results[0].Correlations {
		x[i] = strconv.Itoa(p.Lag)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Lag scan",
			Subtitle: "Pearson r with cases shifted back by N weeks",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(x)
	for _, lr := range results {
		data := make([]opts.LineData, len(lr.Correlations))
		for i, p := range lr.Correlations {
			data[i] = opts.LineData{Value: p.R}
		}
		line.AddSeries(lr.Disease, data)
	}
	return line
}

// thresholdChart plots the reference average weekly cases per PM2.5 band.
func thresholdChart(table analysis.ThresholdTable) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Cases by PM2.5 band",
			Subtitle: "Reference average weekly cases per exposure band",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(table.Thresholds)
	for _, cat := range report.CategoryOrder(table.AvgCases) {
		counts := table.AvgCases[cat]
		data := make([]opts.BarData, len(counts))
		for i, v := range counts {
			data[i] = opts.BarData{Value: v}
		}
		bar.AddSeries(cat, data)
	}
	return bar
}
