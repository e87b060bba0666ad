package report

import (
	"fmt"
	"sort"
	"strings"

	"airhealth/domain/analysis"
	"airhealth/domain/core"
	"airhealth/domain/series"
)

// Builder renders an analysis bundle as a Markdown report.
type Builder struct{}

// NewBuilder creates a report builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build renders the complete report for one bundle.
func (b *Builder) Build(bundle *analysis.AnalysisBundle) string {
	var md strings.Builder
	b.writeHeader(&md, bundle)
	b.writeCorrelations(&md, bundle)
	b.writeLagAnalysis(&md, bundle)
	b.writeForecasts(&md, bundle)
	b.writeThresholds(&md, bundle)
	b.writeDiagnostics(&md, bundle)
	return md.String()
}

func (b *Builder) writeHeader(md *strings.Builder, bundle *analysis.AnalysisBundle) {
	md.WriteString(fmt.Sprintf("# Air Quality and Health Analysis: %d\n\n", bundle.Year))
	md.WriteString(fmt.Sprintf("Weekly average PM2.5 exposure correlated against weekly patient visits, computed %s",
		bundle.ComputedAt))
	if bundle.Cached {
		md.WriteString(" (served from cache)")
	}
	md.WriteString(".\n\n")
}

func (b *Builder) writeCorrelations(md *strings.Builder, bundle *analysis.AnalysisBundle) {
	md.WriteString("## Correlation by disease group\n\n")
	if len(bundle.Correlations) == 0 {
		md.WriteString("Not enough overlapping weeks of data to estimate correlations.\n\n")
		return
	}

	md.WriteString("| Group | r | 95% CI | p-value | r² | n | Strength |\n")
	md.WriteString("|---|---|---|---|---|---|---|\n")
	for _, c := range bundle.Correlations {
		md.WriteString(fmt.Sprintf("| %s | %.4f | [%.4f, %.4f] | %.6f | %.4f | %d | %s |\n",
			c.Disease, c.R, c.CILower, c.CIUpper, c.PValue, c.RSquared, c.N, strengthLabel(c.R)))
	}
	md.WriteString("\n")
}

func (b *Builder) writeLagAnalysis(md *strings.Builder, bundle *analysis.AnalysisBundle) {
	md.WriteString("## Lag analysis\n\n")
	if len(bundle.LagAnalysis) == 0 {
		md.WriteString("No group had enough paired weeks for a lag scan.\n\n")
		return
	}

	md.WriteString("Correlation when case counts are shifted back by the given number of weeks.\n\n")

	md.WriteString("| Group |")
	for _, p := range bundle.LagAnalysis[0].Correlations {
		md.WriteString(fmt.Sprintf(" lag %d |", p.Lag))
	}
	md.WriteString(" Optimal (weeks) |\n|---|")
	for range bundle.LagAnalysis[0].Correlations {
		md.WriteString("---|")
	}
	md.WriteString("---|\n")

	for _, lr := range bundle.LagAnalysis {
		md.WriteString(fmt.Sprintf("| %s |", lr.Disease))
		for _, p := range lr.Correlations {
			md.WriteString(fmt.Sprintf(" %.4f |", p.R))
		}
		md.WriteString(fmt.Sprintf(" %d (r=%.4f) |\n", lr.OptimalLag, lr.OptimalR))
	}
	md.WriteString("\n")
}

func (b *Builder) writeForecasts(md *strings.Builder, bundle *analysis.AnalysisBundle) {
	if len(bundle.Forecasts) == 0 {
		return
	}

	md.WriteString(fmt.Sprintf("## %d-week forecasts\n\n", len(bundle.Forecasts[0].Points)))

	for _, fc := range bundle.Forecasts {
		md.WriteString(fmt.Sprintf("### %s\n\n", fc.Target))
		b.writeModelLine(md, fc.Model)

		wholeCounts := fc.Target != analysis.ExposureTarget
		md.WriteString("| Week | Forecast | 95% interval |\n|---|---|---|\n")
		for _, p := range fc.Points {
			week := core.YearWeek{Year: p.Year, Week: p.Week}
			if wholeCounts {
				md.WriteString(fmt.Sprintf("| %s | %.0f | %.0f to %.0f |\n",
					week, p.Value, p.CILower, p.CIUpper))
			} else {
				md.WriteString(fmt.Sprintf("| %s | %.2f | %.2f to %.2f |\n",
					week, p.Value, p.CILower, p.CIUpper))
			}
		}
		md.WriteString("\n")
	}
}

func (b *Builder) writeModelLine(md *strings.Builder, m analysis.ModelDescriptor) {
	if m.FailureReason != "" {
		md.WriteString(fmt.Sprintf("Primary model unavailable (%s); values follow the deterministic seasonal baseline.\n\n",
			m.FailureReason))
		return
	}

	md.WriteString(m.Description)
	if m.AIC != nil && m.BIC != nil {
		md.WriteString(fmt.Sprintf(" AIC %.1f, BIC %.1f.", *m.AIC, *m.BIC))
	}
	if len(m.Smoothing) > 0 {
		keys := make([]string, 0, len(m.Smoothing))
		for k := range m.Smoothing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%.4f", k, m.Smoothing[k]))
		}
		md.WriteString(fmt.Sprintf(" Smoothing: %s.", strings.Join(parts, ", ")))
	}
	md.WriteString("\n\n")
}

func (b *Builder) writeThresholds(md *strings.Builder, bundle *analysis.AnalysisBundle) {
	table := bundle.ThresholdAnalysis
	if len(table.Thresholds) == 0 {
		return
	}

	md.WriteString("## Reference: average weekly cases by PM2.5 band\n\n")

	categories := CategoryOrder(table.AvgCases)
	md.WriteString("| Band |")
	for _, cat := range categories {
		md.WriteString(fmt.Sprintf(" %s |", cat))
	}
	md.WriteString("\n|---|")
	for range categories {
		md.WriteString("---|")
	}
	md.WriteString("\n")

	for i, band := range table.Thresholds {
		md.WriteString(fmt.Sprintf("| %s |", band))
		for _, cat := range categories {
			counts := table.AvgCases[cat]
			if i < len(counts) {
				md.WriteString(fmt.Sprintf(" %.0f |", counts[i]))
			} else {
				md.WriteString(" |")
			}
		}
		md.WriteString("\n")
	}
	md.WriteString("\n")
}

func (b *Builder) writeDiagnostics(md *strings.Builder, bundle *analysis.AnalysisBundle) {
	d := bundle.Diagnostics
	if d.DroppedReadings == 0 && d.SkippedProvinces == 0 && d.IgnoredCategories == 0 {
		return
	}

	var parts []string
	if d.DroppedReadings > 0 {
		parts = append(parts, fmt.Sprintf("malformed readings dropped %d", d.DroppedReadings))
	}
	if d.SkippedProvinces > 0 {
		parts = append(parts, fmt.Sprintf("provinces without year data skipped %d", d.SkippedProvinces))
	}
	if d.IgnoredCategories > 0 {
		parts = append(parts, fmt.Sprintf("undeclared disease categories ignored %d", d.IgnoredCategories))
	}
	md.WriteString(fmt.Sprintf("_Aggregation diagnostics: %s._\n", strings.Join(parts, ", ")))
}

// CategoryOrder returns display order for threshold categories: Total
// first, then the rest alphabetically.
func CategoryOrder(avgCases map[string][]float64) []string {
	var rest []string
	for cat := range avgCases {
		if cat != series.TotalCategory {
			rest = append(rest, cat)
		}
	}
	sort.Strings(rest)

	out := make([]string, 0, len(avgCases))
	if _, ok := avgCases[series.TotalCategory]; ok {
		out = append(out, series.TotalCategory)
	}
	return append(out, rest...)
}

// strengthLabel buckets |r| into the conventional descriptive bands.
func strengthLabel(r float64) string {
	abs := r
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 0.7:
		return "strong"
	case abs >= 0.5:
		return "moderate"
	case abs >= 0.3:
		return "weak"
	default:
		return "negligible"
	}
}
