package app

import (
	"airhealth/domain/analysis"
)

// Thai ambient PM2.5 bands with representative average weekly caseloads
// per band, served verbatim with every bundle.
var thresholdBands = []string{
	"Good (0-25)",
	"Moderate (26-37)",
	"Unhealthy Sensitive (38-50)",
	"Unhealthy (51-90)",
	"Very Unhealthy (>90)",
}

var thresholdAvgCases = map[string][]float64{
	"Total":          {100, 150, 200, 350, 500},
	"Respiratory":    {40, 60, 90, 150, 220},
	"Cardiovascular": {25, 35, 45, 80, 120},
	"Skin":           {20, 30, 40, 70, 100},
	"Eye":            {15, 25, 25, 50, 60},
}

// ReferenceThresholds returns a fresh copy of the static threshold table.
func ReferenceThresholds() analysis.ThresholdTable {
	table := analysis.ThresholdTable{
		Thresholds: append([]string(nil), thresholdBands...),
		AvgCases:   make(map[string][]float64, len(thresholdAvgCases)),
	}
	for category, counts := range thresholdAvgCases {
		table.AvgCases[category] = append([]float64(nil), counts...)
	}
	return table
}
