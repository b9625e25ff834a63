package model

import (
	"math"
	"time"
)

// ExportArtifact is the downloadable snapshot of the analysis logs
type ExportArtifact struct {
	Metadata        ExportMetadata `json:"metadata"`
	Summary         ExportSummary  `json:"summary"`
	DetectedGaps    []HistoryEntry `json:"detectedGaps"`
	AnalysisHistory []HistoryEntry `json:"analysisHistory"`
}

// ExportMetadata stamps when and by which version an export was produced
type ExportMetadata struct {
	GeneratedAt      time.Time `json:"generatedAt"`
	ExtensionVersion string    `json:"extensionVersion"`
}

// ExportSummary aggregates the exported logs
type ExportSummary struct {
	TotalGaps     int `json:"totalGaps"`
	TotalGapItems int `json:"totalGapItems"`
	PagesAnalyzed int `json:"pagesAnalyzed"`
	AverageScore  int `json:"averageScore"`
}

// NewExportArtifact summarizes state into an export document
func NewExportArtifact(state PersistedState, version string, now time.Time) ExportArtifact {
	items := 0
	for _, e := range state.DetectedGaps {
		items += len(e.Gaps)
	}

	sum, scored := 0, 0
	for _, e := range state.AnalysisHistory {
		if e.Score.Valid() {
			sum += int(e.Score)
			scored++
		}
	}
	avg := 0
	if scored > 0 {
		avg = int(math.Round(float64(sum) / float64(scored)))
	}

	return ExportArtifact{
		Metadata: ExportMetadata{GeneratedAt: now, ExtensionVersion: version},
		Summary: ExportSummary{
			TotalGaps:     len(state.DetectedGaps),
			TotalGapItems: items,
			PagesAnalyzed: len(state.AnalysisHistory),
			AverageScore:  avg,
		},
		DetectedGaps:    state.DetectedGaps,
		AnalysisHistory: state.AnalysisHistory,
	}
}
