package model

import "time"

// CurrentVersion is the schema version of PersistedState
const CurrentVersion = 1

// Bounded log capacities
const (
	MaxDetectedGaps = 3
	MaxErrorLogs    = 100
)

// Top-level keys of the persisted document
const (
	KeyVersion         = "version"
	KeyRepository      = "repository"
	KeyAnalysisHistory = "analysisHistory"
	KeyDetectedGaps    = "detectedGaps"
	KeyErrorLogs       = "errorLogs"
	KeySettings        = "settings"
)

// StateKeys lists every top-level key in document order
var StateKeys = []string{
	KeyVersion,
	KeyRepository,
	KeyAnalysisHistory,
	KeyDetectedGaps,
	KeyErrorLogs,
	KeySettings,
}

// HistoryEntry records one saved analysis
type HistoryEntry struct {
	Page           string    `json:"page"`
	URL            string    `json:"url"`
	Timestamp      time.Time `json:"timestamp"`
	Gaps           []Gap     `json:"gaps"`
	Score          Score     `json:"score"`
	OfflineCreated bool      `json:"offlineCreated"`
}

// RepositoryItem is a free-form gap report logged by a collaborator
type RepositoryItem map[string]any

// ErrorLog is one entry of the bounded error log
type ErrorLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Context   string    `json:"context"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
}

// Settings are the user-tunable parts of the persisted state
type Settings struct {
	AnalysisThreshold int        `json:"analysisThreshold" yaml:"analysis_threshold" mapstructure:"analysis_threshold"`
	MaxHistoryItems   int        `json:"maxHistoryItems" yaml:"max_history_items" mapstructure:"max_history_items"`
	OfflineMode       bool       `json:"offlineMode" yaml:"offline_mode" mapstructure:"offline_mode"`
	LastSync          *time.Time `json:"lastSync" yaml:"-" mapstructure:"-"`
}

// DefaultSettings returns the settings written on first run
func DefaultSettings() Settings {
	return Settings{
		AnalysisThreshold: 50,
		MaxHistoryItems:   100,
		OfflineMode:       false,
	}
}

// PersistedState is the single shared document owned by the store
type PersistedState struct {
	Version         int              `json:"version"`
	Repository      []RepositoryItem `json:"repository"`
	AnalysisHistory []HistoryEntry   `json:"analysisHistory"`
	DetectedGaps    []HistoryEntry   `json:"detectedGaps"`
	ErrorLogs       []ErrorLog       `json:"errorLogs"`
	Settings        Settings         `json:"settings"`
}

// DefaultState returns a fresh document at the current version
func DefaultState() PersistedState {
	return PersistedState{
		Version:         CurrentVersion,
		Repository:      []RepositoryItem{},
		AnalysisHistory: []HistoryEntry{},
		DetectedGaps:    []HistoryEntry{},
		ErrorLogs:       []ErrorLog{},
		Settings:        DefaultSettings(),
	}
}
