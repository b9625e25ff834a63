package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/wikigap/internal/model"
	"github.com/ppiankov/wikigap/internal/store"
)

// Action names
const (
	ActionLogGap         = "log_gap"
	ActionGetRepository  = "get_repository"
	ActionToggleOffline  = "toggle_offline_mode"
	ActionSyncData       = "sync_data"
	ActionGetErrorLogs   = "get_error_logs"
	ActionClearErrorLogs = "clear_error_logs"
	ActionLogError       = "log_error"
	ActionSaveAnalysis   = "save_analysis"
	ActionGetHistory     = "get_history"
	ActionGetSettings    = "get_settings"
	ActionUpdateSettings = "update_settings"
	ActionExportData     = "export_data"
)

// SaveAnalysisPayload is the data of a save_analysis request
type SaveAnalysisPayload struct {
	Page   string               `json:"page"`
	URL    string               `json:"url"`
	Result model.AnalysisResult `json:"result"`
}

// LogErrorPayload is the data of a log_error request
type LogErrorPayload struct {
	Context  string `json:"context"`
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

// SettingsPatch is the data of an update_settings request
type SettingsPatch struct {
	AnalysisThreshold *int `json:"analysisThreshold,omitempty"`
	MaxHistoryItems   *int `json:"maxHistoryItems,omitempty"`
}

// HistoryData is the payload of get_history
type HistoryData struct {
	AnalysisHistory []model.HistoryEntry `json:"analysisHistory"`
	DetectedGaps    []model.HistoryEntry `json:"detectedGaps"`
}

func builtinHandlers(m *store.Manager) map[string]Handler {
	return map[string]Handler{
		ActionLogGap: func(ctx context.Context, req Request) (Response, error) {
			data := map[string]any{}
			if err := decode(req.Data, &data); err != nil {
				return Response{}, err
			}
			if _, err := m.LogRepositoryItem(ctx, data, req.Source); err != nil {
				return Response{}, err
			}
			return Response{Success: true}, nil
		},

		ActionGetRepository: func(ctx context.Context, req Request) (Response, error) {
			items, offline, err := m.Repository(ctx)
			if err != nil {
				return Response{}, err
			}
			return Response{Success: true, Data: items, OfflineMode: &offline}, nil
		},

		ActionToggleOffline: func(ctx context.Context, req Request) (Response, error) {
			offline, err := m.ToggleOffline(ctx)
			if err != nil {
				return Response{}, err
			}
			return Response{Success: true, OfflineMode: &offline}, nil
		},

		ActionSyncData: func(ctx context.Context, req Request) (Response, error) {
			at, err := m.Sync(ctx)
			if err != nil {
				return Response{}, err
			}
			return Response{Success: true, LastSync: &at}, nil
		},

		ActionGetErrorLogs: func(ctx context.Context, req Request) (Response, error) {
			logs, err := m.ErrorLogs(ctx)
			if err != nil {
				return Response{}, err
			}
			return Response{Success: true, Data: logs}, nil
		},

		ActionClearErrorLogs: func(ctx context.Context, req Request) (Response, error) {
			if err := m.ClearErrors(ctx); err != nil {
				return Response{}, err
			}
			return Response{Success: true}, nil
		},

		ActionLogError: func(ctx context.Context, req Request) (Response, error) {
			var p LogErrorPayload
			if err := decode(req.Data, &p); err != nil {
				return Response{}, err
			}
			entry, err := m.AppendError(ctx, p.Context, p.Message, p.Severity)
			if err != nil {
				return Response{}, err
			}
			return Response{Success: true, Data: entry}, nil
		},

		ActionSaveAnalysis: func(ctx context.Context, req Request) (Response, error) {
			var p SaveAnalysisPayload
			if err := decode(req.Data, &p); err != nil {
				return Response{}, err
			}
			if p.URL == "" {
				p.URL = req.Source
			}
			entry, err := m.SaveAnalysis(ctx, p.Page, p.URL, p.Result)
			if err != nil {
				return Response{}, err
			}
			return Response{Success: true, Data: entry}, nil
		},

		ActionGetHistory: func(ctx context.Context, req Request) (Response, error) {
			history, gaps, err := m.History(ctx)
			if err != nil {
				return Response{}, err
			}
			return Response{Success: true, Data: HistoryData{AnalysisHistory: history, DetectedGaps: gaps}}, nil
		},

		ActionGetSettings: func(ctx context.Context, req Request) (Response, error) {
			s, err := m.Settings(ctx)
			if err != nil {
				return Response{}, err
			}
			return Response{Success: true, Data: s, OfflineMode: &s.OfflineMode}, nil
		},

		ActionUpdateSettings: func(ctx context.Context, req Request) (Response, error) {
			var p SettingsPatch
			if err := decode(req.Data, &p); err != nil {
				return Response{}, err
			}
			s, err := m.UpdateSettings(ctx, func(s *model.Settings) {
				if p.AnalysisThreshold != nil {
					s.AnalysisThreshold = *p.AnalysisThreshold
				}
				if p.MaxHistoryItems != nil {
					s.MaxHistoryItems = *p.MaxHistoryItems
				}
			})
			if err != nil {
				return Response{}, err
			}
			return Response{Success: true, Data: s}, nil
		},

		ActionExportData: func(ctx context.Context, req Request) (Response, error) {
			art, err := m.Export(ctx, model.Version)
			if err != nil {
				return Response{}, err
			}
			return Response{Success: true, Data: art}, nil
		},
	}
}

// decode unmarshals an action payload; an absent payload leaves v untouched
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
