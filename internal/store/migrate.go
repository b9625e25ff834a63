package store

import (
	"encoding/json"
	"fmt"

	"github.com/ppiankov/wikigap/internal/model"
)

// migration upgrades a document from version N to N+1
type migration func(Doc) error

// migrations[i] upgrades version i to i+1
var migrations = []migration{
	migrateV0toV1,
}

// migrateV0toV1 keeps the three logs of an unversioned document and resets
// everything else to defaults
func migrateV0toV1(doc Doc) error {
	kept := map[string]bool{
		model.KeyRepository:      true,
		model.KeyAnalysisHistory: true,
		model.KeyDetectedGaps:    true,
	}
	defaults, err := encodeState(model.DefaultState())
	if err != nil {
		return err
	}

	for k := range doc {
		if !kept[k] {
			delete(doc, k)
		}
	}
	for k := range kept {
		if raw, ok := doc[k]; ok && !isJSONArray(raw) {
			delete(doc, k)
		}
	}
	for k, v := range defaults {
		if _, ok := doc[k]; !ok {
			doc[k] = v
		}
	}
	doc[model.KeyVersion] = json.RawMessage("1")
	return nil
}

// docVersion reads the version key; absent means 0
func docVersion(doc Doc) (int, error) {
	raw, ok := doc[model.KeyVersion]
	if !ok {
		return 0, nil
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("decode version: %w", err)
	}
	return v, nil
}

func isJSONArray(raw json.RawMessage) bool {
	var items []json.RawMessage
	return json.Unmarshal(raw, &items) == nil && items != nil
}

// decodeState reads a document, substituting defaults for absent keys
func decodeState(doc Doc) (model.PersistedState, error) {
	st := model.DefaultState()
	fields := map[string]any{
		model.KeyVersion:         &st.Version,
		model.KeyRepository:      &st.Repository,
		model.KeyAnalysisHistory: &st.AnalysisHistory,
		model.KeyDetectedGaps:    &st.DetectedGaps,
		model.KeyErrorLogs:       &st.ErrorLogs,
		model.KeySettings:        &st.Settings,
	}
	if _, ok := doc[model.KeyVersion]; !ok {
		st.Version = 0
	}
	for key, dst := range fields {
		raw, ok := doc[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return st, fmt.Errorf("decode %s: %w", key, err)
		}
	}

	if st.Repository == nil {
		st.Repository = []model.RepositoryItem{}
	}
	if st.AnalysisHistory == nil {
		st.AnalysisHistory = []model.HistoryEntry{}
	}
	if st.DetectedGaps == nil {
		st.DetectedGaps = []model.HistoryEntry{}
	}
	if st.ErrorLogs == nil {
		st.ErrorLogs = []model.ErrorLog{}
	}
	return st, nil
}

// encodeState renders every top-level key of st
func encodeState(st model.PersistedState) (Doc, error) {
	values := map[string]any{
		model.KeyVersion:         st.Version,
		model.KeyRepository:      st.Repository,
		model.KeyAnalysisHistory: st.AnalysisHistory,
		model.KeyDetectedGaps:    st.DetectedGaps,
		model.KeyErrorLogs:       st.ErrorLogs,
		model.KeySettings:        st.Settings,
	}
	doc := make(Doc, len(values))
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		doc[k] = raw
	}
	return doc, nil
}
