package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/wikigap/internal/model"
)

// ErrOfflineSync is returned by Sync while offline mode is on
var ErrOfflineSync = errors.New("Sync not available in offline mode")

// Default severity of logged errors
const SeverityError = "error"

// Manager owns the persisted document and is its only writer
type Manager struct {
	mu     sync.Mutex
	kv     KV
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewManager wraps kv; a nil logger is replaced by a no-op logger
func NewManager(kv KV, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		kv:     kv,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Close releases the underlying KV
func (m *Manager) Close() error {
	return m.kv.Close()
}

// mutate runs fn against the decoded state and writes every key back.
// KV failures surface as *model.StorageError; errors from fn pass through.
func (m *Manager) mutate(ctx context.Context, op string, fn func(*model.PersistedState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var fnErr error
	err := m.kv.Update(ctx, func(doc Doc) error {
		st, err := decodeState(doc)
		if err != nil {
			return err
		}
		if err := fn(&st); err != nil {
			fnErr = err
			return err
		}
		encoded, err := encodeState(st)
		if err != nil {
			return err
		}
		for k, v := range encoded {
			doc[k] = v
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if fnErr != nil && errors.Is(err, fnErr) {
		return fnErr
	}
	return &model.StorageError{Op: op, Err: err}
}

// view decodes a snapshot of the state
func (m *Manager) view(ctx context.Context, op string) (model.PersistedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.kv.Load(ctx)
	if err != nil {
		return model.PersistedState{}, &model.StorageError{Op: op, Err: err}
	}
	st, err := decodeState(doc)
	if err != nil {
		return model.PersistedState{}, &model.StorageError{Op: op, Err: err}
	}
	return st, nil
}

// InitOrMigrate writes defaults into an empty store, or runs every pending
// migration in order. A store already at the current version is left untouched.
func (m *Manager) InitOrMigrate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var from, to int
	err := m.kv.Update(ctx, func(doc Doc) error {
		if len(doc) == 0 {
			defaults, err := encodeState(model.DefaultState())
			if err != nil {
				return err
			}
			for k, v := range defaults {
				doc[k] = v
			}
			from, to = -1, model.CurrentVersion
			return nil
		}

		v, err := docVersion(doc)
		if err != nil {
			return err
		}
		if v >= model.CurrentVersion {
			return errSkip
		}
		from = v
		for ; v < model.CurrentVersion && v < len(migrations); v++ {
			if err := migrations[v](doc); err != nil {
				return fmt.Errorf("migrate v%d: %w", v, err)
			}
		}
		to = v
		return nil
	})
	if errors.Is(err, errSkip) {
		return nil
	}
	if err != nil {
		return &model.StorageError{Op: "migrate", Err: err}
	}

	if from < 0 {
		m.logger.Info("initialized state", zap.Int("version", to))
	} else {
		m.logger.Info("migrated state", zap.Int("from", from), zap.Int("to", to))
	}
	return nil
}

// AppendGap pushes entry onto detectedGaps, keeping the most recent MaxDetectedGaps
func (m *Manager) AppendGap(ctx context.Context, entry model.HistoryEntry) error {
	return m.mutate(ctx, "append gap", func(st *model.PersistedState) error {
		st.DetectedGaps = appendCapped(st.DetectedGaps, entry, model.MaxDetectedGaps)
		return nil
	})
}

// AppendHistory pushes entry onto analysisHistory, keeping settings.maxHistoryItems
func (m *Manager) AppendHistory(ctx context.Context, entry model.HistoryEntry) error {
	return m.mutate(ctx, "append history", func(st *model.PersistedState) error {
		st.AnalysisHistory = appendCapped(st.AnalysisHistory, entry, historyCap(st.Settings))
		return nil
	})
}

// AppendError records an error most-recent-first, keeping MaxErrorLogs entries.
// An empty severity is stored as "error".
func (m *Manager) AppendError(ctx context.Context, label, message, severity string) (model.ErrorLog, error) {
	if severity == "" {
		severity = SeverityError
	}
	entry := model.ErrorLog{
		ID:        m.newID(),
		Timestamp: m.now().UTC(),
		Context:   label,
		Message:   message,
		Severity:  severity,
	}
	err := m.mutate(ctx, "append error", func(st *model.PersistedState) error {
		logs := make([]model.ErrorLog, 0, len(st.ErrorLogs)+1)
		logs = append(logs, entry)
		logs = append(logs, st.ErrorLogs...)
		if len(logs) > model.MaxErrorLogs {
			logs = logs[:model.MaxErrorLogs]
		}
		st.ErrorLogs = logs
		return nil
	})
	return entry, err
}

// ToggleOffline flips offline mode and stamps lastSync when going back online
func (m *Manager) ToggleOffline(ctx context.Context) (bool, error) {
	var offline bool
	err := m.mutate(ctx, "toggle offline", func(st *model.PersistedState) error {
		wasOffline := st.Settings.OfflineMode
		st.Settings.OfflineMode = !wasOffline
		if wasOffline {
			now := m.now().UTC()
			st.Settings.LastSync = &now
		}
		offline = st.Settings.OfflineMode
		return nil
	})
	return offline, err
}

// ClearErrors empties the error log
func (m *Manager) ClearErrors(ctx context.Context) error {
	return m.mutate(ctx, "clear errors", func(st *model.PersistedState) error {
		st.ErrorLogs = []model.ErrorLog{}
		return nil
	})
}

// SaveAnalysis validates result and records it in the history, and in
// detectedGaps when it has gaps. Online saves stamp lastSync. An invalid
// result is logged to the error log and returned without touching either log.
func (m *Manager) SaveAnalysis(ctx context.Context, page, url string, result model.AnalysisResult) (model.HistoryEntry, error) {
	if err := validateSave(page, result); err != nil {
		m.logger.Warn("rejected analysis", zap.String("page", page), zap.Error(err))
		if _, logErr := m.AppendError(ctx, "save_analysis", err.Error(), SeverityError); logErr != nil {
			m.logger.Error("failed to log validation error", zap.Error(logErr))
		}
		return model.HistoryEntry{}, err
	}

	var entry model.HistoryEntry
	err := m.mutate(ctx, "save analysis", func(st *model.PersistedState) error {
		entry = model.HistoryEntry{
			Page:           page,
			URL:            url,
			Timestamp:      m.now().UTC(),
			Gaps:           result.Gaps,
			Score:          result.Score,
			OfflineCreated: st.Settings.OfflineMode,
		}
		if len(result.Gaps) > 0 {
			st.DetectedGaps = appendCapped(st.DetectedGaps, entry, model.MaxDetectedGaps)
		}
		st.AnalysisHistory = appendCapped(st.AnalysisHistory, entry, historyCap(st.Settings))
		if !st.Settings.OfflineMode {
			synced := entry.Timestamp
			st.Settings.LastSync = &synced
		}
		return nil
	})
	return entry, err
}

func validateSave(page string, result model.AnalysisResult) error {
	if page == "" {
		return &model.ValidationError{Field: "page", Msg: "invalid page title"}
	}
	return result.Validate()
}

// LogRepositoryItem stores a collaborator gap report stamped with its source
func (m *Manager) LogRepositoryItem(ctx context.Context, data map[string]any, source string) (model.RepositoryItem, error) {
	var item model.RepositoryItem
	err := m.mutate(ctx, "log gap", func(st *model.PersistedState) error {
		item = make(model.RepositoryItem, len(data)+3)
		for k, v := range data {
			item[k] = v
		}
		item["timestamp"] = m.now().UTC().Format(time.RFC3339Nano)
		item["source"] = source
		item["offlineCreated"] = st.Settings.OfflineMode
		st.Repository = appendCapped(st.Repository, item, historyCap(st.Settings))
		return nil
	})
	return item, err
}

// Repository returns the logged gap reports and the offline flag
func (m *Manager) Repository(ctx context.Context) ([]model.RepositoryItem, bool, error) {
	st, err := m.view(ctx, "get repository")
	if err != nil {
		return nil, false, err
	}
	return st.Repository, st.Settings.OfflineMode, nil
}

// ErrorLogs returns the error log, most recent first
func (m *Manager) ErrorLogs(ctx context.Context) ([]model.ErrorLog, error) {
	st, err := m.view(ctx, "get error logs")
	if err != nil {
		return nil, err
	}
	return st.ErrorLogs, nil
}

// History returns the analysis history and the recent significant gaps
func (m *Manager) History(ctx context.Context) ([]model.HistoryEntry, []model.HistoryEntry, error) {
	st, err := m.view(ctx, "get history")
	if err != nil {
		return nil, nil, err
	}
	return st.AnalysisHistory, st.DetectedGaps, nil
}

// Settings returns the current settings
func (m *Manager) Settings(ctx context.Context) (model.Settings, error) {
	st, err := m.view(ctx, "get settings")
	if err != nil {
		return model.Settings{}, err
	}
	return st.Settings, nil
}

// State returns a snapshot of the whole document
func (m *Manager) State(ctx context.Context) (model.PersistedState, error) {
	return m.view(ctx, "get state")
}

// Sync stamps lastSync; it fails with ErrOfflineSync while offline
func (m *Manager) Sync(ctx context.Context) (time.Time, error) {
	var stamped time.Time
	err := m.mutate(ctx, "sync", func(st *model.PersistedState) error {
		if st.Settings.OfflineMode {
			return ErrOfflineSync
		}
		stamped = m.now().UTC()
		st.Settings.LastSync = &stamped
		return nil
	})
	return stamped, err
}

// UpdateSettings applies fn to the settings, validates the result and
// trims the history to the new cap
func (m *Manager) UpdateSettings(ctx context.Context, fn func(*model.Settings)) (model.Settings, error) {
	var out model.Settings
	err := m.mutate(ctx, "update settings", func(st *model.PersistedState) error {
		next := st.Settings
		fn(&next)
		if next.AnalysisThreshold < 0 || next.AnalysisThreshold > 100 {
			return &model.ValidationError{Field: "analysisThreshold", Msg: "must be between 0 and 100"}
		}
		if next.MaxHistoryItems < 1 {
			return &model.ValidationError{Field: "maxHistoryItems", Msg: "must be at least 1"}
		}
		st.Settings = next
		st.AnalysisHistory = trimFront(st.AnalysisHistory, next.MaxHistoryItems)
		st.Repository = trimFront(st.Repository, next.MaxHistoryItems)
		out = next
		return nil
	})
	return out, err
}

// Export builds the export artifact from the current logs
func (m *Manager) Export(ctx context.Context, version string) (model.ExportArtifact, error) {
	st, err := m.view(ctx, "export")
	if err != nil {
		return model.ExportArtifact{}, err
	}
	return model.NewExportArtifact(st, version, m.now().UTC()), nil
}

func historyCap(s model.Settings) int {
	if s.MaxHistoryItems > 0 {
		return s.MaxHistoryItems
	}
	return model.DefaultSettings().MaxHistoryItems
}

// appendCapped appends v and evicts from the front while len > limit
func appendCapped[T any](list []T, v T, limit int) []T {
	return trimFront(append(list, v), limit)
}

func trimFront[T any](list []T, limit int) []T {
	if len(list) <= limit {
		return list
	}
	out := make([]T, limit)
	copy(out, list[len(list)-limit:])
	return out
}
