package templates

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/wikigap/internal/model"
)

//go:embed builtin/*.yaml
var builtin embed.FS

// Archetype keys of the built-in templates
const (
	University       = "university"
	MunicipalCouncil = "municipalCouncil"
)

// Store holds gold-standard templates keyed by archetype
type Store struct {
	mu        sync.RWMutex
	templates map[string]*model.Template
	logger    *zap.Logger
}

// NewStore creates a store preloaded with the built-in templates
func NewStore(logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		templates: make(map[string]*model.Template),
		logger:    logger,
	}

	entries, err := builtin.ReadDir("builtin")
	if err != nil {
		return nil, fmt.Errorf("read builtin templates: %w", err)
	}
	for _, e := range entries {
		data, err := builtin.ReadFile("builtin/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read builtin template %s: %w", e.Name(), err)
		}
		tpl, err := Decode(e.Name(), data)
		if err != nil {
			return nil, err
		}
		s.templates[stem(e.Name())] = tpl
	}
	return s, nil
}

// Get returns the template for archetype, or false when none is registered
func (s *Store) Get(archetype string) (*model.Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[archetype]
	return tpl, ok
}

// Put registers or replaces the template for archetype
func (s *Store) Put(archetype string, tpl *model.Template) {
	s.mu.Lock()
	s.templates[archetype] = tpl
	s.mu.Unlock()
}

// Archetypes lists the registered archetype keys in sorted order
func (s *Store) Archetypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.templates))
	for k := range s.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadDir registers every *.yaml, *.yml and *.json file in dir, keyed by file stem.
// Files that fail to decode are logged and skipped.
func (s *Store) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read template dir: %w", err)
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() || !isTemplateFile(e.Name()) {
			continue
		}
		if err := s.loadFile(filepath.Join(dir, e.Name())); err != nil {
			s.logger.Warn("skipping template", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		loaded++
	}
	return loaded, nil
}

func (s *Store) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	tpl, err := Decode(filepath.Base(path), data)
	if err != nil {
		return err
	}
	archetype := stem(path)
	s.Put(archetype, tpl)
	s.logger.Debug("template loaded", zap.String("archetype", archetype), zap.String("path", path))
	return nil
}

// Decode parses a template document; the format follows the file extension
func Decode(name string, data []byte) (*model.Template, error) {
	var tpl model.Template
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		if err := json.Unmarshal(data, &tpl); err != nil {
			return nil, fmt.Errorf("decode template %s: %w", name, err)
		}
	default:
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return nil, fmt.Errorf("decode template %s: %w", name, err)
		}
	}

	if len(tpl.RequiredSections) == 0 {
		return nil, fmt.Errorf("template %s: requiredSections is empty", name)
	}
	if tpl.MinCitations < 0 {
		return nil, fmt.Errorf("template %s: minCitations must not be negative", name)
	}
	for _, sec := range tpl.Sections {
		if sec.Title == "" {
			return nil, fmt.Errorf("template %s: section without title", name)
		}
	}
	return &tpl, nil
}

func isTemplateFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// stem strips the directory, the extension and an optional _template suffix
func stem(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSuffix(base, "_template")
}
