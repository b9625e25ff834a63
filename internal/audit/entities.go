// Package audit scores the encyclopedia coverage of a fixed list of
// institutions through the wiki API.
package audit

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EntityType is the kind of institution an entity is
type EntityType string

const (
	TypeUniversity EntityType = "University"
	TypeCouncil    EntityType = "Council"
)

// Archetype maps the entity type to its template key
func (t EntityType) Archetype() string {
	switch t {
	case TypeUniversity:
		return "university"
	case TypeCouncil:
		return "municipalCouncil"
	}
	return strings.ToLower(string(t))
}

// Entity is one institution whose article is audited
type Entity struct {
	Name    string     `yaml:"name" json:"name"`
	Type    EntityType `yaml:"type" json:"type"`
	Aliases []string   `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// Titles returns the name followed by distinct aliases
func (e Entity) Titles() []string {
	titles := []string{e.Name}
	for _, a := range e.Aliases {
		if a != "" && !strings.EqualFold(a, e.Name) {
			titles = append(titles, a)
		}
	}
	return titles
}

//go:embed entities.yaml
var builtinEntities []byte

// DefaultEntities returns the built-in list of Zambian universities and councils
func DefaultEntities() []Entity {
	entities, err := ParseEntities(builtinEntities)
	if err != nil {
		panic(fmt.Sprintf("builtin entities: %v", err))
	}
	return entities
}

// LoadEntities reads an entity list from a YAML file
func LoadEntities(path string) ([]Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entities: %w", err)
	}
	return ParseEntities(data)
}

// ParseEntities decodes and validates a YAML entity list
func ParseEntities(data []byte) ([]Entity, error) {
	var entities []Entity
	if err := yaml.Unmarshal(data, &entities); err != nil {
		return nil, fmt.Errorf("parse entities: %w", err)
	}
	for i, e := range entities {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("entity %d: missing name", i)
		}
		if e.Type == "" {
			return nil, fmt.Errorf("entity %q: missing type", e.Name)
		}
	}
	return entities, nil
}

// FilterByType keeps entities of type t; an empty t keeps all
func FilterByType(entities []Entity, t EntityType) []Entity {
	if t == "" {
		return entities
	}
	var out []Entity
	for _, e := range entities {
		if strings.EqualFold(string(e.Type), string(t)) {
			out = append(out, e)
		}
	}
	return out
}
