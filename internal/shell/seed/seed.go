// Package seed loads deployment workflow templates from a YAML file and
// creates the ones that do not exist yet.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/artpar/muster/internal/core/domain"
	"github.com/artpar/muster/internal/core/workflow"
	"github.com/artpar/muster/internal/shell/store"
)

var (
	ErrEmptyInput  = errors.New("empty seed file")
	ErrInvalidYAML = errors.New("invalid seed YAML")
	ErrInvalidDef  = errors.New("invalid template definition")
)

// File is the top-level document.
//
//	templates:
//	  - name: Border patrol
//	    type: standard
//	    commander: Lt. Hale
//	    units: [alpha, bravo]
//	    attributes:
//	      priority: high
type File struct {
	Templates []TemplateDef `yaml:"templates"`
}

// TemplateDef describes one template to create.
type TemplateDef struct {
	Name           string         `yaml:"name"`
	Type           string         `yaml:"type"`
	Commander      string         `yaml:"commander"`
	TargetLocation string         `yaml:"target_location"`
	Units          []string       `yaml:"units"`
	Equipments     []string       `yaml:"equipments"`
	Description    string         `yaml:"description"`
	Attributes     map[string]any `yaml:"attributes"`
	EmergencyLevel string         `yaml:"emergency_level"`
	ResponseTime   string         `yaml:"response_time"`
}

// Parse decodes and validates a seed document. It does no I/O.
func Parse(data []byte) (*File, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, ErrEmptyInput
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	for i, def := range f.Templates {
		if strings.TrimSpace(def.Name) == "" {
			return nil, fmt.Errorf("%w: templates[%d]: name is required", ErrInvalidDef, i)
		}
		if _, err := workflow.ParseType(def.Type); err != nil {
			return nil, fmt.Errorf("%w: templates[%d]: %w", ErrInvalidDef, i, err)
		}
		if _, err := def.attributes(); err != nil {
			return nil, fmt.Errorf("%w: templates[%d]: %w", ErrInvalidDef, i, err)
		}
	}
	return &f, nil
}

// LoadFile reads and parses the seed file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// attributes converts the YAML attribute tree into workflow attributes.
func (d TemplateDef) attributes() (workflow.Attributes, error) {
	if len(d.Attributes) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(d.Attributes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", workflow.ErrInvalidAttribute, err)
	}
	var attrs workflow.Attributes
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

func (d TemplateDef) params() workflow.Params {
	attrs, _ := d.attributes() // validated by Parse
	return workflow.Params{
		Name:           d.Name,
		Commander:      d.Commander,
		TargetLocation: d.TargetLocation,
		Units:          d.Units,
		Equipments:     d.Equipments,
		Description:    d.Description,
		Attributes:     attrs,
		EmergencyLevel: d.EmergencyLevel,
		ResponseTime:   d.ResponseTime,
	}
}

// =============================================================================
// Apply
// =============================================================================

// Templates is the subset of the template service the seeder needs.
type Templates interface {
	Create(ctx context.Context, typ string, p workflow.Params) (*domain.Template, error)
	List(ctx context.Context, typ string, opts store.ListOptions) ([]domain.Template, error)
}

// Apply creates every template of f whose name and type are not already in
// use. It returns the created records. Seeding stops at the first error.
func Apply(ctx context.Context, svc Templates, f *File, logger *slog.Logger) ([]*domain.Template, error) {
	logger = logger.With("component", "seed")
	created := make([]*domain.Template, 0, len(f.Templates))

	for _, def := range f.Templates {
		found, err := exists(ctx, svc, def)
		if err != nil {
			return created, fmt.Errorf("seed %q: %w", def.Name, err)
		}
		if found {
			logger.Debug("template already present", "name", def.Name, "type", def.Type)
			continue
		}

		tmpl, err := svc.Create(ctx, def.Type, def.params())
		if err != nil {
			return created, fmt.Errorf("seed %q: %w", def.Name, err)
		}
		created = append(created, tmpl)
	}

	logger.Info("templates seeded", "created", len(created), "defined", len(f.Templates))
	return created, nil
}

func exists(ctx context.Context, svc Templates, def TemplateDef) (bool, error) {
	opts := store.ListOptions{Limit: 1000}
	for {
		page, err := svc.List(ctx, def.Type, opts)
		if err != nil {
			return false, err
		}
		for _, t := range page {
			if t.Name == def.Name {
				return true, nil
			}
		}
		if len(page) < opts.Limit {
			return false, nil
		}
		opts.Offset += opts.Limit
	}
}
