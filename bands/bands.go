// Package bands implements the bands registry (C2): a process-wide,
// immutable-after-load map from a normalized band name to an ordered list
// of (provider, model) candidates.
//
// Grounded on original_source/lattice/router/bands.py's BandsRegistry
// (from_file, get_band/get_default_band, find_provider_for_model), with
// one deliberate change: §9's REDESIGN FLAG pins candidate order as the
// failover preference instead of the original's random.choice, so
// resolution is deterministic and testable.
package bands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentrouter/lattice-gateway/types"
)

// Name identifies a user-facing band. Only these three are ever surfaced.
type Name string

const (
	Low  Name = "low"
	Mid  Name = "mid"
	High Name = "high"
)

// legacyAliases maps the source's retired band names onto the three
// user-facing ones (§3's Band data model: "must be preserved").
var legacyAliases = map[string]Name{
	"simple":        Low,
	"low":           Low,
	"moderate":      Mid,
	"medium":        Mid,
	"mid":           Mid,
	"complex":       High,
	"long_context":  High,
	"high":          High,
}

// Normalize maps any recognized alias (or a canonical name) onto the
// normalized band name. Unknown input returns ("", false).
func Normalize(raw string) (Name, bool) {
	n, ok := legacyAliases[strings.ToLower(strings.TrimSpace(raw))]
	return n, ok
}

// Band is a named tier with its ordered candidate list.
type Band struct {
	Name        Name              `json:"name"`
	Description string            `json:"description"`
	Models      []types.Candidate `json:"models"`
}

type fileFormat struct {
	DefaultBand string `json:"default_band" yaml:"default_band"`
	Bands       map[string]struct {
		Description string `json:"description" yaml:"description"`
		Models      []struct {
			Provider string `json:"provider" yaml:"provider"`
			Model    string `json:"model" yaml:"model"`
		} `json:"models" yaml:"models"`
	} `json:"bands" yaml:"bands"`
}

// Registry is the immutable, process-wide band table.
type Registry struct {
	defaultBand Name
	bands       map[Name]Band
}

// Load reads a bands file (JSON or YAML) and builds the registry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bands file: %w", err)
	}

	var ff fileFormat
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &ff)
	default:
		err = json.Unmarshal(data, &ff)
	}
	if err != nil {
		return nil, fmt.Errorf("parse bands file %s: %w", path, err)
	}

	r := &Registry{bands: make(map[Name]Band)}
	for rawName, cfg := range ff.Bands {
		name, ok := Normalize(rawName)
		if !ok {
			// Unrecognized band section — skip rather than fail the load;
			// an operator typo here shouldn't prevent the process from
			// serving with the bands that did parse.
			continue
		}
		models := make([]types.Candidate, 0, len(cfg.Models))
		for _, m := range cfg.Models {
			if m.Model == "" {
				continue
			}
			models = append(models, types.Candidate{
				Provider: strings.ToLower(m.Provider),
				Model:    m.Model,
			})
		}
		r.bands[name] = Band{Name: name, Description: cfg.Description, Models: models}
	}

	if def, ok := Normalize(ff.DefaultBand); ok {
		r.defaultBand = def
	} else {
		r.defaultBand = Mid
	}

	if len(r.bands) == 0 {
		return nil, fmt.Errorf("bands file %s contains no valid bands", path)
	}
	if _, ok := r.bands[r.defaultBand]; !ok {
		return nil, fmt.Errorf("bands file %s: default_band %q has no matching section", path, ff.DefaultBand)
	}

	return r, nil
}

// Resolve returns the named band, falling back to the default band for an
// empty or unrecognized name (§4.2).
func (r *Registry) Resolve(bandName string) Band {
	if bandName != "" {
		if name, ok := Normalize(bandName); ok {
			if b, ok := r.bands[name]; ok {
				return b
			}
		}
	}
	return r.bands[r.defaultBand]
}

// DefaultBand returns the registry's default band name.
func (r *Registry) DefaultBand() Name { return r.defaultBand }

// FindProvider case-insensitively scans every band for a model id and
// returns the provider that serves it, if any.
func (r *Registry) FindProvider(modelID string) (string, bool) {
	target := strings.ToLower(modelID)
	for _, b := range r.bands {
		for _, c := range b.Models {
			if strings.ToLower(c.Model) == target {
				return c.Provider, true
			}
		}
	}
	return "", false
}

// List returns all configured bands with their candidates, for the
// /v1/bands introspection endpoint.
func (r *Registry) List() []Band {
	out := make([]Band, 0, len(r.bands))
	for _, b := range r.bands {
		out = append(out, b)
	}
	return out
}
