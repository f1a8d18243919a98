// Package planio loads plan documents from YAML or JSON into validated
// plan.Plan values (spec §6's external plan-document interface).
package planio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bfansports/CloudProcessingEngine-Decider/internal/decidererr"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/plan"
)

// Load reads a plan document from path, sniffing YAML vs JSON from the file
// extension (.json loads as JSON; anything else, including .yaml/.yml, loads
// as YAML, since YAML is a superset of JSON and this is the format spec §6
// shows by default).
func Load(path string) (*plan.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, decidererr.NewLoadError(path, err)
	}
	return Parse(data, formatFor(path))
}

// Format selects the decoder Parse uses.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes a plan document already in memory and constructs a
// validated plan.Plan from it.
func Parse(data []byte, format Format) (*plan.Plan, error) {
	var doc plan.PlanDoc

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, decidererr.NewLoadError("plan document", fmt.Errorf("decode json: %w", err))
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, decidererr.NewLoadError("plan document", fmt.Errorf("decode yaml: %w", err))
		}
	}

	return plan.NewPlan(doc)
}
