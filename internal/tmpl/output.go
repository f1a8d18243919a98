package tmpl

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/tidwall/gjson"

	"github.com/bfansports/CloudProcessingEngine-Decider/internal/decidererr"
)

// attrNamePattern is the Activity invariant from spec §3: outputs_spec keys
// match ^[a-zA-Z0-9]+$.
var attrNamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// OutputProjector evaluates an Activity's outputs_spec against a raw
// activity-output document. Each expression is a tiny JSONPath: "$" denotes
// the whole document, "$.a.b" dereferences into it.
type OutputProjector struct {
	exprs map[string]string // attr name -> path expression (without leading "$")
}

// ParseOutputProjector validates the outputs_spec keys and expressions at
// load time, per spec §3 ("expressions parse successfully at load time").
// A nil/empty spec is valid and produces a no-op projector.
func ParseOutputProjector(activityName string, spec map[string]string) (*OutputProjector, error) {
	exprs := make(map[string]string, len(spec))
	for name, expr := range spec {
		if !attrNamePattern.MatchString(name) {
			return nil, decidererr.NewLoadError("activity:"+activityName,
				fmt.Errorf("outputs_spec key %q does not match ^[a-zA-Z0-9]+$", name))
		}
		path, err := parsePath(expr)
		if err != nil {
			return nil, decidererr.NewLoadError("activity:"+activityName,
				fmt.Errorf("outputs_spec expression %q for attribute %q: %w", expr, name, err))
		}
		exprs[name] = path
	}
	return &OutputProjector{exprs: exprs}, nil
}

// parsePath validates and normalizes a path expression into the gjson path
// it will be evaluated with. "$" means "whole document" (empty gjson path);
// "$.a.b" means "a.b".
func parsePath(expr string) (string, error) {
	if expr == "" || expr == "$" {
		return "", nil
	}
	if len(expr) < 2 || expr[0] != '$' || expr[1] != '.' {
		return "", fmt.Errorf("expression must be \"$\" or start with \"$.\"")
	}
	return expr[2:], nil
}

// Project renders {attr: evaluate(expr, rawOutput)} for every declared
// attribute. Evaluation failure (a path that can't be resolved against the
// document) surfaces as *decidererr.RuntimeAbort: the step that triggered
// projection transitions to failed. The error itself is not kept; the
// step's history records only the failed status and its context.
func (p *OutputProjector) Project(rawOutput any) (map[string]any, error) {
	if p == nil || len(p.exprs) == 0 {
		return map[string]any{}, nil
	}
	doc, err := json.Marshal(rawOutput)
	if err != nil {
		return nil, decidererr.NewRuntimeAbort("marshal raw output for projection", err)
	}
	out := make(map[string]any, len(p.exprs))
	for attr, path := range p.exprs {
		if path == "" {
			out[attr] = rawOutput
			continue
		}
		res := gjson.GetBytes(doc, path)
		if !res.Exists() {
			return nil, decidererr.NewRuntimeAbort(
				fmt.Sprintf("output projection %q did not resolve against raw output", "$."+path), nil)
		}
		out[attr] = res.Value()
	}
	return out, nil
}
