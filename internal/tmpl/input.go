// Package tmpl implements the two expression/template flavours of spec
// §4.1: InputTemplate renders an ActivityStep's input document from its
// parents' projected attributes, and OutputProjector renders an Activity's
// outputs_spec projection from a raw activity result.
//
// InputTemplate deliberately uses the canonical, dot-prefixed text/template
// syntax ({{.foo}}, {{if .foo}}, {{range .items}}) rather than inventing a
// bare-identifier dialect: it is the same substitution/conditional/looping
// vocabulary spec §4.1 describes, gets "the usual conditional/looping
// constructs" for free from the standard library, and every substituted
// value still renders as compact JSON text (see jsonValue below) so that a
// template like `{"x": {{.foo}}}` yields a valid JSON document once foo is
// an object.
package tmpl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
	"text/template/parse"

	"github.com/bfansports/CloudProcessingEngine-Decider/internal/decidererr"
	pkgerrors "github.com/bfansports/CloudProcessingEngine-Decider/internal/pkg/errors"
)

// InputVar is the literal name of the $init sentinel as it appears in an
// input template's free-variable set.
const InputVar = "__input__"

// InputTemplate is a parsed, validated text/template ready to be rendered
// against a per-step context map.
type InputTemplate struct {
	raw      string
	parsed   *template.Template
	freeVars map[string]struct{}
}

// ParseInputTemplate parses raw and enumerates its free variables. declared
// is the set of names a free variable is allowed to reference: InputVar plus
// every name in the step's requires map. Any other free variable is a
// StepDefinitionError, per spec §3's step invariant.
func ParseInputTemplate(stepName, raw string, declared map[string]struct{}) (*InputTemplate, error) {
	t, err := template.New(stepName).Parse(raw)
	if err != nil {
		return nil, decidererr.NewStepDefinitionError(stepName, fmt.Errorf("parse input template: %w", err))
	}
	free := freeVariables(t)
	for v := range free {
		if v == InputVar {
			continue
		}
		if _, ok := declared[v]; !ok {
			return nil, decidererr.NewStepDefinitionError(stepName,
				fmt.Errorf("template variable %q is neither %s nor a declared parent: %w", v, InputVar, pkgerrors.ErrInvalidArgument))
		}
	}
	return &InputTemplate{raw: raw, parsed: t, freeVars: free}, nil
}

// Render substitutes context (parent_name -> parent.attrs, plus InputVar ->
// the $init step's attrs) into the template, JSON-encodes the result of
// each substitution, and parses the rendered text as JSON. A render
// (execution) failure or a post-render JSON parse failure both come back as
// *decidererr.RuntimeAbort, matching §4.1: "parse failure is a step abort".
func (it *InputTemplate) Render(context map[string]any) (map[string]any, error) {
	if it.raw == "" {
		// A step with no input template renders no input at all, rather than
		// treating the empty string as a malformed JSON document.
		return nil, nil
	}

	data := make(map[string]any, len(context))
	for k, v := range context {
		data[k] = wrapJSON(v)
	}

	var buf bytes.Buffer
	if err := it.parsed.Execute(&buf, data); err != nil {
		return nil, decidererr.NewRuntimeAbort("render input template", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		return nil, decidererr.NewRuntimeAbort("rendered template is not valid JSON", err)
	}
	return doc, nil
}

// jsonValue wraps a Go value so that text/template's default printer (which
// calls fmt.Stringer when available) emits compact JSON instead of Go's %v
// representation.
type jsonValue struct{ v any }

func (j jsonValue) String() string {
	b, err := json.Marshal(j.v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func (j jsonValue) MarshalJSON() ([]byte, error) { return json.Marshal(j.v) }

// jsonObject keeps an object's members reachable by field access
// ({{.foo.bar}}) while {{.foo}} itself still prints as compact JSON.
type jsonObject map[string]any

func (o jsonObject) String() string { return jsonValue{v: map[string]any(o)}.String() }

func wrapJSON(v any) any {
	if m, ok := v.(map[string]any); ok && m != nil {
		o := make(jsonObject, len(m))
		for k, e := range m {
			o[k] = wrapJSON(e)
		}
		return o
	}
	return jsonValue{v: v}
}

// freeVariables walks a parsed template's syntax tree and collects the
// top-level field names referenced from the root data context (".foo",
// ".foo.bar" -> "foo"). Fields referenced from a dot rebound by {{range}} or
// {{with}} are not free variables of the outer context, so the walk tracks
// scope depth and only records field nodes seen at depth 0.
func freeVariables(t *template.Template) map[string]struct{} {
	vars := map[string]struct{}{}
	if t.Tree == nil {
		return vars
	}
	walkNode(t.Tree.Root, 0, vars)
	return vars
}

func walkNode(n parse.Node, depth int, vars map[string]struct{}) {
	if n == nil {
		return
	}
	switch x := n.(type) {
	case *parse.ListNode:
		if x == nil {
			return
		}
		for _, c := range x.Nodes {
			walkNode(c, depth, vars)
		}
	case *parse.ActionNode:
		walkNode(x.Pipe, depth, vars)
	case *parse.PipeNode:
		if x == nil {
			return
		}
		for _, cmd := range x.Cmds {
			walkNode(cmd, depth, vars)
		}
	case *parse.CommandNode:
		for _, a := range x.Args {
			walkNode(a, depth, vars)
		}
	case *parse.FieldNode:
		if depth == 0 && len(x.Ident) > 0 {
			vars[x.Ident[0]] = struct{}{}
		}
	case *parse.IfNode:
		walkNode(x.Pipe, depth, vars)
		walkNode(x.List, depth, vars)
		walkNode(x.ElseList, depth, vars)
	case *parse.RangeNode:
		walkNode(x.Pipe, depth, vars)
		walkNode(x.List, depth+1, vars)
		walkNode(x.ElseList, depth, vars)
	case *parse.WithNode:
		walkNode(x.Pipe, depth, vars)
		walkNode(x.List, depth+1, vars)
		walkNode(x.ElseList, depth, vars)
	case *parse.TemplateNode:
		walkNode(x.Pipe, depth, vars)
	}
}
