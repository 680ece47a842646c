package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

type entry struct {
	def     ToolDefinition
	handler Handler
	schema  *jsonschema.Schema
}

// Registry is a name-keyed dictionary of tool handlers, constructed once
// at startup and read-only thereafter.
type Registry struct {
	byName map[string]*entry
	order  []string

	workDir       string
	exploreFunc   ExploreFunc
	taskCallbacks TaskCallbacks
}

// New creates an empty registry rooted at workDir.
func New(workDir string) *Registry {
	return &Registry{
		byName:  make(map[string]*entry),
		workDir: workDir,
	}
}

// Register adds a tool. Re-registering the same name with an identical
// definition is a no-op; any other collision is an error.
func (r *Registry) Register(def ToolDefinition, handler Handler) error {
	schema, err := compileSchema(def)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", def.Name, err)
	}
	if existing, ok := r.byName[def.Name]; ok {
		if sameDefinition(existing.def, def) {
			return nil
		}
		return fmt.Errorf("tool %q already registered with a different definition", def.Name)
	}
	r.byName[def.Name] = &entry{def: def, handler: handler, schema: schema}
	r.order = append(r.order, def.Name)
	return nil
}

// Get resolves a tool by name.
func (r *Registry) Get(name string) (ToolDefinition, Handler, bool) {
	e, ok := r.byName[name]
	if !ok {
		return ToolDefinition{}, nil, false
	}
	return e.def, e.handler, true
}

// List returns tool definitions in stable registration order.
func (r *Registry) List() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.byName[name].def)
	}
	return defs
}

// IsReadOnly reports whether name is registered and declared safe.
func (r *Registry) IsReadOnly(name string) bool {
	e, ok := r.byName[name]
	return ok && e.def.Safe
}

// WorkDir returns the workspace root this registry was constructed with.
func (r *Registry) WorkDir() string {
	return r.workDir
}

// Validate checks params against the tool's declared parameter schema,
// coercing numeric-strings to numbers and "true"/"false" to booleans
// before validation. Returns a structured invalid-arguments error naming
// every missing or mistyped parameter.
func (r *Registry) Validate(name string, params map[string]any) (map[string]any, error) {
	e, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown-tool: %s", name)
	}

	coerced := coerceParams(e.def, params)

	data, err := json.Marshal(coerced)
	if err != nil {
		return nil, fmt.Errorf("invalid-arguments: cannot marshal params: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid-arguments: cannot unmarshal params: %w", err)
	}

	if err := e.schema.Validate(v); err != nil {
		return nil, fmt.Errorf("invalid-arguments: %s", describeValidationError(err))
	}
	return coerced, nil
}

// Dispatch validates and invokes name's handler. It never panics: any
// handler-raised exception surfaces as a failed ToolResult.
func (r *Registry) Dispatch(ctx context.Context, ec ExecutionContext, name string, params map[string]any) (def ToolDefinition, result ToolResult) {
	e, ok := r.byName[name]
	if !ok {
		return ToolDefinition{}, ToolResult{Success: false, Error: fmt.Sprintf("unknown-tool: %s", name)}
	}
	def = e.def

	coerced, err := r.Validate(name, params)
	if err != nil {
		return def, ToolResult{Success: false, Error: err.Error()}
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = ToolResult{Success: false, Error: fmt.Sprintf("fs-fault: handler panic: %v", rec)}
		}
	}()
	result = e.handler(ctx, ec, coerced)
	return def, result
}

func sameDefinition(a, b ToolDefinition) bool {
	if a.Name != b.Name || a.Description != b.Description || a.Safe != b.Safe {
		return false
	}
	if len(a.Parameters) != len(b.Parameters) {
		return false
	}
	for i := range a.Parameters {
		if a.Parameters[i] != b.Parameters[i] {
			return false
		}
	}
	return true
}

// compileSchema builds a JSON-schema document from a ToolDefinition's
// parameter list and compiles it once at registration time.
func compileSchema(def ToolDefinition) (*jsonschema.Schema, error) {
	props := make(map[string]any, len(def.Parameters))
	var required []string
	for _, p := range def.Parameters {
		props[p.Name] = map[string]any{
			"type":        jsonSchemaType(p.Type),
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schemaDoc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schemaDoc["required"] = required
	}

	data, err := json.Marshal(schemaDoc)
	if err != nil {
		return nil, err
	}

	url := "mem://tools/" + def.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

func jsonSchemaType(t ParamType) string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	default:
		return "string"
	}
}

func describeValidationError(err error) string {
	if ve, ok := err.(*jsonschema.ValidationError); ok {
		var names []string
		collectMissing(ve, &names)
		if len(names) > 0 {
			sort.Strings(names)
			return fmt.Sprintf("missing or mistyped parameters: %v", names)
		}
	}
	return err.Error()
}

func collectMissing(ve *jsonschema.ValidationError, out *[]string) {
	for _, cause := range ve.Causes {
		collectMissing(cause, out)
	}
	if ve.KeywordLocation != "" {
		*out = append(*out, ve.Error())
	}
}

// decodeParams decodes a coerced params map into a typed struct using
// mapstructure, replacing a marshal/unmarshal round trip through
// encoding/json with a single typed decode.
func decodeParams[T any](params map[string]any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, fmt.Errorf("invalid-arguments: %w", err)
	}
	if err := dec.Decode(params); err != nil {
		return out, fmt.Errorf("invalid-arguments: %w", err)
	}
	return out, nil
}
