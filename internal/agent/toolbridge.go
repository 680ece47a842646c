package agent

import (
	"bailu/internal/llm"
	"bailu/internal/tools"
)

// ToolDefsForLLM converts the tool surface's registered definitions into
// the vendor-neutral schema shape the LLM transport advertises to the
// model, built fresh from each ToolDefinition's parameter list rather
// than threading a second schema representation through the registry.
func ToolDefsForLLM(defs []tools.ToolDefinition) []llm.ToolDef {
	out := make([]llm.ToolDef, 0, len(defs))
	for _, def := range defs {
		out = append(out, llm.ToolDef{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  parameterSchema(def.Parameters),
		})
	}
	return out
}

func parameterSchema(params []tools.ToolParameter) map[string]any {
	properties := make(map[string]any, len(params))
	var required []string
	for _, p := range params {
		properties[p.Name] = map[string]any{
			"type":        jsonSchemaType(p.Type),
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func jsonSchemaType(t tools.ParamType) string {
	switch t {
	case tools.TypeNumber:
		return "number"
	case tools.TypeBoolean:
		return "boolean"
	case tools.TypeArray:
		return "array"
	case tools.TypeObject:
		return "object"
	default:
		return "string"
	}
}
