package policy

import "github.com/agentfs/agentfs/internal/types"

// ValidateParams checks args against a tool's parameter schema. Missing
// required parameters and type mismatches produce a terminal invalid-params
// error; extra arguments pass through untouched.
func ValidateParams(params []types.Parameter, args map[string]any) *Error {
	for _, p := range params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				return InvalidParams("missing required parameter %q", p.Name)
			}
			continue
		}
		if !typeMatches(p.Type, v) {
			return InvalidParams("parameter %q must be of type %s", p.Name, p.Type)
		}
	}
	return nil
}

func typeMatches(typ string, v any) bool {
	switch typ {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		switch v.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		switch v.(type) {
		case []any, []string:
			return true
		}
		return false
	default:
		// Unknown or empty type accepts anything.
		return true
	}
}
