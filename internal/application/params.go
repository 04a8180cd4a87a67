package application

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"gitlab-mcp-server/internal/domain"
)

// isMissing reports whether a required argument counts as not supplied:
// absent, JSON null or an empty string. Zero and false are present.
func isMissing(args map[string]interface{}, name string) bool {
	value, exists := args[name]
	if !exists || value == nil {
		return true
	}
	if s, ok := value.(string); ok && s == "" {
		return true
	}
	return false
}

// missingParams returns the required names that are missing, in declaration order.
func missingParams(args map[string]interface{}, required []string) []string {
	var missing []string
	for _, name := range required {
		if isMissing(args, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// normalizeArgs re-decodes args through JSON so numbers are float64 and
// nested values are plain maps and slices, whatever the caller passed.
func normalizeArgs(args map[string]interface{}) (map[string]interface{}, error) {
	if len(args) == 0 {
		return map[string]interface{}{}, nil
	}

	data, err := json.Marshal(args)
	if err != nil {
		return nil, domain.NewInvalidParams("Invalid parameters: arguments are not serializable: %v", err)
	}

	var normalized map[string]interface{}
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, domain.NewInvalidParams("Invalid parameters: %v", err)
	}
	return normalized, nil
}

// getStringParam extracts a string parameter from the arguments map.
// Returns an error if the parameter is required but missing or not a string.
func getStringParam(args map[string]interface{}, name string, required bool) (string, error) {
	value, exists := args[name]
	if !exists || value == nil {
		if required {
			return "", domain.NewMissingParams(name)
		}
		return "", nil
	}

	strValue, ok := value.(string)
	if !ok {
		return "", domain.NewInvalidParams("Invalid parameters: %s: must be a string", name)
	}

	return strValue, nil
}

// getIntParam extracts an integer parameter from the arguments map.
// Numeric strings are accepted since identifiers arrive either way.
func getIntParam(args map[string]interface{}, name string, required bool) (int, error) {
	value, exists := args[name]
	if !exists || value == nil {
		if required {
			return 0, domain.NewMissingParams(name)
		}
		return 0, nil
	}

	switch v := value.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, domain.NewInvalidParams("Invalid parameters: %s: must be an integer", name)
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, domain.NewInvalidParams("Invalid parameters: %s: must be an integer", name)
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, domain.NewInvalidParams("Invalid parameters: %s: must be an integer", name)
		}
		return n, nil
	default:
		return 0, domain.NewInvalidParams("Invalid parameters: %s: must be an integer", name)
	}
}

// pathValue renders a path parameter as text. Integral floats print without
// a fractional part so 42 and "42" address the same resource.
func pathValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
