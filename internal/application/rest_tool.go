package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/xanzy/go-gitlab"
)

// restHandler is the generic executor for a table row: fill defaults, run
// the row's check, expand the path and issue exactly one request.
func restHandler(tool Tool) HandlerFunc {
	pathParams := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(tool.Path, -1) {
		pathParams[m[1]] = true
	}

	return func(ctx context.Context, hc *HandlerContext, args map[string]interface{}) (json.RawMessage, error) {
		args = withDefaults(tool.Params, args)

		if tool.Check != nil {
			if err := tool.Check(args); err != nil {
				return nil, err
			}
		}

		path := expandPath(tool.Path, args)

		var query url.Values
		var body interface{}

		switch {
		case tool.Body != nil:
			built, err := tool.Body(args)
			if err != nil {
				return nil, err
			}
			body = built
		case sendsBody(tool.Method):
			if fields := collect(tool.Params, args, pathParams); len(fields) > 0 {
				body = fields
			}
		default:
			query = encodeQuery(collect(tool.Params, args, pathParams))
		}

		return hc.Client.Do(ctx, tool.Method, path, query, body)
	}
}

func sendsBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// withDefaults returns a copy of args with declared defaults filled in.
func withDefaults(params []Param, args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args)+len(params))
	for k, v := range args {
		out[k] = v
	}
	for _, p := range params {
		if p.Default == nil {
			continue
		}
		if v, ok := out[p.Name]; !ok || v == nil {
			out[p.Name] = p.Default
		}
	}
	return out
}

// expandPath substitutes {name} placeholders, each escaped as one segment
// so "group/project" becomes "group%2Fproject".
func expandPath(template string, args map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		return gitlab.PathEscape(pathValue(args[name]))
	})
}

// collect returns the declared non-path parameters that were supplied.
// Undeclared arguments are not forwarded.
func collect(params []Param, args map[string]interface{}, pathParams map[string]bool) map[string]interface{} {
	fields := make(map[string]interface{})
	for _, p := range params {
		if pathParams[p.Name] {
			continue
		}
		if v, ok := args[p.Name]; ok && v != nil {
			fields[p.Name] = v
		}
	}
	return fields
}

// encodeQuery renders arguments the way GitLab expects them on the query
// string: arrays as repeated name[] keys, objects as JSON text.
func encodeQuery(fields map[string]interface{}) url.Values {
	if len(fields) == 0 {
		return nil
	}

	query := url.Values{}
	for name, value := range fields {
		switch v := value.(type) {
		case []interface{}:
			for _, item := range v {
				query.Add(name+"[]", pathValue(item))
			}
		case map[string]interface{}:
			data, err := json.Marshal(v)
			if err != nil {
				query.Set(name, fmt.Sprint(v))
				continue
			}
			query.Set(name, string(data))
		default:
			query.Set(name, pathValue(v))
		}
	}
	return query
}
