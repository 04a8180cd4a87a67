package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"

	"gitlab-mcp-server/internal/domain"
)

// ParamKind is the JSON type accepted for a tool parameter.
type ParamKind int

const (
	ParamString ParamKind = iota
	ParamInteger
	ParamNumber
	ParamBoolean
	// ParamID accepts a string or an integer, e.g. "group/project" or 42.
	ParamID
	ParamObject
	ParamArray
)

// Param describes one tool argument.
type Param struct {
	Name        string
	Description string
	Kind        ParamKind
	Required    bool
	Enum        []any
	Default     any
	// Items is the element kind of a ParamArray.
	Items ParamKind
	// Fields is the nested shape of a ParamObject. Empty means free-form.
	Fields []Param
}

// HandlerFunc executes a validated tool call.
type HandlerFunc func(ctx context.Context, hc *HandlerContext, args map[string]interface{}) (json.RawMessage, error)

// Tool is one row of the endpoint table.
type Tool struct {
	Name        string
	Description string
	Method      string
	// Path is relative to the API root. {name} segments are filled from
	// parameters of the same name and escaped as a single segment.
	Path   string
	Params []Param
	// Check runs conditional validation before the request is built.
	Check func(args map[string]interface{}) error
	// Body builds a custom request body instead of the flat parameter map.
	Body func(args map[string]interface{}) (interface{}, error)
	// Failure overrides the default error message prefix.
	Failure string
	// Handler replaces the generic REST executor.
	Handler HandlerFunc
}

// Entry is a registered tool with its advertised descriptor and compiled validator.
type Entry struct {
	Tool       Tool
	Definition domain.ToolDefinition

	required  []string
	validator *validator.Schema
	handler   HandlerFunc
}

// DefaultMessage is the prefix used when the call fails.
func (e *Entry) DefaultMessage() string {
	if e.Tool.Failure != "" {
		return e.Tool.Failure
	}
	words := strings.ReplaceAll(strings.TrimPrefix(e.Tool.Name, "gitlab_"), "_", " ")
	return "Failed to " + words
}

// Registry maps tool names to entries. It is populated once by NewRegistry
// and read-only afterwards, so it is safe for concurrent lookups.
type Registry struct {
	entries map[string]*Entry
	order   []string
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// NewRegistry registers every tool. It fails on duplicate or empty names,
// on path placeholders with no matching parameter, and on schemas that do
// not compile.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{entries: make(map[string]*Entry, len(tools))}

	for _, tool := range tools {
		if tool.Name == "" {
			return nil, errors.New("tool name is required")
		}
		if _, exists := r.entries[tool.Name]; exists {
			return nil, fmt.Errorf("duplicate tool: %s", tool.Name)
		}

		entry, err := newEntry(tool)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
		}

		r.entries[tool.Name] = entry
		r.order = append(r.order, tool.Name)
	}

	return r, nil
}

// MustNewRegistry is NewRegistry for static tables; it panics on error.
func MustNewRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

func newEntry(tool Tool) (*Entry, error) {
	declared := make(map[string]bool, len(tool.Params))
	for _, p := range tool.Params {
		if p.Name == "" {
			return nil, errors.New("parameter name is required")
		}
		if declared[p.Name] {
			return nil, fmt.Errorf("duplicate parameter: %s", p.Name)
		}
		declared[p.Name] = true
	}

	for _, m := range placeholderPattern.FindAllStringSubmatch(tool.Path, -1) {
		if !declared[m[1]] {
			return nil, fmt.Errorf("path placeholder {%s} has no parameter", m[1])
		}
	}

	handler := tool.Handler
	if handler == nil {
		if tool.Method == "" || tool.Path == "" {
			return nil, errors.New("method and path are required without a custom handler")
		}
		handler = restHandler(tool)
	}

	schema := objectSchema(tool.Params)

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input schema: %w", err)
	}

	compiled, err := validator.CompileString("mem:///tools/"+tool.Name+".json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid input schema: %w", err)
	}

	return &Entry{
		Tool: tool,
		Definition: domain.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		},
		required:  schema.Required,
		validator: compiled,
		handler:   handler,
	}, nil
}

// Resolve returns the entry registered under name.
func (r *Registry) Resolve(name string) (*Entry, bool) {
	entry, ok := r.entries[name]
	return entry, ok
}

// Definitions returns every descriptor in registration order.
func (r *Registry) Definitions() []domain.ToolDefinition {
	defs := make([]domain.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].Definition)
	}
	return defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}

// validate checks presence first, then types and enums. Optional arguments
// sent as null are removed from args before the schema sees them.
func (e *Entry) validate(args map[string]interface{}) error {
	if missing := missingParams(args, e.required); len(missing) > 0 {
		return domain.NewMissingParams(missing...)
	}

	for name, value := range args {
		if value == nil {
			delete(args, name)
		}
	}

	if err := e.validator.Validate(args); err != nil {
		return invalidParams(err)
	}

	return nil
}

func invalidParams(err error) *domain.ToolError {
	var ve *validator.ValidationError
	if !errors.As(err, &ve) {
		return domain.NewInvalidParams("Invalid parameters: %v", err)
	}

	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	field = strings.ReplaceAll(field, "/", ".")
	if field == "" {
		field = "arguments"
	}

	return &domain.ToolError{
		Kind:    domain.KindInvalidParams,
		Message: fmt.Sprintf("Invalid parameters: %s: %s", field, leaf.Message),
		Data:    map[string]interface{}{"field": field},
		Err:     err,
	}
}

func objectSchema(params []Param) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	var required []string

	for _, p := range params {
		props.Set(p.Name, paramSchema(p))
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func paramSchema(p Param) *jsonschema.Schema {
	s := kindSchema(p.Kind, p.Items, p.Fields)
	s.Description = p.Description
	s.Enum = p.Enum
	s.Default = p.Default
	return s
}

func kindSchema(kind, items ParamKind, fields []Param) *jsonschema.Schema {
	switch kind {
	case ParamInteger:
		return &jsonschema.Schema{Type: "integer"}
	case ParamNumber:
		return &jsonschema.Schema{Type: "number"}
	case ParamBoolean:
		return &jsonschema.Schema{Type: "boolean"}
	case ParamID:
		return &jsonschema.Schema{
			AnyOf: []*jsonschema.Schema{
				{Type: "string"},
				{Type: "integer"},
			},
		}
	case ParamObject:
		if len(fields) == 0 {
			return &jsonschema.Schema{Type: "object"}
		}
		return objectSchema(fields)
	case ParamArray:
		return &jsonschema.Schema{
			Type:  "array",
			Items: kindSchema(items, ParamString, nil),
		}
	default:
		return &jsonschema.Schema{Type: "string"}
	}
}
