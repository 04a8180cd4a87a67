package application

import (
	"strings"

	"github.com/robfig/cron/v3"

	"gitlab-mcp-server/internal/domain"
)

// Tool names referenced outside the endpoint tables.
const (
	ToolListProjects             = "gitlab_list_projects"
	ToolGetProject               = "gitlab_get_project"
	ToolGetMergeRequest          = "gitlab_get_merge_request"
	ToolGetMergeRequestChanges   = "gitlab_get_merge_request_changes"
	ToolCreateMergeRequestThread = "gitlab_create_merge_request_thread"
)

// DefaultTools returns the full GitLab endpoint table in advertisement order.
func DefaultTools() []Tool {
	var tools []Tool
	tools = append(tools, repositoryTools()...)
	tools = append(tools, mergeRequestTools()...)
	tools = append(tools, integrationTools()...)
	tools = append(tools, cicdTools()...)
	tools = append(tools, userTools()...)
	return tools
}

// NewDefaultRegistry registers DefaultTools.
func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(DefaultTools()...)
}

func required(name string, kind ParamKind, description string) Param {
	return Param{Name: name, Kind: kind, Required: true, Description: description}
}

func optional(name string, kind ParamKind, description string) Param {
	return Param{Name: name, Kind: kind, Description: description}
}

func oneOf(p Param, values ...any) Param {
	p.Enum = values
	return p
}

func withDefault(p Param, value any) Param {
	p.Default = value
	return p
}

func projectID() Param {
	return required("project_id", ParamID, "Project ID or URL-encoded path (e.g. 42 or group/project)")
}

func pagination() []Param {
	return []Param{
		optional("per_page", ParamInteger, "Number of items per page"),
		optional("page", ParamInteger, "Page number"),
	}
}

func params(groups ...[]Param) []Param {
	var out []Param
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func list(ps ...Param) []Param {
	return ps
}

// atLeastOne fails unless one of names is present.
func atLeastOne(names ...string) func(map[string]interface{}) error {
	return func(args map[string]interface{}) error {
		for _, name := range names {
			if !isMissing(args, name) {
				return nil
			}
		}
		return domain.NewInvalidParams("At least one of %s is required", joinOr(names))
	}
}

// validCron parses the named argument, when present, as a five-field cron expression.
func validCron(name string) func(map[string]interface{}) error {
	return func(args map[string]interface{}) error {
		expr, ok := args[name].(string)
		if !ok || expr == "" {
			return nil
		}
		if _, err := cron.ParseStandard(expr); err != nil {
			return domain.NewInvalidParams("Invalid parameters: %s: %v", name, err)
		}
		return nil
	}
}

func checks(fns ...func(map[string]interface{}) error) func(map[string]interface{}) error {
	return func(args map[string]interface{}) error {
		for _, fn := range fns {
			if err := fn(args); err != nil {
				return err
			}
		}
		return nil
	}
}

func joinOr(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
	}
}
