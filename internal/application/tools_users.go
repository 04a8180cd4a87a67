package application

import "net/http"

// accessLevels are GitLab's role values: minimal, guest, reporter,
// developer, maintainer, owner.
var accessLevels = []any{5, 10, 20, 30, 40, 50}

func groupID() Param {
	return required("group_id", ParamID, "Group ID or URL-encoded path")
}

func memberFields() []Param {
	return []Param{
		required("user_id", ParamID, "ID of the user to add"),
		oneOf(required("access_level", ParamInteger, "Access level (5 minimal, 10 guest, 20 reporter, 30 developer, 40 maintainer, 50 owner)"), accessLevels...),
		optional("expires_at", ParamString, "Membership expiry date (YYYY-MM-DD)"),
	}
}

func userTools() []Tool {
	return []Tool{
		{
			Name:        "gitlab_list_users",
			Description: "List users",
			Method:      http.MethodGet,
			Path:        "users",
			Params: list(
				optional("username", ParamString, "Exact username"),
				optional("search", ParamString, "Search by name, username or email"),
				optional("active", ParamBoolean, "Only active users"),
			),
		},
		{
			Name:        "gitlab_get_user",
			Description: "Get a user",
			Method:      http.MethodGet,
			Path:        "users/{user_id}",
			Params:      list(required("user_id", ParamID, "ID of the user")),
		},
		{
			Name:        "gitlab_list_groups",
			Description: "List groups visible to the authenticated user",
			Method:      http.MethodGet,
			Path:        "groups",
			Params: list(
				optional("search", ParamString, "Search groups by name or path"),
				optional("owned", ParamBoolean, "Only groups owned by the current user"),
				oneOf(optional("min_access_level", ParamInteger, "Minimum access level of the current user"), accessLevels...),
			),
		},
		{
			Name:        "gitlab_get_group",
			Description: "Get a group",
			Method:      http.MethodGet,
			Path:        "groups/{group_id}",
			Params:      list(groupID()),
		},
		{
			Name:        "gitlab_list_group_members",
			Description: "List the members of a group",
			Method:      http.MethodGet,
			Path:        "groups/{group_id}/members",
			Params: list(
				groupID(),
				optional("query", ParamString, "Filter members by name or username"),
			),
		},
		{
			Name:        "gitlab_add_group_member",
			Description: "Add a user to a group",
			Method:      http.MethodPost,
			Path:        "groups/{group_id}/members",
			Params:      params(list(groupID()), memberFields()),
		},
		{
			Name:        "gitlab_list_project_members",
			Description: "List the members of a project",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/members",
			Params: list(
				projectID(),
				optional("query", ParamString, "Filter members by name or username"),
			),
		},
		{
			Name:        "gitlab_add_project_member",
			Description: "Add a user to a project",
			Method:      http.MethodPost,
			Path:        "projects/{project_id}/members",
			Params:      params(list(projectID()), memberFields()),
		},
	}
}
