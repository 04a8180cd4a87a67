package application

import "net/http"

func repositoryTools() []Tool {
	return []Tool{
		{
			Name:        ToolListProjects,
			Description: "List projects accessible by the authenticated user",
			Method:      http.MethodGet,
			Path:        "projects",
			Params: list(
				optional("search", ParamString, "Return projects matching the search criteria"),
				optional("owned", ParamBoolean, "Limit to projects explicitly owned by the current user"),
				optional("membership", ParamBoolean, "Limit to projects the current user is a member of"),
				oneOf(optional("visibility", ParamString, "Limit by visibility"), "public", "internal", "private"),
				optional("order_by", ParamString, "Order projects by id, name, path, created_at, updated_at or last_activity_at"),
				withDefault(optional("per_page", ParamInteger, "Number of items per page"), 20),
				optional("page", ParamInteger, "Page number"),
			),
		},
		{
			Name:        ToolGetProject,
			Description: "Get details of a specific project",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}",
			Params:      list(projectID()),
		},
		{
			Name:        "gitlab_list_branches",
			Description: "List repository branches of a project",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/repository/branches",
			Params: list(
				projectID(),
				optional("search", ParamString, "Return branches containing the search string"),
			),
		},
		{
			Name:        "gitlab_create_branch",
			Description: "Create a new branch in a project repository",
			Method:      http.MethodPost,
			Path:        "projects/{project_id}/repository/branches",
			Params: list(
				projectID(),
				required("branch", ParamString, "Name of the new branch"),
				required("ref", ParamString, "Branch name or commit SHA to create the branch from"),
			),
		},
		{
			Name:        "gitlab_get_repository_file",
			Description: "Get a file from a project repository",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/repository/files/{file_path}",
			Params: list(
				projectID(),
				required("file_path", ParamString, "Path of the file inside the repository (e.g. src/main.go)"),
				withDefault(optional("ref", ParamString, "Branch, tag or commit to read from"), "main"),
			),
		},
		{
			Name:        "gitlab_compare_branches",
			Description: "Compare two branches, tags or commits",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/repository/compare",
			Params: list(
				projectID(),
				required("from", ParamString, "Commit SHA or branch name to compare from"),
				required("to", ParamString, "Commit SHA or branch name to compare to"),
				optional("straight", ParamBoolean, "Compare directly instead of from the merge base"),
			),
		},
		{
			Name:        "gitlab_list_issues",
			Description: "List issues of a project",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/issues",
			Params: params(
				list(
					projectID(),
					oneOf(optional("state", ParamString, "Return issues with this state"), "opened", "closed", "all"),
					optional("labels", ParamString, "Comma-separated list of label names"),
					optional("search", ParamString, "Search issues by title and description"),
				),
				pagination(),
			),
		},
		{
			Name:        "gitlab_create_issue",
			Description: "Create a new issue in a project",
			Method:      http.MethodPost,
			Path:        "projects/{project_id}/issues",
			Params: list(
				projectID(),
				required("title", ParamString, "Issue title"),
				optional("description", ParamString, "Issue description"),
				optional("labels", ParamString, "Comma-separated list of label names"),
				Param{Name: "assignee_ids", Kind: ParamArray, Items: ParamInteger, Description: "IDs of the users to assign"},
			),
		},
	}
}
