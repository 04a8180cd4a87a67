package application

import "net/http"

func mergeRequestIID() Param {
	return required("merge_request_iid", ParamID, "Internal ID of the merge request")
}

func mergeRequestTools() []Tool {
	return []Tool{
		{
			Name:        "gitlab_list_merge_requests",
			Description: "List merge requests of a project",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/merge_requests",
			Params: params(
				list(
					projectID(),
					oneOf(optional("state", ParamString, "Return merge requests with this state"), "opened", "closed", "locked", "merged", "all"),
					oneOf(optional("scope", ParamString, "Return merge requests for the given scope"), "created_by_me", "assigned_to_me", "all"),
					optional("source_branch", ParamString, "Filter by source branch"),
					optional("target_branch", ParamString, "Filter by target branch"),
				),
				pagination(),
			),
		},
		{
			Name:        ToolGetMergeRequest,
			Description: "Get details of a merge request, including its diff_refs",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/merge_requests/{merge_request_iid}",
			Params:      list(projectID(), mergeRequestIID()),
		},
		{
			Name:        ToolGetMergeRequestChanges,
			Description: "Get a merge request with the diff of every changed file",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/merge_requests/{merge_request_iid}/changes",
			Params:      list(projectID(), mergeRequestIID()),
		},
		{
			Name:        "gitlab_create_merge_request",
			Description: "Create a new merge request",
			Method:      http.MethodPost,
			Path:        "projects/{project_id}/merge_requests",
			Params: list(
				projectID(),
				required("source_branch", ParamString, "Source branch"),
				required("target_branch", ParamString, "Target branch"),
				required("title", ParamString, "Merge request title"),
				optional("description", ParamString, "Merge request description"),
				optional("remove_source_branch", ParamBoolean, "Remove the source branch after merge"),
				optional("squash", ParamBoolean, "Squash commits on merge"),
			),
		},
		{
			Name:        "gitlab_update_merge_request",
			Description: "Update the title or description of a merge request",
			Method:      http.MethodPut,
			Path:        "projects/{project_id}/merge_requests/{merge_request_iid}",
			Params: list(
				projectID(),
				mergeRequestIID(),
				optional("title", ParamString, "New title"),
				optional("description", ParamString, "New description"),
				optional("target_branch", ParamString, "New target branch"),
				oneOf(optional("state_event", ParamString, "Close or reopen the merge request"), "close", "reopen"),
			),
			Check: atLeastOne("title", "description"),
		},
		{
			Name:        "gitlab_list_merge_request_notes",
			Description: "List comments on a merge request",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/merge_requests/{merge_request_iid}/notes",
			Params: list(
				projectID(),
				mergeRequestIID(),
				oneOf(optional("sort", ParamString, "Sort direction"), "asc", "desc"),
				oneOf(optional("order_by", ParamString, "Sort field"), "created_at", "updated_at"),
			),
		},
		{
			Name:        "gitlab_create_merge_request_note",
			Description: "Add a comment to a merge request",
			Method:      http.MethodPost,
			Path:        "projects/{project_id}/merge_requests/{merge_request_iid}/notes",
			Params: list(
				projectID(),
				mergeRequestIID(),
				required("body", ParamString, "Comment text"),
			),
		},
		{
			Name:        "gitlab_list_merge_request_discussions",
			Description: "List discussion threads on a merge request",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/merge_requests/{merge_request_iid}/discussions",
			Params:      list(projectID(), mergeRequestIID()),
		},
		{
			Name:        ToolCreateMergeRequestThread,
			Description: "Start a discussion thread on a specific line or image of a merge request diff",
			Method:      http.MethodPost,
			Path:        "projects/{project_id}/merge_requests/{merge_request_iid}/discussions",
			Params: list(
				projectID(),
				mergeRequestIID(),
				required("body", ParamString, "Thread text"),
				oneOf(required("position_type", ParamString, "Type of the position reference"), "text", "image"),
				required("base_sha", ParamString, "Base commit SHA in the source branch"),
				required("start_sha", ParamString, "SHA of the commit in the target branch"),
				required("head_sha", ParamString, "SHA of the head of the merge request"),
				optional("new_path", ParamString, "File path after the change"),
				optional("old_path", ParamString, "File path before the change"),
				optional("new_line", ParamInteger, "Line number after the change"),
				optional("old_line", ParamInteger, "Line number before the change"),
				Param{Name: "line_range", Kind: ParamObject, Description: "Line range of a multi-line comment, passed through as given"},
				optional("width", ParamNumber, "Image width (image positions only)"),
				optional("height", ParamNumber, "Image height (image positions only)"),
				optional("x", ParamNumber, "X coordinate (image positions only)"),
				optional("y", ParamNumber, "Y coordinate (image positions only)"),
				optional("created_at", ParamString, "Creation date in ISO 8601 format"),
			),
			Body: threadBody,
		},
	}
}

var (
	positionPathFields  = []string{"new_path", "old_path"}
	positionLineFields  = []string{"new_line", "old_line"}
	positionImageFields = []string{"width", "height", "x", "y"}
)

// threadBody builds {body, position, created_at?}. The base position fields
// are always sent; file and line fields only when given; image geometry only
// for image positions.
func threadBody(args map[string]interface{}) (interface{}, error) {
	positionType, err := getStringParam(args, "position_type", true)
	if err != nil {
		return nil, err
	}

	position := map[string]interface{}{
		"position_type": positionType,
		"base_sha":      args["base_sha"],
		"start_sha":     args["start_sha"],
		"head_sha":      args["head_sha"],
	}

	copyPresent(position, args, positionPathFields)

	for _, name := range positionLineFields {
		line, err := getIntParam(args, name, false)
		if err != nil {
			return nil, err
		}
		if _, ok := args[name]; ok && args[name] != nil {
			position[name] = line
		}
	}

	if positionType == "image" {
		copyPresent(position, args, positionImageFields)
	}

	if lineRange, ok := args["line_range"]; ok && lineRange != nil {
		position["line_range"] = lineRange
	}

	body := map[string]interface{}{
		"body":     args["body"],
		"position": position,
	}
	if createdAt, ok := args["created_at"]; ok && createdAt != nil {
		body["created_at"] = createdAt
	}

	return body, nil
}

func copyPresent(dst, src map[string]interface{}, names []string) {
	for _, name := range names {
		if v, ok := src[name]; ok && v != nil {
			dst[name] = v
		}
	}
}
