package application

import "net/http"

func hookID() Param {
	return required("hook_id", ParamID, "ID of the project webhook")
}

// webhookFlags are the event toggles shared by add and update.
func webhookFlags() []Param {
	return []Param{
		optional("token", ParamString, "Secret token sent in the X-Gitlab-Token header"),
		optional("push_events", ParamBoolean, "Trigger on push events"),
		optional("merge_requests_events", ParamBoolean, "Trigger on merge request events"),
		optional("issues_events", ParamBoolean, "Trigger on issue events"),
		optional("pipeline_events", ParamBoolean, "Trigger on pipeline events"),
		optional("tag_push_events", ParamBoolean, "Trigger on tag push events"),
		optional("note_events", ParamBoolean, "Trigger on comment events"),
		optional("enable_ssl_verification", ParamBoolean, "Verify SSL certificates when triggering"),
	}
}

var webhookTriggers = []any{
	"push_events",
	"tag_push_events",
	"issues_events",
	"confidential_issues_events",
	"note_events",
	"merge_requests_events",
	"job_events",
	"pipeline_events",
	"wiki_page_events",
	"releases_events",
	"emoji_events",
	"resource_access_token_events",
}

func integrationTools() []Tool {
	return []Tool{
		{
			Name:        "gitlab_list_integrations",
			Description: "List all active integrations of a project",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/integrations",
			Params:      list(projectID()),
		},
		{
			Name:        "gitlab_get_integration",
			Description: "Get the settings of a project integration (e.g. slack, jira)",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/integrations/{integration}",
			Params: list(
				projectID(),
				required("integration", ParamString, "Integration slug"),
			),
		},
		{
			Name:        "gitlab_update_slack_integration",
			Description: "Configure the Slack notifications integration of a project",
			Method:      http.MethodPut,
			Path:        "projects/{project_id}/integrations/slack",
			Params: list(
				projectID(),
				required("webhook", ParamString, "Slack incoming webhook URL"),
				optional("username", ParamString, "Username shown in Slack"),
				optional("channel", ParamString, "Default channel"),
				optional("notify_only_broken_pipelines", ParamBoolean, "Only notify about broken pipelines"),
				optional("push_events", ParamBoolean, "Notify on push events"),
				optional("merge_requests_events", ParamBoolean, "Notify on merge request events"),
				optional("pipeline_events", ParamBoolean, "Notify on pipeline events"),
			),
		},
		{
			Name:        "gitlab_disable_slack_integration",
			Description: "Disable the Slack notifications integration of a project",
			Method:      http.MethodDelete,
			Path:        "projects/{project_id}/integrations/slack",
			Params:      list(projectID()),
		},
		{
			Name:        "gitlab_list_webhooks",
			Description: "List the webhooks of a project",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/hooks",
			Params:      list(projectID()),
		},
		{
			Name:        "gitlab_get_webhook",
			Description: "Get a project webhook",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/hooks/{hook_id}",
			Params:      list(projectID(), hookID()),
		},
		{
			Name:        "gitlab_add_webhook",
			Description: "Add a webhook to a project",
			Method:      http.MethodPost,
			Path:        "projects/{project_id}/hooks",
			Params: params(
				list(
					projectID(),
					required("url", ParamString, "Hook URL"),
				),
				webhookFlags(),
			),
		},
		{
			Name:        "gitlab_update_webhook",
			Description: "Update a project webhook",
			Method:      http.MethodPut,
			Path:        "projects/{project_id}/hooks/{hook_id}",
			Params: params(
				list(
					projectID(),
					hookID(),
					required("url", ParamString, "Hook URL"),
				),
				webhookFlags(),
			),
		},
		{
			Name:        "gitlab_delete_webhook",
			Description: "Delete a project webhook",
			Method:      http.MethodDelete,
			Path:        "projects/{project_id}/hooks/{hook_id}",
			Params:      list(projectID(), hookID()),
		},
		{
			Name:        "gitlab_test_webhook",
			Description: "Trigger a test event for a project webhook",
			Method:      http.MethodPost,
			Path:        "projects/{project_id}/hooks/{hook_id}/test/{trigger}",
			Params: list(
				projectID(),
				hookID(),
				withDefault(oneOf(optional("trigger", ParamString, "Event type to test"), webhookTriggers...), "push_events"),
			),
		},
	}
}
