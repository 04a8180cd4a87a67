package application

import "net/http"

func triggerID() Param {
	return required("trigger_id", ParamID, "ID of the pipeline trigger token")
}

func scheduleID() Param {
	return required("pipeline_schedule_id", ParamID, "ID of the pipeline schedule")
}

func variableFields() []Param {
	return []Param{
		oneOf(optional("variable_type", ParamString, "Type of the variable"), "env_var", "file"),
		optional("protected", ParamBoolean, "Only expose the variable on protected branches and tags"),
		optional("masked", ParamBoolean, "Mask the variable in job logs"),
		optional("raw", ParamBoolean, "Do not expand variable references in the value"),
		optional("environment_scope", ParamString, "Environment scope of the variable"),
	}
}

func cicdTools() []Tool {
	return []Tool{
		{
			Name:        "gitlab_list_trigger_tokens",
			Description: "List the pipeline trigger tokens of a project",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/triggers",
			Params:      list(projectID()),
		},
		{
			Name:        "gitlab_get_trigger_token",
			Description: "Get a pipeline trigger token",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/triggers/{trigger_id}",
			Params:      list(projectID(), triggerID()),
		},
		{
			Name:        "gitlab_create_trigger_token",
			Description: "Create a pipeline trigger token",
			Method:      http.MethodPost,
			Path:        "projects/{project_id}/triggers",
			Params: list(
				projectID(),
				required("description", ParamString, "Trigger description"),
			),
		},
		{
			Name:        "gitlab_update_trigger_token",
			Description: "Update the description of a pipeline trigger token",
			Method:      http.MethodPut,
			Path:        "projects/{project_id}/triggers/{trigger_id}",
			Params: list(
				projectID(),
				triggerID(),
				required("description", ParamString, "Trigger description"),
			),
		},
		{
			Name:        "gitlab_delete_trigger_token",
			Description: "Delete a pipeline trigger token",
			Method:      http.MethodDelete,
			Path:        "projects/{project_id}/triggers/{trigger_id}",
			Params:      list(projectID(), triggerID()),
		},
		{
			Name:        "gitlab_trigger_pipeline",
			Description: "Trigger a pipeline with a trigger token",
			Method:      http.MethodPost,
			Path:        "projects/{project_id}/trigger/pipeline",
			Params: list(
				projectID(),
				required("ref", ParamString, "Branch or tag to run the pipeline on"),
				required("token", ParamString, "Trigger token"),
				Param{Name: "variables", Kind: ParamObject, Description: "Pipeline variables as key/value pairs"},
			),
		},
		{
			Name:        "gitlab_list_cicd_variables",
			Description: "List the CI/CD variables of a project",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/variables",
			Params:      list(projectID()),
		},
		{
			Name:        "gitlab_get_cicd_variable",
			Description: "Get a project CI/CD variable",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/variables/{key}",
			Params: list(
				projectID(),
				required("key", ParamString, "Variable key"),
			),
		},
		{
			Name:        "gitlab_create_cicd_variable",
			Description: "Create a project CI/CD variable",
			Method:      http.MethodPost,
			Path:        "projects/{project_id}/variables",
			Params: params(
				list(
					projectID(),
					required("key", ParamString, "Variable key"),
					required("value", ParamString, "Variable value"),
				),
				variableFields(),
			),
		},
		{
			Name:        "gitlab_update_cicd_variable",
			Description: "Update a project CI/CD variable",
			Method:      http.MethodPut,
			Path:        "projects/{project_id}/variables/{key}",
			Params: params(
				list(
					projectID(),
					required("key", ParamString, "Variable key"),
					required("value", ParamString, "Variable value"),
				),
				variableFields(),
			),
		},
		{
			Name:        "gitlab_delete_cicd_variable",
			Description: "Delete a project CI/CD variable",
			Method:      http.MethodDelete,
			Path:        "projects/{project_id}/variables/{key}",
			Params: list(
				projectID(),
				required("key", ParamString, "Variable key"),
			),
		},
		{
			Name:        "gitlab_list_pipeline_schedules",
			Description: "List the pipeline schedules of a project",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/pipeline_schedules",
			Params: list(
				projectID(),
				oneOf(optional("scope", ParamString, "Filter by schedule state"), "active", "inactive"),
			),
		},
		{
			Name:        "gitlab_get_pipeline_schedule",
			Description: "Get a pipeline schedule",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/pipeline_schedules/{pipeline_schedule_id}",
			Params:      list(projectID(), scheduleID()),
		},
		{
			Name:        "gitlab_create_pipeline_schedule",
			Description: "Create a pipeline schedule",
			Method:      http.MethodPost,
			Path:        "projects/{project_id}/pipeline_schedules",
			Params: list(
				projectID(),
				required("description", ParamString, "Schedule description"),
				required("ref", ParamString, "Branch or tag to run"),
				required("cron", ParamString, "Five-field cron expression (e.g. 0 1 * * *)"),
				optional("cron_timezone", ParamString, "Timezone of the cron expression (e.g. UTC)"),
				optional("active", ParamBoolean, "Activate the schedule"),
			),
			Check: validCron("cron"),
		},
		{
			Name:        "gitlab_update_pipeline_schedule",
			Description: "Update a pipeline schedule",
			Method:      http.MethodPut,
			Path:        "projects/{project_id}/pipeline_schedules/{pipeline_schedule_id}",
			Params: list(
				projectID(),
				scheduleID(),
				optional("description", ParamString, "Schedule description"),
				optional("ref", ParamString, "Branch or tag to run"),
				optional("cron", ParamString, "Five-field cron expression"),
				optional("cron_timezone", ParamString, "Timezone of the cron expression"),
				optional("active", ParamBoolean, "Activate or deactivate the schedule"),
			),
			Check: checks(
				atLeastOne("description", "ref", "cron", "cron_timezone", "active"),
				validCron("cron"),
			),
		},
		{
			Name:        "gitlab_delete_pipeline_schedule",
			Description: "Delete a pipeline schedule",
			Method:      http.MethodDelete,
			Path:        "projects/{project_id}/pipeline_schedules/{pipeline_schedule_id}",
			Params:      list(projectID(), scheduleID()),
		},
		{
			Name:        "gitlab_list_project_runners",
			Description: "List the runners available to a project",
			Method:      http.MethodGet,
			Path:        "projects/{project_id}/runners",
			Params: list(
				projectID(),
				oneOf(optional("type", ParamString, "Runner type"), "instance_type", "group_type", "project_type"),
				oneOf(optional("status", ParamString, "Runner status"), "online", "offline", "stale", "never_contacted"),
			),
		},
		{
			Name:        "gitlab_enable_project_runner",
			Description: "Assign an existing runner to a project",
			Method:      http.MethodPost,
			Path:        "projects/{project_id}/runners",
			Params: list(
				projectID(),
				required("runner_id", ParamInteger, "ID of the runner"),
			),
		},
		{
			Name:        "gitlab_disable_project_runner",
			Description: "Unassign a runner from a project",
			Method:      http.MethodDelete,
			Path:        "projects/{project_id}/runners/{runner_id}",
			Params: list(
				projectID(),
				required("runner_id", ParamID, "ID of the runner"),
			),
		},
	}
}
