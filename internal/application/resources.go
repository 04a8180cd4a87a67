package application

import (
	"context"
	"regexp"

	"gitlab-mcp-server/internal/domain"
)

// ProjectsResourceURI is the collection of projects visible to the token.
const ProjectsResourceURI = "gitlab://projects"

const projectsPageSize = 20

var projectResourcePattern = regexp.MustCompile(`^gitlab://projects/(\d+)$`)

// ListResources returns the static resource catalogue.
func ListResources() []domain.Resource {
	return []domain.Resource{
		{
			URI:         ProjectsResourceURI,
			Name:        "GitLab projects",
			Description: "Projects accessible with the configured token; append /<id> to read one project",
			MimeType:    "application/json",
		},
	}
}

// ReadResource resolves uri to a tool call and returns its payload as
// resource contents.
func ReadResource(ctx context.Context, caller domain.ToolCaller, uri string) (*domain.ResourceContents, error) {
	var (
		name string
		args map[string]interface{}
	)

	switch {
	case uri == ProjectsResourceURI:
		name = ToolListProjects
		args = map[string]interface{}{"per_page": projectsPageSize}
	case projectResourcePattern.MatchString(uri):
		id := projectResourcePattern.FindStringSubmatch(uri)[1]
		name = ToolGetProject
		args = map[string]interface{}{"project_id": id}
	default:
		return nil, domain.NewInvalidRequest("Unknown resource: %s", uri)
	}

	payload, err := caller.CallTool(ctx, name, args)
	if err != nil {
		return nil, err
	}

	text, err := domain.CompactPayload(payload)
	if err != nil {
		return nil, domain.Classify(err, "Failed to read resource")
	}

	return &domain.ResourceContents{
		URI:      uri,
		MimeType: "application/json",
		Text:     text,
	}, nil
}
