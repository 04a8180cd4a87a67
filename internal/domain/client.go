package domain

import (
	"context"
	"encoding/json"
	"net/url"
)

// GitLabClient issues authenticated calls against the GitLab REST API.
// Implementations are shared by concurrent tool calls and must not keep
// per-request state.
type GitLabClient interface {
	// BaseURL returns the configured API root (e.g. https://gitlab.com/api/v4/).
	BaseURL() string

	// Do performs exactly one HTTP exchange. path is relative to the API root
	// and already percent-encoded. query is sent as the query string and body,
	// when non-nil, as a JSON request body. The decoded response body is
	// returned verbatim; failures are returned as *UpstreamError.
	Do(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error)
}
