package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	gitlab "github.com/xanzy/go-gitlab"

	"gitlab-mcp-server/internal/domain"
)

// GitLabClient handles GitLab REST API v4 interactions.
// It wraps a go-gitlab client for authentication, base URL handling and
// request encoding, and hands back raw response bodies.
type GitLabClient struct {
	client     *gitlab.Client
	httpClient *http.Client
}

// NewGitLabClient creates a client for the API at baseURL authenticated with
// a private token. Retries are disabled: each call is exactly one exchange.
// httpClient may be nil; calls are then bounded only by their context, so
// the configured per-call timeout is the one that applies.
func NewGitLabClient(baseURL, token string, httpClient *http.Client) (*GitLabClient, error) {
	if token == "" {
		return nil, errors.New("GitLab access token is required")
	}

	if httpClient == nil {
		httpClient = &http.Client{}
	}

	next := httpClient.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := *httpClient
	wrapped.Transport = &errorBodyTransport{next: next}

	opts := []gitlab.ClientOptionFunc{
		gitlab.WithoutRetries(),
		gitlab.WithHTTPClient(&wrapped),
	}
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(baseURL))
	}

	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	return &GitLabClient{client: client, httpClient: &wrapped}, nil
}

// BaseURL returns the normalized API root, ending in /api/v4/.
func (c *GitLabClient) BaseURL() string {
	return c.client.BaseURL().String()
}

// Do performs one request. path must already be escaped; it is sent as the
// raw path so encoded slashes in identifiers stay inside their segment.
func (c *GitLabClient) Do(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	sink := &responseSink{}
	ctx = context.WithValue(ctx, responseSinkKey{}, sink)

	options := []gitlab.RequestOptionFunc{gitlab.WithContext(ctx)}
	if len(query) > 0 {
		options = append(options, withQuery(query))
	}

	req, err := c.client.NewRequest(method, strings.TrimPrefix(path, "/"), body, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var buf bytes.Buffer
	resp, err := c.client.Do(req, &buf)
	if err != nil {
		return nil, upstreamError(resp, sink, err)
	}

	// go-gitlab accepts 304 as success; a tool call has no cached copy to fall back on.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp, sink, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return json.RawMessage(bytes.TrimSpace(buf.Bytes())), nil
}

type responseSinkKey struct{}

// responseSink receives the status and, for failures, the body of the
// last exchange made with its request context.
type responseSink struct {
	status int
	body   []byte
}

// errorBodyTransport keeps a copy of non-2xx response bodies for the
// request's responseSink. go-gitlab discards the body of a 404 and
// returns a bare ErrNotFound.
type errorBodyTransport struct {
	next http.RoundTripper
}

func (t *errorBodyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	sink, ok := req.Context().Value(responseSinkKey{}).(*responseSink)
	if !ok {
		return resp, nil
	}

	sink.status = resp.StatusCode
	sink.body = nil
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, nil
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read error response: %w", err)
	}
	sink.body = data
	resp.Body = io.NopCloser(bytes.NewReader(data))

	return resp, nil
}

// withQuery replaces the query string. go-gitlab only encodes option
// structs, so arbitrary tool arguments are set directly on the URL.
func withQuery(query url.Values) gitlab.RequestOptionFunc {
	return func(req *retryablehttp.Request) error {
		req.URL.RawQuery = query.Encode()
		return nil
	}
}

// upstreamError converts a go-gitlab failure into a domain.UpstreamError,
// keeping the most specific message the API returned.
func upstreamError(resp *gitlab.Response, sink *responseSink, err error) error {
	upErr := &domain.UpstreamError{Err: err}

	if resp != nil && resp.Response != nil {
		upErr.StatusCode = resp.StatusCode
		upErr.Body = sink.body
	}

	var errResp *gitlab.ErrorResponse
	if errors.As(err, &errResp) {
		if len(upErr.Body) == 0 {
			upErr.Body = errResp.Body
		}
		if errResp.Response != nil {
			upErr.StatusCode = errResp.Response.StatusCode
		}
		upErr.Detail = errResp.Message
	}

	if detail := errorDetail(upErr.Body); detail != "" {
		upErr.Detail = detail
	}
	if upErr.Detail == "" && upErr.StatusCode != 0 {
		upErr.Detail = fmt.Sprintf("%d %s", upErr.StatusCode, http.StatusText(upErr.StatusCode))
	}

	return upErr
}

// errorDetail extracts the "message" or "error" field of a GitLab error
// body. Structured messages (validation maps) are rendered as compact JSON.
func errorDetail(body []byte) string {
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}

	for _, key := range []string{"message", "error"} {
		value, ok := parsed[key]
		if !ok || value == nil {
			continue
		}
		if s, ok := value.(string); ok {
			if s != "" {
				return s
			}
			continue
		}
		data, err := json.Marshal(value)
		if err == nil {
			return string(data)
		}
	}

	return ""
}
