package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"gitlab-mcp-server/internal/domain"
)

// gitlabRawPath returns the raw path from a request, handling %2F encoding.
func gitlabRawPath(r *http.Request) string {
	if r.URL.RawPath != "" {
		return r.URL.RawPath
	}
	return r.URL.Path
}

type capturedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// newTestClient starts a server answering with handler and records every
// API request. go-gitlab may send HEAD to the API root to configure its
// rate limiter; those requests are answered but not recorded.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*GitLabClient, func() []capturedRequest) {
	t.Helper()

	var (
		mu       sync.Mutex
		captured []capturedRequest
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}

		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		captured = append(captured, capturedRequest{
			Method: r.Method,
			Path:   gitlabRawPath(r),
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		mu.Unlock()

		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewGitLabClient(server.URL+"/api/v4", "glpat-test-token", nil)
	if err != nil {
		t.Fatalf("failed to create gitlab client: %v", err)
	}

	return client, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), captured...)
	}
}

func TestNewGitLabClient(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		if _, err := NewGitLabClient(domain.DefaultBaseURL, "", nil); err == nil {
			t.Fatal("Expected error for empty token")
		}
	})

	t.Run("default base url", func(t *testing.T) {
		client, err := NewGitLabClient("", "token", nil)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if client.BaseURL() != "https://gitlab.com/api/v4/" {
			t.Errorf("Expected gitlab.com API root, got %s", client.BaseURL())
		}
	})

	t.Run("self-managed", func(t *testing.T) {
		client, err := NewGitLabClient("https://gitlab.example.com/api/v4", "token", nil)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if client.BaseURL() != "https://gitlab.example.com/api/v4/" {
			t.Errorf("Unexpected base URL: %s", client.BaseURL())
		}
	})
}

func TestGitLabClient_Get(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"iid": 1, "title": "x"}]`+"\n")
	})

	query := url.Values{}
	query.Set("state", "opened")
	query.Add("labels[]", "bug")

	payload, err := client.Do(context.Background(), http.MethodGet, "projects/group%2Fproject/merge_requests", query, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(payload) != `[{"iid": 1, "title": "x"}]` {
		t.Errorf("Expected body verbatim, got %s", payload)
	}

	reqs := requests()
	if len(reqs) != 1 {
		t.Fatalf("Expected exactly one API request, got %d", len(reqs))
	}
	req := reqs[0]

	if req.Method != http.MethodGet {
		t.Errorf("Expected GET, got %s", req.Method)
	}
	if req.Path != "/api/v4/projects/group%2Fproject/merge_requests" {
		t.Errorf("Expected escaped project path, got %s", req.Path)
	}
	if req.Header.Get("PRIVATE-TOKEN") != "glpat-test-token" {
		t.Errorf("Expected PRIVATE-TOKEN header, got %q", req.Header.Get("PRIVATE-TOKEN"))
	}
	if req.Query.Get("state") != "opened" || req.Query.Get("labels[]") != "bug" {
		t.Errorf("Unexpected query: %v", req.Query)
	}
	if len(req.Body) != 0 {
		t.Errorf("Expected no body on GET, got %s", req.Body)
	}
}

func TestGitLabClient_PostJSON(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"abc123","notes":[]}`)
	})

	body := map[string]interface{}{
		"body": "Consider a constant here",
		"position": map[string]interface{}{
			"position_type": "text",
			"new_line":      12,
		},
	}

	payload, err := client.Do(context.Background(), http.MethodPost, "projects/1/merge_requests/2/discussions", nil, body)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(payload) != `{"id":"abc123","notes":[]}` {
		t.Errorf("Unexpected payload: %s", payload)
	}

	req := requests()[0]
	if req.Method != http.MethodPost {
		t.Errorf("Expected POST, got %s", req.Method)
	}
	if ct := req.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Expected JSON content type, got %s", ct)
	}

	var sent map[string]interface{}
	if err := json.Unmarshal(req.Body, &sent); err != nil {
		t.Fatalf("Body is not JSON: %v (%s)", err, req.Body)
	}
	if sent["body"] != "Consider a constant here" {
		t.Errorf("Unexpected body: %v", sent)
	}
	position := sent["position"].(map[string]interface{})
	if position["new_line"] != float64(12) {
		t.Errorf("Unexpected position: %v", position)
	}
}

func TestGitLabClient_EmptyResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	payload, err := client.Do(context.Background(), http.MethodDelete, "projects/1/hooks/3", nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(payload) != 0 {
		t.Errorf("Expected empty payload, got %s", payload)
	}
}

func TestGitLabClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"message field", http.StatusNotFound, `{"message":"404 Project Not Found"}`, "404 Project Not Found"},
		{"not found without body", http.StatusNotFound, ``, "404 Not Found"},
		{"forbidden", http.StatusForbidden, `{"message":"403 Forbidden"}`, "403 Forbidden"},
		{"error field", http.StatusUnauthorized, `{"error":"invalid_token","error_description":"Token was revoked"}`, "invalid_token"},
		{"structured message", http.StatusBadRequest, `{"message":{"name":["has already been taken"]}}`, `{"name":["has already been taken"]}`},
		{"plain text", http.StatusBadGateway, `upstream unavailable`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := client.Do(context.Background(), http.MethodGet, "projects/99", nil, nil)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}

			var upErr *domain.UpstreamError
			if !errors.As(err, &upErr) {
				t.Fatalf("Expected *domain.UpstreamError, got %T", err)
			}
			if upErr.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, upErr.StatusCode)
			}
			if string(upErr.Body) != tt.body && !(tt.body == "" && len(upErr.Body) == 0) {
				t.Errorf("Expected body to be kept, got %s", upErr.Body)
			}
			if tt.wantDetail != "" && upErr.Detail != tt.wantDetail {
				t.Errorf("Expected detail %q, got %q", tt.wantDetail, upErr.Detail)
			}
			if upErr.Message() == "" {
				t.Error("Expected a non-empty message")
			}

			if n := len(requests()); n != 1 {
				t.Errorf("Expected exactly one attempt, got %d", n)
			}
		})
	}
}

func TestGitLabClient_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Do(ctx, http.MethodGet, "projects/1", nil, nil)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}

	mapped := domain.NewResponseMapper().MapError(err, "Failed to get project")
	if mapped.Code != domain.UpstreamServiceError {
		t.Errorf("Expected upstream code, got %d", mapped.Code)
	}
}

func TestGitLabClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL + "/api/v4"
	server.Close()

	client, err := NewGitLabClient(baseURL, "token", &http.Client{Timeout: time.Second})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	_, err = client.Do(context.Background(), http.MethodGet, "projects", nil, nil)

	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("Expected *domain.UpstreamError, got %T (%v)", err, err)
	}
	if upErr.StatusCode != 0 {
		t.Errorf("Expected no status for a transport failure, got %d", upErr.StatusCode)
	}
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"message":"403 Forbidden"}`, "403 Forbidden"},
		{`{"message":"","error":"insufficient_scope"}`, "insufficient_scope"},
		{`{"message":["a","b"]}`, `["a","b"]`},
		{`{"other":"x"}`, ""},
		{`not json`, ""},
	}

	for _, tt := range tests {
		if got := errorDetail([]byte(tt.body)); got != tt.want {
			t.Errorf("errorDetail(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestGitLabClient_NotModifiedIsAFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	})

	_, err := client.Do(context.Background(), http.MethodGet, "projects/1", nil, nil)

	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("Expected *domain.UpstreamError, got %T (%v)", err, err)
	}
	if upErr.StatusCode != http.StatusNotModified {
		t.Errorf("Expected status 304, got %d", upErr.StatusCode)
	}
	if upErr.Detail != "304 Not Modified" {
		t.Errorf("Unexpected detail: %q", upErr.Detail)
	}
}

// TestGitLabClient_NotFoundReachesToolMessage checks that the structured
// message of a 404 survives all the way into the mapped JSON-RPC error.
func TestGitLabClient_NotFoundReachesToolMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"404 Project Not Found"}`)
	})

	_, err := client.Do(context.Background(), http.MethodGet, "projects/group%2Fmissing", nil, nil)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	mapped := domain.NewResponseMapper().MapError(err, "Failed to get project")
	if mapped.Code != domain.UpstreamServiceError {
		t.Errorf("Expected upstream code, got %d", mapped.Code)
	}
	if mapped.Message != "Failed to get project: 404 Project Not Found" {
		t.Errorf("Unexpected message: %s", mapped.Message)
	}

	data, ok := mapped.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data map, got %T", mapped.Data)
	}
	if data["statusCode"] != http.StatusNotFound {
		t.Errorf("Expected status 404 in data, got %v", data["statusCode"])
	}
	if body, _ := json.Marshal(data["body"]); string(body) != `{"message":"404 Project Not Found"}` {
		t.Errorf("Expected upstream body in data, got %s", body)
	}
}

func TestNewGitLabClient_HTTPTimeout(t *testing.T) {
	client, err := NewGitLabClient("", "token", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if client.httpClient.Timeout != 0 {
		t.Errorf("Expected calls to be bounded by their context only, got client timeout %s", client.httpClient.Timeout)
	}

	custom := &http.Client{Timeout: 90 * time.Second}
	client, err = NewGitLabClient("", "token", custom)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if client.httpClient.Timeout != 90*time.Second {
		t.Errorf("Expected the given client timeout to be kept, got %s", client.httpClient.Timeout)
	}
	if custom.Transport != nil {
		t.Error("Expected the caller's client to be left untouched")
	}
}

func TestGitLabClient_SlowUpstreamWithinDeadline(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		fmt.Fprint(w, `{"id":1}`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := client.Do(ctx, http.MethodGet, "projects/1", nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(payload) != `{"id":1}` {
		t.Errorf("Unexpected payload: %s", payload)
	}
}
