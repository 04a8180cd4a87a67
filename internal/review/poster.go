package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gitlab-mcp-server/internal/domain"
)

const (
	toolGetMergeRequest          = "gitlab_get_merge_request"
	toolGetMergeRequestChanges   = "gitlab_get_merge_request_changes"
	toolCreateMergeRequestThread = "gitlab_create_merge_request_thread"
)

// ErrMissingDiffRefs is returned when the merge request has no diff_refs,
// e.g. while GitLab is still computing its diff.
var ErrMissingDiffRefs = errors.New("merge request has no diff_refs (base_sha, start_sha, head_sha)")

// Status is the outcome of posting one comment.
type Status string

const (
	StatusPosted  Status = "posted"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// PostResult reports what happened to one comment.
type PostResult struct {
	Index        int     `json:"index"`
	Comment      Comment `json:"comment"`
	Status       Status  `json:"status"`
	Reason       string  `json:"reason,omitempty"`
	DiscussionID string  `json:"discussion_id,omitempty"`
	LineCode     string  `json:"line_code,omitempty"`
}

// DiffRefs are the three SHAs that anchor a diff position.
type DiffRefs struct {
	BaseSHA  string `json:"base_sha"`
	StartSHA string `json:"start_sha"`
	HeadSHA  string `json:"head_sha"`
}

func (r DiffRefs) complete() bool {
	return r.BaseSHA != "" && r.StartSHA != "" && r.HeadSHA != ""
}

// Poster posts review comments as merge request threads through a ToolCaller.
type Poster struct {
	caller domain.ToolCaller
	logger *slog.Logger

	// SnapToVisible moves comments on lines outside the diff to the nearest
	// visible line above them. Comments with no such line are skipped.
	SnapToVisible bool
}

// NewPoster creates a Poster. logger may be nil.
func NewPoster(caller domain.ToolCaller, logger *slog.Logger) *Poster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poster{caller: caller, logger: logger}
}

// PostComments posts every complete comment on the merge request. A failure
// on one comment is recorded in its result and does not stop the batch; only
// failing to load the merge request itself returns an error.
func (p *Poster) PostComments(ctx context.Context, projectID string, mrIID int, comments []Comment) ([]PostResult, error) {
	refs, err := p.diffRefs(ctx, projectID, mrIID)
	if err != nil {
		return nil, err
	}

	index, err := p.lineIndex(ctx, projectID, mrIID)
	if err != nil {
		return nil, err
	}

	p.logger.Info("posting review comments",
		"project_id", projectID,
		"merge_request_iid", mrIID,
		"comments", len(comments),
	)

	results := make([]PostResult, 0, len(comments))
	for i, c := range comments {
		result := p.postOne(ctx, projectID, mrIID, refs, index, c)
		result.Index = i + 1
		results = append(results, result)

		switch result.Status {
		case StatusPosted:
			p.logger.Info("comment posted", "index", result.Index, "discussion_id", result.DiscussionID)
		case StatusSkipped:
			p.logger.Warn("comment skipped", "index", result.Index, "reason", result.Reason)
		default:
			p.logger.Error("comment failed", "index", result.Index, "error", result.Reason)
		}
	}

	return results, nil
}

func (p *Poster) postOne(ctx context.Context, projectID string, mrIID int, refs DiffRefs, index *LineIndex, c Comment) PostResult {
	if c.NewPath == "" || c.Line <= 0 || c.Comment == "" {
		return PostResult{Comment: c, Status: StatusSkipped, Reason: "missing new_path, line or comment"}
	}

	if p.SnapToVisible {
		line, ok := NearestCommentableLine(c.NewPath, c.Line, index.Visible())
		if !ok {
			p.logger.Debug("no visible line to snap to", "path", c.NewPath, "line", c.Line,
				"visible", SortedLines(index.Visible()[c.NewPath]))
			return PostResult{Comment: c, Status: StatusSkipped, Reason: fmt.Sprintf("no visible line at or above %s:%d", c.NewPath, c.Line)}
		}
		c.Line = line
	}

	if c.Type == "" {
		if t, ok := index.Type(c.NewPath, c.Line); ok {
			c.Type = t
		} else {
			p.logger.Warn("could not determine line type", "path", c.NewPath, "line", c.Line)
		}
	}

	if c.Type == LineDeleted || c.Type == LineUnchanged {
		if old, ok := index.OldLine(c.NewPath, c.Line); ok {
			c.OldLine = old
		}
	}

	if c.OldPath == "" {
		if old, ok := index.OldPath(c.NewPath); ok && old != "" {
			c.OldPath = old
		}
	}

	positionType := c.PositionType
	if positionType == "" {
		positionType = "text"
	}

	args := map[string]interface{}{
		"project_id":        projectID,
		"merge_request_iid": mrIID,
		"body":              c.Comment,
		"position_type":     positionType,
		"base_sha":          refs.BaseSHA,
		"start_sha":         refs.StartSHA,
		"head_sha":          refs.HeadSHA,
		"new_path":          c.NewPath,
		"new_line":          c.Line,
	}
	if c.OldPath != "" {
		args["old_path"] = c.OldPath
	}
	if c.OldLine > 0 {
		args["old_line"] = c.OldLine
	}

	result := PostResult{Comment: c, LineCode: LineCode(c.NewPath, c.OldLine, c.Line)}

	payload, err := p.caller.CallTool(ctx, toolCreateMergeRequestThread, args)
	if err != nil {
		result.Status = StatusFailed
		result.Reason = err.Error()
		return result
	}

	var discussion struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &discussion); err != nil {
		p.logger.Warn("unexpected thread response", "error", err)
	}

	result.Status = StatusPosted
	result.DiscussionID = discussion.ID
	return result
}

func (p *Poster) diffRefs(ctx context.Context, projectID string, mrIID int) (DiffRefs, error) {
	payload, err := p.caller.CallTool(ctx, toolGetMergeRequest, map[string]interface{}{
		"project_id":        projectID,
		"merge_request_iid": mrIID,
	})
	if err != nil {
		return DiffRefs{}, fmt.Errorf("failed to load merge request: %w", err)
	}

	var mr struct {
		DiffRefs *DiffRefs `json:"diff_refs"`
	}
	if err := json.Unmarshal(payload, &mr); err != nil {
		return DiffRefs{}, fmt.Errorf("failed to decode merge request: %w", err)
	}

	if mr.DiffRefs == nil || !mr.DiffRefs.complete() {
		return DiffRefs{}, ErrMissingDiffRefs
	}
	return *mr.DiffRefs, nil
}

func (p *Poster) lineIndex(ctx context.Context, projectID string, mrIID int) (*LineIndex, error) {
	payload, err := p.caller.CallTool(ctx, toolGetMergeRequestChanges, map[string]interface{}{
		"project_id":        projectID,
		"merge_request_iid": mrIID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load merge request changes: %w", err)
	}

	var mr struct {
		Changes []FileChange `json:"changes"`
	}
	if err := json.Unmarshal(payload, &mr); err != nil {
		return nil, fmt.Errorf("failed to decode merge request changes: %w", err)
	}

	return BuildLineIndex(mr.Changes), nil
}
