// Package review maps merge request diffs to commentable lines and posts
// line comments from a review text as merge request threads.
package review

import (
	"bufio"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// LineType classifies a diff line relative to the new file.
type LineType string

const (
	LineNew       LineType = "new"
	LineDeleted   LineType = "deleted"
	LineUnchanged LineType = "unchanged"
)

// FileChange is one entry of a merge request's changes list.
type FileChange struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	Diff        string `json:"diff"`
	NewFile     bool   `json:"new_file"`
	RenamedFile bool   `json:"renamed_file"`
	DeletedFile bool   `json:"deleted_file"`
}

// DiffLine is a line inside a hunk. OldLine is zero for added lines and
// NewLine is zero for deleted lines.
type DiffLine struct {
	Type    LineType
	OldLine int
	NewLine int
}

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// ParseHunks walks a unified diff and numbers every hunk line.
// Lines before the first hunk header and "\ No newline" markers are ignored.
func ParseHunks(diff string) []DiffLine {
	var (
		lines   []DiffLine
		oldLine int
		newLine int
		inHunk  bool
	)

	scanner := bufio.NewScanner(strings.NewReader(diff))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		text := scanner.Text()

		if m := hunkHeader.FindStringSubmatch(text); m != nil {
			oldLine, _ = strconv.Atoi(m[1])
			newLine, _ = strconv.Atoi(m[2])
			inHunk = true
			continue
		}

		if !inHunk || strings.HasPrefix(text, `\`) {
			continue
		}

		switch {
		case strings.HasPrefix(text, "+"):
			lines = append(lines, DiffLine{Type: LineNew, NewLine: newLine})
			newLine++
		case strings.HasPrefix(text, "-"):
			lines = append(lines, DiffLine{Type: LineDeleted, OldLine: oldLine})
			oldLine++
		default:
			lines = append(lines, DiffLine{Type: LineUnchanged, OldLine: oldLine, NewLine: newLine})
			oldLine++
			newLine++
		}
	}

	return lines
}

type lineKey struct {
	path string
	line int
}

// LineIndex answers line questions about a set of file changes.
type LineIndex struct {
	newSide  map[lineKey]DiffLine
	oldSide  map[lineKey]DiffLine
	visible  map[string]map[int]bool
	oldPaths map[string]string
}

// BuildLineIndex indexes every hunk line of changes by file path.
func BuildLineIndex(changes []FileChange) *LineIndex {
	ix := &LineIndex{
		newSide:  make(map[lineKey]DiffLine),
		oldSide:  make(map[lineKey]DiffLine),
		visible:  make(map[string]map[int]bool),
		oldPaths: make(map[string]string),
	}

	for _, change := range changes {
		path := change.NewPath
		ix.oldPaths[path] = change.OldPath
		visible := make(map[int]bool)

		for _, line := range ParseHunks(change.Diff) {
			if line.Type == LineDeleted {
				ix.oldSide[lineKey{path, line.OldLine}] = line
				continue
			}
			ix.newSide[lineKey{path, line.NewLine}] = line
			visible[line.NewLine] = true
		}

		ix.visible[path] = visible
	}

	return ix
}

// Type returns the type of line in path. New-side lines take precedence;
// otherwise a deleted line with that old number is reported.
func (ix *LineIndex) Type(path string, line int) (LineType, bool) {
	if l, ok := ix.newSide[lineKey{path, line}]; ok {
		return l.Type, true
	}
	if l, ok := ix.oldSide[lineKey{path, line}]; ok {
		return l.Type, true
	}
	return "", false
}

// OldLine returns the old-side number of a context line, or of a deleted
// line addressed by its old number.
func (ix *LineIndex) OldLine(path string, line int) (int, bool) {
	if l, ok := ix.newSide[lineKey{path, line}]; ok {
		if l.Type == LineUnchanged {
			return l.OldLine, true
		}
		return 0, false
	}
	if l, ok := ix.oldSide[lineKey{path, line}]; ok {
		return l.OldLine, true
	}
	return 0, false
}

// OldPath returns the pre-change path of a file, if it is part of the index.
func (ix *LineIndex) OldPath(path string) (string, bool) {
	p, ok := ix.oldPaths[path]
	return p, ok
}

// Visible returns the commentable new-side lines of every file.
func (ix *LineIndex) Visible() map[string]map[int]bool {
	return ix.visible
}

// NearestCommentableLine returns the largest visible line <= line in path.
func NearestCommentableLine(path string, line int, visible map[string]map[int]bool) (int, bool) {
	lines, ok := visible[path]
	if !ok {
		return 0, false
	}

	best, found := 0, false
	for l := range lines {
		if l <= line && (!found || l > best) {
			best, found = l, true
		}
	}
	return best, found
}

// SortedLines returns the keys of a visible-line set in ascending order.
func SortedLines(lines map[int]bool) []int {
	out := make([]int, 0, len(lines))
	for l := range lines {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}
