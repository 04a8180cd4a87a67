package review

import (
	"reflect"
	"testing"
)

const mainDiff = `--- a/main.go
+++ b/main.go
@@ -1,4 +1,5 @@
 package main
-import "fmt"
+import (
+	"fmt"
+)
 func main() {}
@@ -10,2 +11,2 @@ func helper() {
 context
-old
+new
\ No newline at end of file
`

func testChanges() []FileChange {
	return []FileChange{
		{OldPath: "main.go", NewPath: "main.go", Diff: mainDiff},
		{OldPath: "gone.go", NewPath: "gone.go", Diff: "@@ -1,2 +0,0 @@\n-a\n-b\n", DeletedFile: true},
		{OldPath: "old/name.go", NewPath: "new/name.go", Diff: "@@ -3,1 +3,1 @@\n-x\n+y\n", RenamedFile: true},
	}
}

func TestParseHunks(t *testing.T) {
	got := ParseHunks(mainDiff)

	want := []DiffLine{
		{Type: LineUnchanged, OldLine: 1, NewLine: 1},
		{Type: LineDeleted, OldLine: 2},
		{Type: LineNew, NewLine: 2},
		{Type: LineNew, NewLine: 3},
		{Type: LineNew, NewLine: 4},
		{Type: LineUnchanged, OldLine: 3, NewLine: 5},
		{Type: LineUnchanged, OldLine: 10, NewLine: 11},
		{Type: LineDeleted, OldLine: 11},
		{Type: LineNew, NewLine: 12},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseHunks mismatch\ngot:  %+v\nwant: %+v", got, want)
	}
}

func TestParseHunks_NoHunks(t *testing.T) {
	if lines := ParseHunks("Binary files differ\n"); len(lines) != 0 {
		t.Errorf("Expected no lines, got %+v", lines)
	}
	if lines := ParseHunks(""); len(lines) != 0 {
		t.Errorf("Expected no lines for empty diff, got %+v", lines)
	}
}

func TestLineIndex_Type(t *testing.T) {
	ix := BuildLineIndex(testChanges())

	tests := []struct {
		path string
		line int
		want LineType
		ok   bool
	}{
		{"main.go", 1, LineUnchanged, true},
		{"main.go", 2, LineNew, true},
		{"main.go", 5, LineUnchanged, true},
		{"main.go", 12, LineNew, true},
		{"gone.go", 1, LineDeleted, true},
		{"main.go", 40, "", false},
		{"other.go", 1, "", false},
	}

	for _, tt := range tests {
		got, ok := ix.Type(tt.path, tt.line)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Type(%s, %d) = %q, %v; want %q, %v", tt.path, tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLineIndex_OldLine(t *testing.T) {
	ix := BuildLineIndex(testChanges())

	if old, ok := ix.OldLine("main.go", 5); !ok || old != 3 {
		t.Errorf("Expected context line 5 to map to old line 3, got %d, %v", old, ok)
	}
	if old, ok := ix.OldLine("main.go", 11); !ok || old != 10 {
		t.Errorf("Expected context line 11 to map to old line 10, got %d, %v", old, ok)
	}
	if _, ok := ix.OldLine("main.go", 2); ok {
		t.Error("Expected added line to have no old line")
	}
	if old, ok := ix.OldLine("gone.go", 2); !ok || old != 2 {
		t.Errorf("Expected deleted line 2, got %d, %v", old, ok)
	}
}

func TestLineIndex_OldPath(t *testing.T) {
	ix := BuildLineIndex(testChanges())

	if p, ok := ix.OldPath("new/name.go"); !ok || p != "old/name.go" {
		t.Errorf("Expected renamed file to keep its old path, got %q, %v", p, ok)
	}
	if _, ok := ix.OldPath("missing.go"); ok {
		t.Error("Expected unknown file to have no old path")
	}
}

func TestNearestCommentableLine(t *testing.T) {
	visible := BuildLineIndex(testChanges()).Visible()

	if got := SortedLines(visible["main.go"]); !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5, 11, 12}) {
		t.Errorf("Unexpected visible lines: %v", got)
	}
	if got := SortedLines(visible["gone.go"]); len(got) != 0 {
		t.Errorf("Expected a deleted file to have no visible lines, got %v", got)
	}

	tests := []struct {
		path string
		line int
		want int
		ok   bool
	}{
		{"main.go", 3, 3, true},
		{"main.go", 9, 5, true},
		{"main.go", 100, 12, true},
		{"main.go", 0, 0, false},
		{"gone.go", 1, 0, false},
		{"unknown.go", 5, 0, false},
	}

	for _, tt := range tests {
		got, ok := NearestCommentableLine(tt.path, tt.line, visible)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NearestCommentableLine(%s, %d) = %d, %v; want %d, %v", tt.path, tt.line, got, ok, tt.want, tt.ok)
		}
	}
}
