package review

import (
	"encoding/json"
	"testing"
)

func TestExtractComments(t *testing.T) {
	t.Run("last array wins", func(t *testing.T) {
		text := "Draft: [{\"new_path\": \"draft.go\", \"line\": 1, \"comment\": \"ignore\"}]\n\n" +
			"## Summary\nLooks good overall.\n\n```json\n[\n" +
			"  {\"new_path\": \"main.go\", \"line\": 12, \"comment\": \"Handle the error\"},\n" +
			"  {\"new_path\": \"util.go\", \"old_path\": \"helpers.go\", \"line\": \"7\", \"comment\": \"Rename\", \"type\": \"new\"}\n" +
			"]\n```\n"

		comments := ExtractComments(text)
		if len(comments) != 2 {
			t.Fatalf("Expected 2 comments, got %d: %+v", len(comments), comments)
		}

		first := comments[0]
		if first.NewPath != "main.go" || first.Line != 12 || first.Comment != "Handle the error" {
			t.Errorf("Unexpected first comment: %+v", first)
		}

		second := comments[1]
		if second.Line != 7 {
			t.Errorf("Expected string line to be parsed, got %d", second.Line)
		}
		if second.OldPath != "helpers.go" || second.Type != LineNew {
			t.Errorf("Unexpected second comment: %+v", second)
		}
	})

	t.Run("no array", func(t *testing.T) {
		if comments := ExtractComments("No inline comments this time."); comments != nil {
			t.Errorf("Expected nil, got %+v", comments)
		}
	})

	t.Run("malformed array", func(t *testing.T) {
		if comments := ExtractComments(`[{"new_path": "a.go", line: 3}]`); comments != nil {
			t.Errorf("Expected nil, got %+v", comments)
		}
	})

	t.Run("non-object element", func(t *testing.T) {
		text := `[{"new_path": "a.go", "line": 1, "comment": "x"}, 3, {"new_path": "b.go", "line": 2, "comment": "y"}]`
		if comments := ExtractComments(text); comments != nil {
			t.Errorf("Expected nil, got %+v", comments)
		}
	})

	t.Run("non-numeric line", func(t *testing.T) {
		if comments := ExtractComments(`[{"new_path": "a.go", "line": "three", "comment": "x"}]`); comments != nil {
			t.Errorf("Expected nil, got %+v", comments)
		}
	})
}

func TestComment_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		line    int
		oldLine int
	}{
		{"numbers", `{"new_path":"a","line":5,"old_line":4,"comment":"x"}`, 5, 4},
		{"strings", `{"new_path":"a","line":"5","old_line":" 4 ","comment":"x"}`, 5, 4},
		{"float", `{"new_path":"a","line":5.0,"comment":"x"}`, 5, 0},
		{"null", `{"new_path":"a","line":null,"old_line":"","comment":"x"}`, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Comment
			if err := json.Unmarshal([]byte(tt.input), &c); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if c.Line != tt.line || c.OldLine != tt.oldLine {
				t.Errorf("Expected line %d/%d, got %d/%d", tt.line, tt.oldLine, c.Line, c.OldLine)
			}
			if c.NewPath != "a" || c.Comment != "x" {
				t.Errorf("Expected other fields to decode, got %+v", c)
			}
		})
	}
}

func TestLineCode(t *testing.T) {
	tests := []struct {
		path    string
		oldLine int
		newLine int
		want    string
	}{
		{"main.go", 0, 5, "0607f785dfa3c3861b3239f6723eb276d8056461_0_5"},
		{"src/app.py", 10, 12, "ac95095330a4a20b1f198c92db70024a198bb660_10_12"},
	}

	for _, tt := range tests {
		if got := LineCode(tt.path, tt.oldLine, tt.newLine); got != tt.want {
			t.Errorf("LineCode(%s, %d, %d) = %s, want %s", tt.path, tt.oldLine, tt.newLine, got, tt.want)
		}
	}
}
