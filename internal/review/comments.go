package review

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Comment is one line comment produced by a review.
type Comment struct {
	NewPath      string   `json:"new_path"`
	OldPath      string   `json:"old_path,omitempty"`
	Line         int      `json:"line"`
	OldLine      int      `json:"old_line,omitempty"`
	Comment      string   `json:"comment"`
	Type         LineType `json:"type,omitempty"`
	PositionType string   `json:"position_type,omitempty"`
}

// UnmarshalJSON accepts line as a number or a numeric string.
func (c *Comment) UnmarshalJSON(data []byte) error {
	type plain Comment
	var raw struct {
		plain
		Line    json.RawMessage `json:"line"`
		OldLine json.RawMessage `json:"old_line"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Comment(raw.plain)

	line, err := flexibleInt(raw.Line)
	if err != nil {
		return fmt.Errorf("line: %w", err)
	}
	c.Line = line

	oldLine, err := flexibleInt(raw.OldLine)
	if err != nil {
		return fmt.Errorf("old_line: %w", err)
	}
	c.OldLine = oldLine

	return nil
}

func flexibleInt(raw json.RawMessage) (int, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return 0, nil
	}

	var n json.Number
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		n = json.Number(s)
	} else {
		n = json.Number(text)
	}

	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("not a number: %s", text)
	}
	return int(f), nil
}

var commentArray = regexp.MustCompile(`\[\s*\{[\s\S]*?\}\s*\]`)

// ExtractComments returns the comments in the last JSON array of objects
// found in text. A missing or malformed array yields no comments.
func ExtractComments(text string) []Comment {
	matches := commentArray.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	last := matches[len(matches)-1]

	var comments []Comment
	if err := json.Unmarshal([]byte(last), &comments); err != nil {
		return nil
	}
	return comments
}

// LineCode computes GitLab's line code for a diff position:
// sha1(path)_<old>_<new>, with zero standing in for a missing side.
func LineCode(path string, oldLine, newLine int) string {
	sum := sha1.Sum([]byte(path))
	return hex.EncodeToString(sum[:]) + "_" + strconv.Itoa(oldLine) + "_" + strconv.Itoa(newLine)
}
