package prompts

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type LineOp string

const (
	LineEqual  LineOp = "equal"
	LineInsert LineOp = "insert"
	LineDelete LineOp = "delete"
)

// DiffLine is one line of a revision diff. Line numbers are 0 when the line
// does not exist on that side.
type DiffLine struct {
	Op         LineOp `json:"op"`
	Content    string `json:"content"`
	OldLineNum int    `json:"old_line,omitempty"`
	NewLineNum int    `json:"new_line,omitempty"`
}

type Diff struct {
	Lines     []DiffLine `json:"lines"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
}

// ComputeDiff produces a line-oriented diff between two prompt bodies.
func ComputeDiff(oldText, newText string) *Diff {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	result := &Diff{Lines: []DiffLine{}}
	oldLine, newLine := 1, 1

	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")
		// A trailing newline leaves an empty final element that is not a line.
		if strings.HasSuffix(d.Text, "\n") {
			lines = lines[:len(lines)-1]
		}
		for _, line := range lines {
			dl := DiffLine{Content: line}
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				dl.Op = LineEqual
				dl.OldLineNum, dl.NewLineNum = oldLine, newLine
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				dl.Op = LineDelete
				dl.OldLineNum = oldLine
				oldLine++
				result.Deletions++
			case diffmatchpatch.DiffInsert:
				dl.Op = LineInsert
				dl.NewLineNum = newLine
				newLine++
				result.Additions++
			}
			result.Lines = append(result.Lines, dl)
		}
	}

	return result
}
