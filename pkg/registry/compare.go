package registry

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// diffHeader names a branch version in the diff header line.
func diffHeader(v *BranchVersionRecord) string {
	return fmt.Sprintf("%s (%s, %s)", v.FileName, v.VersionNumber(), shortHash(v.ContentHash))
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// renderDiff produces a line-based textual diff in the familiar -/+ form.
// The line-mode pass keeps the diff aligned to line boundaries instead of
// character runs.
func renderDiff(header1, header2 string, text1, text2 []byte) string {
	dmp := diffmatchpatch.New()
	c1, c2, lineArray := dmp.DiffLinesToChars(string(text1), string(text2))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(c1, c2, false), lineArray)

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n", header1)
	fmt.Fprintf(&b, "+++ %s\n", header2)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitLines(d.Text) {
			b.WriteString(prefix)
			b.WriteString(strings.TrimSuffix(line, "\n"))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// splitLines splits on newlines keeping a trailing partial line.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
