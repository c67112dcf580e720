package engine

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type lineOpKind int

const (
	opEqual lineOpKind = iota
	opAdd
	opDel
)

// lineOp is one line of an edit script between two text blobs. Text keeps
// its trailing newline except for a final line that has none.
type lineOp struct {
	kind lineOpKind
	text string
}

// lineOps aligns old and new line by line. The character-level Myers diff
// from go-diff is run in line mode: each distinct line is mapped to a rune,
// diffed, and mapped back.
func lineOps(old, new []byte) []lineOp {
	if len(old) == 0 && len(new) == 0 {
		return nil
	}
	dmp := diffmatchpatch.New()
	c1, c2, lines := dmp.DiffLinesToChars(string(old), string(new))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(c1, c2, false), lines)

	var ops []lineOp
	for _, d := range diffs {
		var kind lineOpKind
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			kind = opEqual
		case diffmatchpatch.DiffInsert:
			kind = opAdd
		case diffmatchpatch.DiffDelete:
			kind = opDel
		}
		for _, text := range splitAfterLines(d.Text) {
			ops = append(ops, lineOp{kind: kind, text: text})
		}
	}
	return ops
}

// splitAfterLines splits text into lines that keep their terminators. A
// missing terminator on the final line is preserved.
func splitAfterLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

const noNewlineMarker = `\ No newline at end of file`

// writePatchLine writes one patch body line, flagging a missing trailing
// newline the way git does.
func writePatchLine(b *strings.Builder, prefix byte, text string) {
	b.WriteByte(prefix)
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n" + noNewlineMarker + "\n")
	}
}

// buildHunks renders the unified hunks for an edit script, surrounding each
// change with up to contextLines unchanged lines, and reports the number of
// added and removed lines.
func buildHunks(ops []lineOp, contextLines int) (patch string, additions, deletions int) {
	for _, op := range ops {
		switch op.kind {
		case opAdd:
			additions++
		case opDel:
			deletions++
		}
	}
	if additions == 0 && deletions == 0 {
		return "", 0, 0
	}

	var b strings.Builder
	// Line cursors are 1-based positions of the next op on each side.
	oldLine, newLine := 1, 1
	i := 0
	for i < len(ops) {
		if ops[i].kind == opEqual {
			oldLine++
			newLine++
			i++
			continue
		}

		// Open a hunk: back up over leading context.
		start := i
		lead := 0
		for start > 0 && lead < contextLines && ops[start-1].kind == opEqual {
			start--
			lead++
		}
		hunkOldStart := oldLine - lead
		hunkNewStart := newLine - lead

		// Extend to the end of the hunk: stop when an unchanged run longer
		// than twice the context separates two changes.
		end := i
		equalRun := 0
		for j := i; j < len(ops); j++ {
			if ops[j].kind == opEqual {
				equalRun++
				if equalRun > contextLines*2 {
					break
				}
			} else {
				equalRun = 0
				end = j
			}
		}
		// Trailing context.
		trail := 0
		for end+1 < len(ops) && trail < contextLines && ops[end+1].kind == opEqual {
			end++
			trail++
		}

		var body strings.Builder
		oldCount, newCount := 0, 0
		for j := start; j <= end; j++ {
			switch ops[j].kind {
			case opEqual:
				writePatchLine(&body, ' ', ops[j].text)
				oldCount++
				newCount++
			case opDel:
				writePatchLine(&body, '-', ops[j].text)
				oldCount++
			case opAdd:
				writePatchLine(&body, '+', ops[j].text)
				newCount++
			}
		}

		fmt.Fprintf(&b, "@@ -%s +%s @@\n", hunkRange(hunkOldStart, oldCount), hunkRange(hunkNewStart, newCount))
		b.WriteString(body.String())

		// Advance cursors past the hunk.
		for j := i; j <= end; j++ {
			switch ops[j].kind {
			case opEqual:
				oldLine++
				newLine++
			case opDel:
				oldLine++
			case opAdd:
				newLine++
			}
		}
		i = end + 1
	}
	return b.String(), additions, deletions
}

// hunkRange formats one side of a @@ header. A zero-length side names the
// line before the change, matching git.
func hunkRange(start, count int) string {
	if count == 0 {
		return fmt.Sprintf("%d,0", start-1)
	}
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}
