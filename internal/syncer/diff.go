package syncer

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const diffContext = 3

// Diff renders a line diff of the plan in unified style. Unchanged runs
// longer than twice the context are collapsed.
func (p *Plan) Diff() string {
	if !p.Changed() {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(p.Current.Text, p.Updated.Text)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s (updated)\n", p.HostFile, p.HostFile)

	for i, d := range diffs {
		text := splitLines(d.Text)

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			writeLines(&sb, "-", text)
		case diffmatchpatch.DiffInsert:
			writeLines(&sb, "+", text)
		case diffmatchpatch.DiffEqual:
			head, tail := diffContext, diffContext
			if i == 0 {
				head = 0
			}
			if i == len(diffs)-1 {
				tail = 0
			}
			if len(text) <= head+tail {
				writeLines(&sb, " ", text)
				continue
			}
			writeLines(&sb, " ", text[:head])
			fmt.Fprintf(&sb, "@@ %d unchanged lines @@\n", len(text)-head-tail)
			writeLines(&sb, " ", text[len(text)-tail:])
		}
	}

	return sb.String()
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func writeLines(sb *strings.Builder, prefix string, lines []string) {
	for _, l := range lines {
		sb.WriteString(prefix)
		sb.WriteString(strings.TrimSuffix(l, "\r"))
		sb.WriteByte('\n')
	}
}
