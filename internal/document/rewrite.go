package document

import (
	"strings"
)

type RewriteOptions struct {
	// Indent is the per-level indent of the serialized document.
	Indent string
	// Separator follows the closing brace unless the text after the region
	// already starts with it.
	Separator string
}

func DefaultRewriteOptions() RewriteOptions {
	return RewriteOptions{
		Indent:    "  ",
		Separator: ",",
	}
}

// Rewrite replaces the region in text with doc. The marker is kept, the
// document starts on the line after it, and every serialized line is
// prefixed with the indentation of the marker's line. Both region shapes
// produce the same layout.
func (l *Locator) Rewrite(text string, region Region, doc *APIDocument, opts RewriteOptions) (string, error) {
	rendered, err := doc.Render(opts.Indent)
	if err != nil {
		return "", err
	}

	newline := "\n"
	if strings.Contains(text, "\r\n") {
		newline = "\r\n"
	}

	before := text[:region.MarkerStart]
	after := text[region.Close+1:]

	var b strings.Builder
	b.Grow(len(text) + len(rendered))
	b.WriteString(before)
	b.WriteString(l.marker)
	b.WriteString(newline)
	b.WriteString(region.Indent)
	b.WriteString(Reindent(rendered, region.Indent, newline))
	if opts.Separator != "" && !strings.HasPrefix(after, opts.Separator) {
		b.WriteString(opts.Separator)
	}
	b.WriteString(after)

	return b.String(), nil
}

// Reindent prefixes every line but the first with prefix and joins the
// lines with newline.
func Reindent(s, prefix, newline string) string {
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, newline)
}
