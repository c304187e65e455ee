package document

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrRegionNotFound   = errors.New("embedded region not found")
	ErrUnbalancedRegion = errors.New("embedded region braces are unbalanced")
)

type RegionError struct {
	Marker string
	Offset int
	Err    error
}

func (e *RegionError) Error() string {
	if errors.Is(e.Err, ErrRegionNotFound) {
		return fmt.Sprintf("%v: looking for %q followed by '{' on the same line or after a newline", e.Err, e.Marker)
	}
	return fmt.Sprintf("%v: brace opened at offset %d is never closed", e.Err, e.Offset)
}

func (e *RegionError) Unwrap() error {
	return e.Err
}

type Shape int

const (
	ShapeSameLine Shape = iota
	ShapeNextLine
)

func (s Shape) String() string {
	switch s {
	case ShapeSameLine:
		return "same-line"
	case ShapeNextLine:
		return "next-line"
	default:
		return "unknown"
	}
}

// Region is the location of the embedded API document inside a host
// document. Offsets are byte offsets into the decoded text.
type Region struct {
	MarkerStart int
	Open        int
	Close       int
	Shape       Shape
	Indent      string
}

// Body returns the region text from the opening to the closing brace,
// inclusive.
func (r Region) Body(text string) string {
	return text[r.Open : r.Close+1]
}

type Locator struct {
	marker  string
	pattern *regexp.Regexp
}

func NewLocator(marker string) *Locator {
	return &Locator{
		marker:  marker,
		pattern: regexp.MustCompile(regexp.QuoteMeta(marker) + `[ \t]*(\r?\n\s*)?\{`),
	}
}

func (l *Locator) Marker() string {
	return l.marker
}

// Locate finds the embedded region: the first occurrence of the marker
// followed by an opening brace, either on the same line or after a newline.
func (l *Locator) Locate(text string) (Region, error) {
	start, open, shape, ok := l.find(text)
	if !ok {
		return Region{}, &RegionError{Marker: l.marker, Offset: -1, Err: ErrRegionNotFound}
	}

	closeAt, err := matchBrace(text, open)
	if err != nil {
		return Region{}, &RegionError{Marker: l.marker, Offset: open, Err: err}
	}

	return Region{
		MarkerStart: start,
		Open:        open,
		Close:       closeAt,
		Shape:       shape,
		Indent:      lineIndent(text, start),
	}, nil
}

func (l *Locator) find(text string) (start, open int, shape Shape, ok bool) {
	for _, m := range l.pattern.FindAllStringSubmatchIndex(text, -1) {
		if !atWordBoundary(text, m[0]) {
			continue
		}
		shape = ShapeSameLine
		if m[2] >= 0 {
			shape = ShapeNextLine
		}
		return m[0], m[1] - 1, shape, true
	}
	return 0, 0, 0, false
}

// atWordBoundary rejects matches such as "openapispec:" for marker "spec:".
func atWordBoundary(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	c := text[pos-1]
	isIdent := c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
	return !isIdent
}

func lineIndent(text string, pos int) string {
	lineStart := strings.LastIndexByte(text[:pos], '\n') + 1
	line := text[lineStart:pos]
	trimmed := strings.TrimLeft(line, " \t")
	return line[:len(line)-len(trimmed)]
}

// matchBrace returns the offset of the brace closing the one at open.
// It is a textual scan: braces inside string literals and comments are not
// counted. Single and double quoted strings end at a newline, as they would
// in a script, so a stray apostrophe cannot swallow the rest of the file.
func matchBrace(text string, open int) (int, error) {
	depth := 0
	var quote byte

	for i := open; i < len(text); i++ {
		c := text[i]

		if quote != 0 {
			switch {
			case c == '\\':
				i++
			case c == quote:
				quote = 0
			case c == '\n' && quote != '`':
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'', '`':
			quote = c
		case '/':
			if i+1 >= len(text) {
				continue
			}
			switch text[i+1] {
			case '/':
				nl := strings.IndexByte(text[i:], '\n')
				if nl < 0 {
					return -1, ErrUnbalancedRegion
				}
				i += nl
			case '*':
				end := strings.Index(text[i+2:], "*/")
				if end < 0 {
					return -1, ErrUnbalancedRegion
				}
				i += end + 3
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}

	return -1, ErrUnbalancedRegion
}

// Extract returns the API document currently embedded in text.
func (l *Locator) Extract(text string) (*APIDocument, Region, error) {
	region, err := l.Locate(text)
	if err != nil {
		return nil, Region{}, err
	}

	doc, err := Parse([]byte(region.Body(text)))
	if err != nil {
		return nil, region, fmt.Errorf("parsing embedded region: %w", err)
	}
	return doc, region, nil
}
