package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sameLineHost = `<!DOCTYPE html>
<html>
<body>
<script>
    window.onload = function() {
        const ui = SwaggerUIBundle({
            spec: {"openapi": "3.0.1", "paths": {}},
            dom_id: '#swagger-ui'
        });
    };
</script>
</body>
</html>
`

const nextLineHost = `<!DOCTYPE html>
<html>
<body>
<script>
    window.onload = function() {
        const ui = SwaggerUIBundle({
            spec:
                {"openapi": "3.0.1", "paths": {}},
            dom_id: '#swagger-ui'
        });
    };
</script>
</body>
</html>
`

const sampleAPI = `{
  "openapi": "3.0.1",
  "info": {"title": "Flight Ticket Booking API", "version": "v0"},
  "paths": {
    "/api/v0/flights/{id}": {
      "get": {
        "summary": "Find flight by id",
        "description": "Returns 404 if absent. Literal brace: { and <script>",
        "parameters": [{"name": "id", "in": "path", "required": true}]
      }
    }
  },
  "components": {"schemas": {"Flight": {"type": "object", "nullable": false, "x-weight": 1.5e3}}}
}`

func mustParse(t *testing.T, s string) *APIDocument {
	t.Helper()
	doc, err := Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func TestLocateShapes(t *testing.T) {
	loc := NewLocator("spec:")

	tests := []struct {
		name  string
		text  string
		shape Shape
	}{
		{"same line", sameLineHost, ShapeSameLine},
		{"next line", nextLineHost, ShapeNextLine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, err := loc.Locate(tt.text)
			if err != nil {
				t.Fatalf("Locate: %v", err)
			}
			if region.Shape != tt.shape {
				t.Errorf("shape = %v, want %v", region.Shape, tt.shape)
			}
			if region.Indent != strings.Repeat(" ", 12) {
				t.Errorf("indent = %q, want 12 spaces", region.Indent)
			}
			if got := region.Body(tt.text); got != `{"openapi": "3.0.1", "paths": {}}` {
				t.Errorf("body = %q", got)
			}
		})
	}
}

func TestBothShapesProduceSameLayout(t *testing.T) {
	loc := NewLocator("spec:")
	doc := mustParse(t, sampleAPI)
	opts := DefaultRewriteOptions()

	rewrite := func(text string) string {
		region, err := loc.Locate(text)
		if err != nil {
			t.Fatalf("Locate: %v", err)
		}
		out, err := loc.Rewrite(text, region, doc, opts)
		if err != nil {
			t.Fatalf("Rewrite: %v", err)
		}
		return out
	}

	if diff := cmp.Diff(rewrite(sameLineHost), rewrite(nextLineHost)); diff != "" {
		t.Errorf("layouts differ (-same +next):\n%s", diff)
	}
}

func TestLocateNotFound(t *testing.T) {
	loc := NewLocator("spec:")

	for _, text := range []string{
		"<html></html>",
		"spec: 'url'",
		"openapispec: {}",
		`"spec": {}`,
	} {
		_, err := loc.Locate(text)
		if !errors.Is(err, ErrRegionNotFound) {
			t.Errorf("Locate(%q) error = %v, want ErrRegionNotFound", text, err)
		}
		var regionErr *RegionError
		if !errors.As(err, &regionErr) {
			t.Errorf("Locate(%q) error is not a *RegionError", text)
		}
	}
}

func TestLocateUnbalanced(t *testing.T) {
	loc := NewLocator("spec:")

	tests := []string{
		`spec: {"a": {"b": 1}`,
		"spec:\n  {\"a\": 1",
		`spec: {"a": "unterminated}`,
		`spec: {"a": 1 /* never closed }`,
	}

	for _, text := range tests {
		_, err := loc.Locate(text)
		if !errors.Is(err, ErrUnbalancedRegion) {
			t.Errorf("Locate(%q) error = %v, want ErrUnbalancedRegion", text, err)
		}
	}
}

func TestMatchBraceIgnoresStringsAndComments(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"plain", `{"a": {}}`, 8},
		{"brace in double quotes", `{"a": "}"}`, 9},
		{"escaped quote", `{"a": "\"}"}`, 11},
		{"brace in single quotes", `{a: '{'}`, 7},
		{"template literal", "{a: `}\n}`}", 9},
		{"line comment", "{a: 1 // }\n}", 11},
		{"block comment", "{a: /* } */ 1}", 13},
		{"apostrophe ends at newline", "{a: 'x\n}", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := matchBrace(tt.text, 0)
			if err != nil {
				t.Fatalf("matchBrace: %v", err)
			}
			if got != tt.want {
				t.Errorf("matchBrace = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRewriteIndentsEveryLineAfterFirst(t *testing.T) {
	loc := NewLocator("spec:")
	doc := mustParse(t, sampleAPI)

	for _, n := range []int{0, 2, 7, 16} {
		indent := strings.Repeat(" ", n)
		text := "<script>\n" + indent + "spec: {\"x\": 1},\n</script>\n"

		region, err := loc.Locate(text)
		if err != nil {
			t.Fatalf("Locate: %v", err)
		}
		out, err := loc.Rewrite(text, region, doc, DefaultRewriteOptions())
		if err != nil {
			t.Fatalf("Rewrite: %v", err)
		}

		rendered, _ := doc.Render("  ")
		renderedLines := strings.Split(rendered, "\n")

		outLines := strings.Split(out, "\n")
		// outLines: "<script>", marker line, then the document.
		if outLines[1] != indent+"spec:" {
			t.Fatalf("n=%d: marker line = %q", n, outLines[1])
		}
		for i, want := range renderedLines {
			got := outLines[2+i]
			if i == len(renderedLines)-1 {
				want += ","
			}
			if got != indent+want {
				t.Errorf("n=%d line %d = %q, want %q", n, i, got, indent+want)
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	loc := NewLocator("spec:")
	doc := mustParse(t, sampleAPI)

	for _, host := range []string{sameLineHost, nextLineHost} {
		region, err := loc.Locate(host)
		if err != nil {
			t.Fatalf("Locate: %v", err)
		}
		out, err := loc.Rewrite(host, region, doc, DefaultRewriteOptions())
		if err != nil {
			t.Fatalf("Rewrite: %v", err)
		}

		extracted, _, err := loc.Extract(out)
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}

		want, _ := doc.Decode()
		got, err := extracted.Decode()
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
		if extracted.Hash() != doc.Hash() {
			t.Errorf("hash changed across round trip")
		}
	}
}

func TestRewriteIsIdempotent(t *testing.T) {
	loc := NewLocator("spec:")
	doc := mustParse(t, sampleAPI)

	text := sameLineHost
	var outputs []string
	for i := 0; i < 3; i++ {
		region, err := loc.Locate(text)
		if err != nil {
			t.Fatalf("pass %d Locate: %v", i, err)
		}
		text, err = loc.Rewrite(text, region, doc, DefaultRewriteOptions())
		if err != nil {
			t.Fatalf("pass %d Rewrite: %v", i, err)
		}
		outputs = append(outputs, text)
	}

	if outputs[1] != outputs[0] || outputs[2] != outputs[0] {
		t.Errorf("repeated rewrites differ")
	}
	if strings.Contains(outputs[0], "},,") {
		t.Errorf("separator duplicated")
	}
	if !strings.Contains(outputs[0], "dom_id: '#swagger-ui'") {
		t.Errorf("text after the region was lost")
	}
}

func TestRewriteAddsMissingSeparator(t *testing.T) {
	loc := NewLocator("spec:")
	doc := mustParse(t, `{"a":1}`)
	text := "  spec: {}\n  url: null\n"

	region, err := loc.Locate(text)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	out, err := loc.Rewrite(text, region, doc, DefaultRewriteOptions())
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}

	want := "  spec:\n  {\n    \"a\": 1\n  },\n  url: null\n"
	if out != want {
		t.Errorf("Rewrite =\n%q\nwant\n%q", out, want)
	}
}

func TestRewritePreservesCRLF(t *testing.T) {
	loc := NewLocator("spec:")
	doc := mustParse(t, `{"a":{"b":1}}`)
	text := "<script>\r\n    spec: {},\r\n</script>\r\n"

	region, err := loc.Locate(text)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	out, err := loc.Rewrite(text, region, doc, DefaultRewriteOptions())
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}

	if strings.Count(out, "\n") != strings.Count(out, "\r\n") {
		t.Errorf("mixed line endings in %q", out)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	doc := mustParse(t, `{"d": "</script><b>&"}`)
	out, err := doc.Render("  ")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(out, "</script>") {
		t.Errorf("rendered output contains a raw closing script tag: %s", out)
	}
}

func TestRenderKeepsKeyOrder(t *testing.T) {
	doc := mustParse(t, `{"zeta": 1, "alpha": 2}`)
	out, err := doc.Render("  ")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Index(out, "zeta") > strings.Index(out, "alpha") {
		t.Errorf("key order not preserved: %s", out)
	}
}

func TestParseRejectsNonObjects(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{`not json`, ErrInvalidJSON},
		{`{"a": }`, ErrInvalidJSON},
		{`[1, 2]`, ErrNotObject},
		{`"text"`, ErrNotObject},
	}

	for _, tt := range tests {
		if _, err := Parse([]byte(tt.in)); !errors.Is(err, tt.want) {
			t.Errorf("Parse(%q) error = %v, want %v", tt.in, err, tt.want)
		}
	}
}

func TestDecodeHostBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("spec: {}")...)

	host, err := DecodeHost(data)
	if err != nil {
		t.Fatalf("DecodeHost: %v", err)
	}
	if !host.HasBOM || host.Text != "spec: {}" {
		t.Errorf("DecodeHost = %+v", host)
	}

	encoded, err := EncodeHost(host)
	if err != nil {
		t.Fatalf("EncodeHost: %v", err)
	}
	if string(encoded) != string(data) {
		t.Errorf("EncodeHost did not restore the BOM")
	}
}

func TestDecodeHostRejectsNonUTF8(t *testing.T) {
	for _, data := range [][]byte{
		{0xFF, 0xFE, 's', 0},
		{'a', 0xC3, 0x28},
	} {
		if _, err := DecodeHost(data); !errors.Is(err, ErrNotUTF8) {
			t.Errorf("DecodeHost(%v) error = %v, want ErrNotUTF8", data, err)
		}
	}
}
