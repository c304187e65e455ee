package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidJSON = errors.New("API document is not valid JSON")
	ErrNotObject   = errors.New("API document must be a JSON object")
)

// APIDocument is an opaque API description. It is kept as raw JSON so the
// key order and number formatting of the source survive a sync.
type APIDocument struct {
	raw json.RawMessage
}

func Parse(data []byte) (*APIDocument, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, ErrInvalidJSON
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	var escaped bytes.Buffer
	json.HTMLEscape(&escaped, compact.Bytes())

	return &APIDocument{raw: escaped.Bytes()}, nil
}

func (d *APIDocument) Raw() json.RawMessage {
	return d.raw
}

func (d *APIDocument) Size() int {
	return len(d.raw)
}

// Hash is the hex SHA-256 of the compact form. <, > and & are already
// escaped in that form, so a document hashes the same before and after it
// has been embedded.
func (d *APIDocument) Hash() string {
	sum := sha256.Sum256(d.raw)
	return hex.EncodeToString(sum[:])
}

// Decode returns the document as generic Go values, for callers that need
// to compare or inspect it structurally.
func (d *APIDocument) Decode() (map[string]any, error) {
	var v map[string]any
	if err := json.Unmarshal(d.raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Render serializes the document with one level of indent per nesting
// depth. The output is safe to embed in an HTML script block.
func (d *APIDocument) Render(indent string) (string, error) {
	var indented bytes.Buffer
	if err := json.Indent(&indented, d.raw, "", indent); err != nil {
		return "", fmt.Errorf("indenting API document: %w", err)
	}
	return indented.String(), nil
}

func (d *APIDocument) String() string {
	title := ""
	if v, err := d.Decode(); err == nil {
		if info, ok := v["info"].(map[string]any); ok {
			if t, ok := info["title"].(string); ok {
				title = t
			}
		}
	}
	if title == "" {
		return fmt.Sprintf("APIDocument(%d bytes)", len(d.raw))
	}
	return fmt.Sprintf("APIDocument(%q, %d bytes)", strings.TrimSpace(title), len(d.raw))
}
