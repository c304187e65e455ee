package document

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var ErrNotUTF8 = errors.New("host document is not valid UTF-8")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// HostText is the decoded content of a host document.
type HostText struct {
	Text   string
	HasBOM bool
}

func detectUTF16BOM(data []byte) string {
	if len(data) < 2 {
		return ""
	}
	if bytes.Equal(data[:2], []byte{0xFF, 0xFE}) {
		return "utf-16le"
	}
	if bytes.Equal(data[:2], []byte{0xFE, 0xFF}) {
		return "utf-16be"
	}
	return ""
}

// DecodeHost strips a leading UTF-8 byte order mark and rejects anything that
// is not UTF-8.
func DecodeHost(data []byte) (HostText, error) {
	if enc := detectUTF16BOM(data); enc != "" {
		return HostText{}, fmt.Errorf("%w: found %s byte order mark", ErrNotUTF8, enc)
	}

	if !utf8.Valid(data) {
		return HostText{}, ErrNotUTF8
	}

	hasBOM := bytes.HasPrefix(data, utf8BOM)

	decoded, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), data)
	if err != nil {
		return HostText{}, fmt.Errorf("decoding host document: %w", err)
	}

	return HostText{Text: string(decoded), HasBOM: hasBOM}, nil
}

// EncodeHost is the inverse of DecodeHost: the BOM is written back only if
// the original file had one.
func EncodeHost(h HostText) ([]byte, error) {
	if !h.HasBOM {
		return []byte(h.Text), nil
	}

	encoded, _, err := transform.Bytes(unicode.UTF8BOM.NewEncoder(), []byte(h.Text))
	if err != nil {
		return nil, fmt.Errorf("encoding host document: %w", err)
	}
	return encoded, nil
}
