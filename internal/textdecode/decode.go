// Package textdecode turns raw export bytes into text. LICIEL writes some
// tables as UTF-8 and others in a Western-European legacy code page, with
// nothing in the file saying which.
package textdecode

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DefaultFallbacks is the legacy chain tried after strict UTF-8.
// Windows-1252 comes first: it is what the "iso-8859-1" label means to
// every browser, and it maps 0x80-0x9F to printable characters.
var DefaultFallbacks = []encoding.Encoding{
	charmap.Windows1252,
	charmap.ISO8859_1,
}

// Decoder decodes byte buffers with strict UTF-8 first, then a chain of
// single-byte encodings.
type Decoder struct {
	fallbacks []encoding.Encoding
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithFallbacks replaces the legacy chain. An empty chain makes Decode
// fall back to ISO-8859-1, which cannot fail.
func WithFallbacks(encs ...encoding.Encoding) Option {
	return func(d *Decoder) {
		d.fallbacks = append([]encoding.Encoding(nil), encs...)
	}
}

// New creates a Decoder with DefaultFallbacks unless overridden.
func New(opts ...Option) *Decoder {
	d := &Decoder{fallbacks: DefaultFallbacks}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode returns b as text. It never fails: when every decoder in the
// chain rejects the input, the ISO-8859-1 reading is returned.
func (d *Decoder) Decode(b []byte) string {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return string(b)
	}

	for _, enc := range d.fallbacks {
		out, err := enc.NewDecoder().Bytes(b)
		if err == nil && utf8.Valid(out) {
			return string(out)
		}
	}

	// ISO-8859-1 maps every byte to the code point of the same value.
	out, _ := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(out)
}

// ReadFile reads and decodes path. Only I/O errors are returned.
func (d *Decoder) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return d.Decode(data), nil
}

var std = New()

// Decode decodes b with the default chain.
func Decode(b []byte) string {
	return std.Decode(b)
}

// ReadFile reads and decodes path with the default chain.
func ReadFile(path string) (string, error) {
	return std.ReadFile(path)
}
