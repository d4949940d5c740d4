package transport

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// NameCodec translates path names between UTF-8 and the charset the server
// uses on the control connection. Many servers in CJK locales still speak
// GBK or Big5 there. The zero value is the identity codec.
type NameCodec struct {
	name string
	enc  encoding.Encoding
}

// NewNameCodec looks up a codec by its WHATWG label ("gbk", "big5",
// "shift_jis", ...). An empty label or any UTF-8 label yields the identity
// codec.
func NewNameCodec(label string) (NameCodec, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return NameCodec{}, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return NameCodec{}, fmt.Errorf("%w: %q", ErrEncodingUnsupported, label)
	}

	if enc == unicode.UTF8 {
		return NameCodec{}, nil
	}

	name, _ := htmlindex.Name(enc)

	return NameCodec{name: name, enc: enc}, nil
}

// Name returns the canonical charset name, or "utf-8" for the identity codec.
func (c NameCodec) Name() string {
	if c.enc == nil {
		return "utf-8"
	}

	return c.name
}

// Encode converts a UTF-8 name to the server charset.
func (c NameCodec) Encode(s string) (string, error) {
	if c.enc == nil {
		return s, nil
	}

	out, err := c.enc.NewEncoder().String(s)
	if err != nil {
		return "", fmt.Errorf("transport: encoding %q as %s: %w", s, c.name, err)
	}

	return out, nil
}

// Decode converts a server-charset name to UTF-8.
func (c NameCodec) Decode(s string) (string, error) {
	if c.enc == nil {
		return s, nil
	}

	out, err := c.enc.NewDecoder().String(s)
	if err != nil {
		return "", fmt.Errorf("transport: decoding name as %s: %w", c.name, err)
	}

	return out, nil
}
