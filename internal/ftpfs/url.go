package ftpfs

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// URLBuilder turns remote paths into public URLs: base URL, then the
// configured sub-path, then the path itself. FTP has no signing scheme, so
// a positive expiry is carried as an "expires" query parameter holding the
// Unix time at which the link should be considered stale.
type URLBuilder struct {
	baseURL string
	subPath string

	// now is the clock for expiry timestamps. Tests may override it.
	now func() time.Time
}

// NewURLBuilder creates a builder. An empty baseURL makes every Build fail
// with ErrURL.
func NewURLBuilder(baseURL, subPath string) *URLBuilder {
	return &URLBuilder{
		baseURL: strings.TrimSpace(baseURL),
		subPath: subPath,
		now:     time.Now,
	}
}

// Build returns the URL for p. Empty segments are dropped, so doubled or
// trailing slashes in any part never reach the output, and every segment is
// percent-escaped.
func (b *URLBuilder) Build(p string, expires time.Duration) (string, error) {
	if b.baseURL == "" {
		return "", &OpError{Op: "url", Path: p, Kind: ErrURL, Err: errors.New("base_url is not configured")}
	}

	u, err := url.Parse(b.baseURL)
	if err != nil {
		return "", &OpError{Op: "url", Path: p, Kind: ErrURL, Err: err}
	}

	var segments []string
	for _, part := range []string{u.Path, b.subPath, p} {
		segments = append(segments, splitSegments(part)...)
	}

	u.Path = "/" + strings.Join(segments, "/")
	u.RawPath = ""

	if expires > 0 {
		q := u.Query()
		q.Set("expires", strconv.FormatInt(b.now().Add(expires).Unix(), 10))
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

func splitSegments(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '\\' })

	out := fields[:0]
	for _, f := range fields {
		if f != "." {
			out = append(out, f)
		}
	}

	return out
}
