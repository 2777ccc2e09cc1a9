package docvault

import (
	"fmt"
	"net/url"
	"strings"
)

// DocumentsPath is the route prefix documents are served under.
const DocumentsPath = "/documents/"

// URLBuilder derives public retrieval URLs from a base address.
type URLBuilder struct {
	base string
}

// NewURLBuilder validates base and returns a builder. base must be an absolute
// http or https URL; a trailing slash is ignored.
func NewURLBuilder(base string) (URLBuilder, error) {
	u, err := url.Parse(base)
	if err != nil {
		return URLBuilder{}, fmt.Errorf("parse base url: %w", ErrConfiguration)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return URLBuilder{}, fmt.Errorf("base url %q must be an absolute http(s) url: %w", base, ErrConfiguration)
	}

	return URLBuilder{base: strings.TrimRight(base, "/")}, nil
}

// URL returns {base}/documents/{name}.
func (b URLBuilder) URL(name string) string {
	return b.base + DocumentsPath + url.PathEscape(name)
}
