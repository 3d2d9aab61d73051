package site

import (
	"fmt"
	"net/http"
	"regexp"
)

// maxSiteLen bounds site identifiers; they double as index prefixes.
const maxSiteLen = 63

// siteRe validates site identifiers: lowercase alphanumeric and hyphens,
// starting and ending with an alphanumeric character.
var siteRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// SiteQueryParam is the query parameter name used for site resolution.
const SiteQueryParam = "site"

// SiteHeader is the HTTP header used for site resolution.
const SiteHeader = "X-Site-ID"

// Resolver resolves the site context from an HTTP request.
type Resolver interface {
	Resolve(r *http.Request) (SiteContext, error)
}

// SingleSiteResolver always returns the "default" site.
type SingleSiteResolver struct{}

// Resolve always returns a SiteContext with Site "default".
func (s SingleSiteResolver) Resolve(_ *http.Request) (SiteContext, error) {
	return SiteContext{Site: "default"}, nil
}

// HeaderSiteResolver reads the site from the request query parameter or the
// X-Site-ID header. In multi-site mode the site is always required.
type HeaderSiteResolver struct{}

// Resolve extracts the site from the request, checking the query parameter
// first and the header second. Returns an error if the site is missing or
// invalid.
func (h HeaderSiteResolver) Resolve(r *http.Request) (SiteContext, error) {
	s := r.URL.Query().Get(SiteQueryParam)
	if s == "" {
		s = r.Header.Get(SiteHeader)
	}
	if s == "" {
		return SiteContext{}, fmt.Errorf("site is required in multi-site mode (use ?site= query param or %s header)", SiteHeader)
	}
	if err := validateSite(s); err != nil {
		return SiteContext{}, err
	}
	return SiteContext{Site: s}, nil
}

// validateSite checks that a site identifier is lowercase alphanumeric with
// hyphens, 1-63 characters, starting and ending with an alphanumeric.
func validateSite(s string) error {
	if len(s) > maxSiteLen {
		return fmt.Errorf("site %q exceeds maximum length of %d characters", s, maxSiteLen)
	}
	if !siteRe.MatchString(s) {
		return fmt.Errorf("site %q is invalid: must consist of lowercase alphanumeric characters or hyphens, and must start and end with an alphanumeric character", s)
	}
	return nil
}
