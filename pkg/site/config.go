// Package site provides site (plant) scoping for the registry server. It
// supports single-site deployments (everything under "default") and
// multi-site mode where each request names its site.
package site

// Mode controls how the site context is resolved.
type Mode string

const (
	// ModeSingle uses the "default" site for all requests.
	ModeSingle Mode = "single"
	// ModeMulti requires a site per request.
	ModeMulti Mode = "multi"
)
