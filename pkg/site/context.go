package site

import "context"

// ctxKey is an unexported type used as the context key for SiteContext.
type ctxKey struct{}

// SiteContext carries the resolved site through request context.
type SiteContext struct {
	Site string
}

// WithSite returns a new context with the given SiteContext attached.
func WithSite(ctx context.Context, sc SiteContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, sc)
}

// FromContext retrieves the SiteContext from the context.
// Returns the zero value and false if no site is set.
func FromContext(ctx context.Context) (SiteContext, bool) {
	sc, ok := ctx.Value(ctxKey{}).(SiteContext)
	return sc, ok
}

// SiteFromContext returns the site name from the context, or "" if no site
// context is set.
func SiteFromContext(ctx context.Context) string {
	sc, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return sc.Site
}
