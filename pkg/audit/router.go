package audit

import (
	"github.com/go-chi/chi/v5"

	"github.com/otforge/config-registry/pkg/authz"
)

// Router creates a chi.Router for the access audit API. Reading the trail
// requires the approver role; the trail exists for reviewers, not browsers.
func Router(store *Store) chi.Router {
	r := chi.NewRouter()
	r.Use(authz.RequireRole(authz.RoleApprover))

	r.Get("/events", ListEventsHandler(store))
	r.Get("/events/{eventId}", GetEventHandler(store))

	return r
}
