package jobs

import (
	"github.com/go-chi/chi/v5"

	"github.com/otforge/config-registry/pkg/authz"
)

// Router creates a chi.Router for the integrity scan API. It is mounted
// under /integrity-scans; reads need viewer, enqueue and cancel need
// operator. The router assumes the identity middleware already ran.
func Router(store *JobStore) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(authz.RequireRole(authz.RoleViewer))
		r.Get("/", ListJobsHandler(store))
		r.Get("/{jobId}", GetJobHandler(store))
	})

	r.Group(func(r chi.Router) {
		r.Use(authz.RequireRole(authz.RoleOperator))
		r.Post("/", EnqueueJobHandler(store))
		r.Post("/{jobId}:cancel", CancelJobHandler(store))
	})

	return r
}
