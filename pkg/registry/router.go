package registry

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"

	"github.com/otforge/config-registry/pkg/audit"
	"github.com/otforge/config-registry/pkg/authz"
	"github.com/otforge/config-registry/pkg/cache"
	"github.com/otforge/config-registry/pkg/content"
	"github.com/otforge/config-registry/pkg/jobs"
	"github.com/otforge/config-registry/pkg/site"
)

// Service bundles the registry stores and engines behind the HTTP surface.
type Service struct {
	Assets    *AssetStore
	Versions  *VersionStore
	Branches  *BranchStore
	Audit     *AuditStore
	Importer  *ImportEngine
	Promoter  *PromotionEngine
	Archiver  *ArchivalManager
	BranchEng *BranchEngine
	Exporter  *ExportEngine

	// Cache, when set, is invalidated after every successful mutation. The
	// cached reads are a replica of committed state, never patched in place.
	Cache *cache.Manager
}

// NewService wires stores and engines over one database and blob store.
func NewService(db *gorm.DB, blobs *content.Store, policy content.PolicyProvider) *Service {
	assets := NewAssetStore(db)
	versions := NewVersionStore(db)
	branches := NewBranchStore(db)
	auditStore := NewAuditStore(db)
	machine := NewStatusMachine()

	archiver := NewArchivalManager(db, versions, auditStore)

	return &Service{
		Assets:    assets,
		Versions:  versions,
		Branches:  branches,
		Audit:     auditStore,
		Importer:  NewImportEngine(db, assets, versions, auditStore, blobs, policy),
		Promoter:  NewPromotionEngine(db, machine, versions, branches, auditStore, archiver),
		Archiver:  archiver,
		BranchEng: NewBranchEngine(db, assets, versions, branches, blobs, policy),
		Exporter:  NewExportEngine(versions, blobs),
	}
}

// AutoMigrate creates or updates every registry table.
func (s *Service) AutoMigrate() error {
	if err := s.Assets.AutoMigrate(); err != nil {
		return err
	}
	if err := s.Versions.AutoMigrate(); err != nil {
		return err
	}
	if err := s.Branches.AutoMigrate(); err != nil {
		return err
	}
	return s.Audit.AutoMigrate()
}

func (s *Service) invalidateAsset(assetID string) {
	s.Cache.InvalidateAsset(assetID)
}

func (s *Service) invalidateVersion(versionID string) {
	s.Cache.InvalidateVersion(versionID)
}

// RouterConfig carries the middleware collaborators for the full router.
// Nil fields disable the corresponding layer.
type RouterConfig struct {
	SiteResolver site.Resolver
	RoleExtract  authz.RoleExtractor
	AccessAudit  *audit.Store
	AuditConfig  *audit.Config
	ScanJobs     *jobs.JobStore
	Logger       *slog.Logger
}

// NewRouter builds the registry API router. Reads require the viewer role,
// imports and branch work the operator role, and status changes, promotions
// and archival the approver role.
func NewRouter(svc *Service, cfg RouterConfig) chi.Router {
	if cfg.SiteResolver == nil {
		cfg.SiteResolver = site.SingleSiteResolver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(site.Middleware(cfg.SiteResolver))
	r.Use(authz.IdentityMiddleware(cfg.RoleExtract))
	if cfg.AccessAudit != nil {
		r.Use(audit.Middleware(cfg.AccessAudit, cfg.AuditConfig, cfg.Logger))
	}

	readCache := svc.Cache.ReadMiddleware()

	r.Route("/assets", func(r chi.Router) {
		r.With(authz.RequireRole(authz.RoleOperator)).Post("/", createAssetHandler(svc))
		r.Get("/", listAssetsHandler(svc))

		r.Route("/{assetId}", func(r chi.Router) {
			r.Get("/", getAssetHandler(svc))
			r.With(readCache).Get("/golden", getGoldenHandler(svc))
			r.Get("/versions", listVersionsHandler(svc))
			r.With(authz.RequireRole(authz.RoleOperator)).Post("/versions", importVersionHandler(svc))
			r.Get("/branches", listBranchesHandler(svc))
			r.With(authz.RequireRole(authz.RoleOperator)).Post("/branches", createBranchHandler(svc))
			if cfg.ScanJobs != nil {
				r.With(authz.RequireRole(authz.RoleOperator)).
					Post("/integrity-scans", jobs.EnqueueJobHandler(cfg.ScanJobs))
			}
		})
	})

	r.Route("/versions/{versionId}", func(r chi.Router) {
		r.Get("/", getVersionHandler(svc))
		r.Get("/transitions", getTransitionsHandler(svc))
		r.Get("/eligibility", getEligibilityHandler(svc))
		r.With(readCache).Get("/history", getHistoryHandler(svc))
		r.With(authz.RequireRole(authz.RoleOperator)).Post("/export", exportHandler(svc))

		r.Group(func(r chi.Router) {
			r.Use(authz.RequireRole(authz.RoleApprover))
			r.Post("/status", changeStatusHandler(svc))
			r.Post("/promote", promoteToGoldenHandler(svc))
			r.Post("/archive", archiveHandler(svc))
			r.Post("/restore", restoreHandler(svc))
		})
	})

	r.Route("/branches/{branchId}", func(r chi.Router) {
		r.Get("/versions", listBranchVersionsHandler(svc))
		r.Get("/compare", compareBranchVersionsHandler(svc))

		r.Group(func(r chi.Router) {
			r.Use(authz.RequireRole(authz.RoleOperator))
			r.Post("/versions", importToBranchHandler(svc))
			r.Post("/deactivate", deactivateBranchHandler(svc))
		})
		r.With(authz.RequireRole(authz.RoleApprover)).Post("/promote", promoteBranchHandler(svc))
	})

	if cfg.ScanJobs != nil {
		r.Mount("/integrity-scans", jobs.Router(cfg.ScanJobs))
	}
	if cfg.AccessAudit != nil {
		r.Mount("/audit", audit.Router(cfg.AccessAudit))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
