package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pitabwire/tabula/internal/bulk"
	"github.com/pitabwire/tabula/internal/capability"
	"github.com/pitabwire/tabula/internal/config"
	"github.com/pitabwire/tabula/internal/metadata"
	"github.com/pitabwire/tabula/internal/observability"
	"github.com/pitabwire/tabula/internal/session"
	"github.com/pitabwire/tabula/internal/store"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	Authenticate func(http.Handler) http.Handler
	Resolver     *capability.Resolver
	Tables       *metadata.TableProvider
	Sessions     *session.Manager
	Rows         store.RowStore
	Bulk         *bulk.Dispatcher
	Metrics      *observability.Metrics
	Gatherer     prometheus.Gatherer
	Readiness    observability.ReadinessChecks
	Now          func() time.Time
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	r := chi.NewRouter()

	r.Use(Recovery(logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)

	r.Get("/ui/health", observability.HandleHealth())
	r.Get("/ui/ready", observability.HandleReady(deps.Readiness))
	if deps.Config.Observability.Metrics.Enabled {
		path := deps.Config.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		if deps.Gatherer != nil {
			r.Method(http.MethodGet, path, observability.HandlerFor(deps.Gatherer))
		} else {
			r.Method(http.MethodGet, path, observability.Handler())
		}
	}

	auth := deps.Authenticate
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	api := &sessionAPI{
		tables:   deps.Tables,
		sessions: deps.Sessions,
		rows:     deps.Rows,
		bulk:     deps.Bulk,
		metrics:  deps.Metrics,
		logger:   logger,
		now:      now,
	}

	r.Group(func(r chi.Router) {
		r.Use(observability.TracingMiddleware)
		r.Use(auth)
		r.Use(BuildRequestContext(deps.Config.Identity.ClaimPaths))
		r.Use(ResolveCapabilities(deps.Resolver))
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(logger))
		if deps.Metrics != nil {
			r.Use(deps.Metrics.MetricsMiddleware)
		}

		r.Get("/ui/tables", handleListTables(deps.Tables))
		r.Get("/ui/tables/{tableId}", handleGetTable(deps.Tables))
		r.Post("/ui/tables/{tableId}/sessions", handleCreateSession(deps.Tables, deps.Sessions))

		r.Route("/ui/sessions/{sessionId}", func(r chi.Router) {
			r.Get("/", api.handleGet)
			r.Delete("/", api.handleDelete)
			r.Put("/search", api.mutate(setSearch))
			r.Put("/filters/{key}", api.mutate(setFilter))
			r.Delete("/filters/{key}", api.mutate(clearFilter))
			r.Delete("/filters", api.mutate(clearFilters))
			r.Post("/sort/{key}", api.mutate(toggleSort))
			r.Put("/page", api.mutate(setPage))
			r.Post("/selection/{rowId}", api.mutate(toggleRow))
			r.Post("/selection", api.mutate(toggleVisible))
			r.Delete("/selection", api.mutate(clearSelection))
			r.Get("/export", api.handleExport)
			r.Post("/rows/{rowId}/{event}", api.handleRowEvent)
			r.Post("/bulk/{actionId}", api.handleBulk)
		})
	})

	return r
}
