// Package httptransport assembles the public HTTP surface of the issuance
// service. Handlers live with their bounded contexts; this package only wires
// them onto one router behind the shared middleware chain.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	attestationhandler "sigil/internal/attestation/handler"
	credentialhandler "sigil/internal/credential/handler"
	"sigil/internal/platform/metrics"
	"sigil/internal/platform/middleware"
	tokenhandler "sigil/internal/token/handler"
	"sigil/pkg/platform/httputil"
)

// Deps carries the wired handlers and shared infrastructure for the router.
type Deps struct {
	Attestations *attestationhandler.Handler
	Credentials  *credentialhandler.Handler
	Tokens       *tokenhandler.Handler
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// NewRouter builds the service router: operational endpoints at the root,
// issuance endpoints under /v1.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		deps.Attestations.Register(r)
		deps.Credentials.Register(r)
		deps.Tokens.Register(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
