package router

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dict-gateway/go/internal/middleware"
	"github.com/dict-gateway/go/internal/modules/auth"
	"github.com/dict-gateway/go/internal/modules/dictapi"
	"github.com/dict-gateway/go/internal/modules/health"
	"github.com/dict-gateway/go/internal/modules/pixapi"
	"github.com/dict-gateway/go/internal/telemetry"
)

// spanNames maps route patterns to custom span names
var spanNames = map[string]string{
	"GET /health":           "health",
	"POST /auth/login":      "auth.login",
	"POST /dict/operations": "dict.simulate",
	"POST /dict/payments":   "dict.payments.register",
	"GET /dict/buckets":     "dict.buckets.list",
	"GET /dict/bucket":      "dict.buckets.get",
	"POST /pix/queries":     "pix.query",
	"GET /pix/bucket":       "pix.bucket",
}

// Setup creates and configures the HTTP router with all routes
func Setup(
	jwtSecret string,
	authHandler *auth.Handler,
	dictHandler *dictapi.Handler,
	pixHandler *pixapi.Handler,
	mwManager *middleware.Manager,
) http.Handler {
	mux := http.NewServeMux()

	healthHandler := health.NewHandler()
	authn := middleware.AuthMiddleware(jwtSecret)

	// Health and metrics endpoints
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	// Auth routes (no auth middleware)
	mux.HandleFunc("POST /auth/login", authHandler.Login)

	// DICT rate-limit engine routes. The edge throttle runs after auth so it
	// can bucket by tenant; the idempotency layer wraps the payment credit.
	mux.Handle("POST /dict/operations", middleware.Chain(
		http.HandlerFunc(dictHandler.Simulate),
		authn,
		mwManager.Throttle,
	))
	mux.Handle("POST /dict/payments", middleware.Chain(
		http.HandlerFunc(dictHandler.RegisterPayment),
		authn,
		mwManager.Throttle,
		mwManager.Idempotency,
	))
	mux.Handle("GET /dict/buckets", middleware.Chain(
		http.HandlerFunc(dictHandler.ListBuckets),
		authn,
	))
	mux.Handle("GET /dict/bucket", middleware.Chain(
		http.HandlerFunc(dictHandler.GetBucket),
		authn,
	))

	// PIX query-quota routes
	mux.Handle("POST /pix/queries", middleware.Chain(
		http.HandlerFunc(pixHandler.Query),
		authn,
		mwManager.Throttle,
	))
	mux.Handle("GET /pix/bucket", middleware.Chain(
		http.HandlerFunc(pixHandler.Bucket),
		authn,
	))

	// Global middlewares: metrics -> logging -> CORS -> routes
	innerHandler := middleware.MetricsMiddleware(
		middleware.LoggingMiddleware(
			middleware.CORSMiddleware(mux),
		),
	)

	// Wrap with otelhttp for automatic tracing with custom span names
	handler := otelhttp.NewHandler(
		innerHandler,
		"dict-gateway",
		otelhttp.WithTracerProvider(telemetry.TracerProvider),
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			key := r.Method + " " + r.Pattern
			if name, ok := spanNames[key]; ok {
				return name
			}
			if r.Pattern != "" {
				return r.Pattern
			}
			return r.URL.Path
		}),
	)

	return handler
}
