package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/logger"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/service"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/telemetry"
)

const (
	maxJSONBytes   = 1 << 20
	maxImportBytes = 32 << 20

	DefaultImportRatePerMinute = 20
)

type Options struct {
	AllowedOrigin       string
	Logger              *zap.Logger
	Metrics             *telemetry.Metrics
	ImportRatePerMinute int
}

type API struct {
	service       *service.Service
	tokens        *TokenManager
	allowedOrigin string
	log           *zap.Logger
	metrics       *telemetry.Metrics
	importLimiter *tenantLimiter
}

func New(svc *service.Service, tokens *TokenManager, opts Options) *API {
	log := logger.OrNop(opts.Logger)
	perMinute := opts.ImportRatePerMinute
	if perMinute < 1 {
		perMinute = DefaultImportRatePerMinute
	}
	return &API{
		service:       svc,
		tokens:        tokens,
		allowedOrigin: opts.AllowedOrigin,
		log:           log,
		metrics:       opts.Metrics,
		importLimiter: newTenantLimiter(perMinute),
	}
}

// tenantLimiter hands each tenant its own token bucket refilled at
// perMinute tokens per minute.
type tenantLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newTenantLimiter(perMinute int) *tenantLimiter {
	return &tenantLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *tenantLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	if a.metrics != nil {
		mux.Handle("/metrics", a.metrics.Handler())
	}

	mux.HandleFunc("/api/v1/imports", a.requireAuth(a.handleImports, RoleAdmin))
	mux.HandleFunc("/api/v1/tickets", a.requireAuth(a.handleTickets, RoleViewer, RoleAdmin))
	mux.HandleFunc("/api/v1/metrics/summary", a.requireAuth(a.handleSummary, RoleViewer, RoleAdmin))
	mux.HandleFunc("/api/v1/metrics/reps", a.requireAuth(a.handleRepPerformance, RoleViewer, RoleAdmin))
	mux.HandleFunc("/api/v1/ledger", a.requireAuth(a.handleLedger, RoleAdmin))
	mux.HandleFunc("/api/v1/ledger/dedupe", a.requireAuth(a.handleDedupe, RoleAdmin))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.tokens.ParseToken(token)
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			a.writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleImports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	actor, _ := service.ActorFromContext(r.Context())
	if !a.importLimiter.Allow(actor.Tenant.Key()) {
		a.writeError(w, http.StatusTooManyRequests, errors.New("too many imports, try again shortly"))
		return
	}

	var req domain.ImportRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.Import(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleTickets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	filter, err := filterFromQuery(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	resp, err := a.service.Tickets(r.Context(), filter)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	filter, err := filterFromQuery(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	summary, err := a.service.Summary(r.Context(), filter)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleRepPerformance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	filter, err := filterFromQuery(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	resp, err := a.service.RepPerformance(r.Context(), filter)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLedger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		a.writeMethodNotAllowed(w)
		return
	}

	deleted, err := a.service.DeleteTenantLedger(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (a *API) handleDedupe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	removed, err := a.service.DedupeLedger(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func filterFromQuery(r *http.Request) (domain.LedgerFilter, error) {
	q := r.URL.Query()
	return service.ParseFilter(q.Get("from"), q.Get("to"), q.Get("store_id"), q.Get("sales_rep"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			limit := int64(maxJSONBytes)
			if r.URL.Path == "/api/v1/imports" {
				limit = maxImportBytes
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(startedAt)),
		)
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	a.writeError(w, statusFor(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidFilter), errors.Is(err, service.ErrEmptyImport):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrMissingTenant):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the cause goes to the log only.
	msg := err.Error()
	if status >= 500 {
		a.log.Error("internal error", zap.Int("status", status), zap.Error(err))
		msg = "internal server error"
		if errors.Is(err, service.ErrComputeFailed) {
			msg = service.ErrComputeFailed.Error()
		}
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
