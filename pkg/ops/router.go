package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/provider"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// defaultAuditLimit bounds audit queries that do not ask for a page size.
const defaultAuditLimit = 100

// StatsSource reports queue counters. The engine facade satisfies it.
type StatsSource interface {
	QueueStats(ctx context.Context) (queue.Stats, error)
}

// HealthSource reports per-provider delivery health. The engine facade
// satisfies it.
type HealthSource interface {
	ProviderHealth() []provider.Health
}

// AuditSource serves audit trail queries. The engine facade satisfies it.
type AuditSource interface {
	AuditTrail(ctx context.Context, criteria audit.Criteria) ([]audit.Event, error)
}

// RouterOptions wires the data sources behind the operational endpoints.
// Nil sources leave their endpoints unmounted.
type RouterOptions struct {
	Stats     StatsSource
	Providers HealthSource
	Audit     AuditSource
	// Readiness checks back GET /health; with none the endpoint reports
	// liveness only.
	Readiness []func(context.Context) error
	Logger    *slog.Logger
}

// Router builds the read-only operational surface:
//
//	GET /health       — liveness/readiness
//	GET /queue/stats  — counts by status, delivery/failure rate
//	GET /providers    — per-provider health, breaker state, latency
//	GET /audit        — delivery audit trail, filterable
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/ops", ops.Router(ops.RouterOptions{
//	    Stats:     engine,
//	    Providers: engine,
//	    Audit:     engine,
//	    Readiness: []func(context.Context) error{pg.Healthcheck(pool)},
//	}))
func Router(opts RouterOptions) chi.Router {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Get("/health", healthHandler(opts.Readiness, log))
	if opts.Stats != nil {
		r.Get("/queue/stats", statsHandler(opts.Stats, log))
	}
	if opts.Providers != nil {
		r.Get("/providers", providersHandler(opts.Providers))
	}
	if opts.Audit != nil {
		r.Get("/audit", auditHandler(opts.Audit, log))
	}
	return r
}

func healthHandler(checks []func(context.Context) error, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed", logger.Error(err))
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func statsHandler(source StatsSource, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := source.QueueStats(r.Context())
		if err != nil {
			log.ErrorContext(r.Context(), "queue stats lookup failed", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "queue stats unavailable")
			return
		}
		respondJSON(w, http.StatusOK, stats)
	}
}

func providersHandler(source HealthSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, source.ProviderHealth())
	}
}

func auditHandler(source AuditSource, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		criteria, err := parseCriteria(r.URL.Query())
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		events, err := source.AuditTrail(r.Context(), criteria)
		if err != nil {
			log.ErrorContext(r.Context(), "audit query failed", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "audit trail unavailable")
			return
		}
		if events == nil {
			events = []audit.Event{}
		}
		respondJSON(w, http.StatusOK, map[string]any{"events": events})
	}
}

// parseCriteria maps query parameters onto audit.Criteria. Unset parameters
// do not filter; limit defaults to defaultAuditLimit so an unqualified query
// cannot dump the whole trail.
func parseCriteria(q url.Values) (audit.Criteria, error) {
	criteria := audit.Criteria{Limit: defaultAuditLimit}

	if s := q.Get("user_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return criteria, fmt.Errorf("user_id: %w", err)
		}
		criteria.UserID = id
	}
	if s := q.Get("notification_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return criteria, fmt.Errorf("notification_id: %w", err)
		}
		criteria.NotificationID = id
	}
	criteria.Provider = q.Get("provider")
	criteria.NotificationType = q.Get("type")
	if s := q.Get("result"); s != "" {
		result := audit.Result(s)
		if !result.Valid() {
			return criteria, fmt.Errorf("result: unknown value %q", s)
		}
		criteria.Result = result
	}
	if s := q.Get("from"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return criteria, fmt.Errorf("from: %w", err)
		}
		criteria.From = ts
	}
	if s := q.Get("to"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return criteria, fmt.Errorf("to: %w", err)
		}
		criteria.To = ts
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return criteria, fmt.Errorf("limit: must be a non-negative integer")
		}
		criteria.Limit = n
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return criteria, fmt.Errorf("offset: must be a non-negative integer")
		}
		criteria.Offset = n
	}
	return criteria, nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
