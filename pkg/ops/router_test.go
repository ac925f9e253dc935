package ops_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/ops"
	"github.com/dmitrymomot/notifykit/pkg/provider"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

type stubStats struct {
	stats queue.Stats
	err   error
}

func (s stubStats) QueueStats(context.Context) (queue.Stats, error) {
	return s.stats, s.err
}

type stubHealth struct {
	health []provider.Health
}

func (s stubHealth) ProviderHealth() []provider.Health {
	return s.health
}

type stubAudit struct {
	events []audit.Event
	err    error
	got    audit.Criteria
}

func (s *stubAudit) AuditTrail(_ context.Context, criteria audit.Criteria) ([]audit.Event, error) {
	s.got = criteria
	return s.events, s.err
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("liveness without checks", func(t *testing.T) {
		t.Parallel()

		rec := get(t, ops.Router(ops.RouterOptions{}), "/health")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("ready when all checks pass", func(t *testing.T) {
		t.Parallel()

		router := ops.Router(ops.RouterOptions{
			Readiness: []func(context.Context) error{
				func(context.Context) error { return nil },
				func(context.Context) error { return nil },
			},
		})

		rec := get(t, router, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unavailable when a check fails", func(t *testing.T) {
		t.Parallel()

		router := ops.Router(ops.RouterOptions{
			Readiness: []func(context.Context) error{
				func(context.Context) error { return errors.New("pg down") },
			},
		})

		rec := get(t, router, "/health")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
	})
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("reports queue counters", func(t *testing.T) {
		t.Parallel()

		router := ops.Router(ops.RouterOptions{
			Stats: stubStats{stats: queue.Stats{
				Total:        10,
				ByStatus:     map[queue.Status]int{queue.StatusPending: 4, queue.StatusDelivered: 6},
				DeliveryRate: 1,
			}},
		})

		rec := get(t, router, "/queue/stats")
		require.Equal(t, http.StatusOK, rec.Code)

		var body queue.Stats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 10, body.Total)
		assert.Equal(t, 4, body.ByStatus[queue.StatusPending])
	})

	t.Run("storage failure maps to 500", func(t *testing.T) {
		t.Parallel()

		router := ops.Router(ops.RouterOptions{
			Stats: stubStats{err: queue.ErrStorageFailure},
		})

		rec := get(t, router, "/queue/stats")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("unmounted without a source", func(t *testing.T) {
		t.Parallel()

		rec := get(t, ops.Router(ops.RouterOptions{}), "/queue/stats")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestProvidersEndpoint(t *testing.T) {
	t.Parallel()

	router := ops.Router(ops.RouterOptions{
		Providers: stubHealth{health: []provider.Health{
			{Name: "fcm", Kind: provider.KindPush, Enabled: true, Healthy: true, CircuitState: "closed"},
			{Name: "socket", Kind: provider.KindSocket, Enabled: true, Healthy: false, CircuitState: "open"},
		}},
	})

	rec := get(t, router, "/providers")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []provider.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "fcm", body[0].Name)
	assert.Equal(t, "open", body[1].CircuitState)
}

func TestAuditEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("passes filters through", func(t *testing.T) {
		t.Parallel()

		source := &stubAudit{}
		router := ops.Router(ops.RouterOptions{Audit: source})
		userID := uuid.New()

		rec := get(t, router, "/audit?user_id="+userID.String()+
			"&provider=fcm&type=comment&result=failed&from=2025-06-01T00:00:00Z&limit=5&offset=10")
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, userID, source.got.UserID)
		assert.Equal(t, "fcm", source.got.Provider)
		assert.Equal(t, "comment", source.got.NotificationType)
		assert.Equal(t, audit.ResultFailed, source.got.Result)
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), source.got.From.UTC())
		assert.Equal(t, 5, source.got.Limit)
		assert.Equal(t, 10, source.got.Offset)
	})

	t.Run("limit defaults when unset", func(t *testing.T) {
		t.Parallel()

		source := &stubAudit{}
		router := ops.Router(ops.RouterOptions{Audit: source})

		rec := get(t, router, "/audit")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 100, source.got.Limit)
	})

	t.Run("empty result is an empty array", func(t *testing.T) {
		t.Parallel()

		router := ops.Router(ops.RouterOptions{Audit: &stubAudit{}})

		rec := get(t, router, "/audit")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"events":[]}`, rec.Body.String())
	})

	t.Run("rejects malformed parameters", func(t *testing.T) {
		t.Parallel()

		router := ops.Router(ops.RouterOptions{Audit: &stubAudit{}})

		for name, target := range map[string]string{
			"bad user id": "/audit?user_id=not-a-uuid",
			"bad result":  "/audit?result=maybe",
			"bad from":    "/audit?from=yesterday",
			"bad limit":   "/audit?limit=-1",
			"bad offset":  "/audit?offset=ten",
		} {
			t.Run(name, func(t *testing.T) {
				rec := get(t, router, target)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			})
		}
	})

	t.Run("source failure maps to 500", func(t *testing.T) {
		t.Parallel()

		router := ops.Router(ops.RouterOptions{Audit: &stubAudit{err: audit.ErrStorageFailure}})

		rec := get(t, router, "/audit")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
