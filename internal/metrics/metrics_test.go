package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crewplanner/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.NotificationQueued(domain.NotificationAddedToCrew)
	m.NotificationQueued(domain.NotificationAddedToCrew)
	m.NotificationSent(domain.NotificationAddedToCrew)
	m.NotificationFailed(domain.NotificationEventCanceled)
	m.SweepRun("confirmation_requests", nil)
	m.SweepRun("confirmation_requests", errors.New("boom"))
	m.RequestObserved(http.MethodGet, http.StatusOK, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotificationsQueued.WithLabelValues("added_to_crew")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues("added_to_crew")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsFailed.WithLabelValues("event_canceled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepRuns.WithLabelValues("confirmation_requests", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepRuns.WithLabelValues("confirmation_requests", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "200")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.NotificationQueued(domain.NotificationConfirmationRequest)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `crewplanner_notifications_queued_total{type="confirmation_request"} 1`)
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
