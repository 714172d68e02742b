// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStage(t *testing.T) {
	before := testutil.CollectAndCount(StageDuration)
	ObserveStage("metrics_test_stage", time.Now().Add(-10*time.Millisecond))
	assert.Equal(t, before+1, testutil.CollectAndCount(StageDuration))
}

func TestCounters(t *testing.T) {
	RunOutcomes.WithLabelValues("papers").Inc()
	RunOutcomes.WithLabelValues("papers").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(RunOutcomes.WithLabelValues("papers")), 2.0)

	CircuitBreakerState.WithLabelValues("metrics-test").Set(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(CircuitBreakerState.WithLabelValues("metrics-test")))
}

func TestHandlerExposesInstruments(t *testing.T) {
	StageErrors.WithLabelValues("retrieval", "upstream_service_failure").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "recommender_stage_errors_total"))
}
