package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(workoutsCreated.WithLabelValues("running"))
	WorkoutCreated("running")
	assert.Equal(t, before+1, testutil.ToFloat64(workoutsCreated.WithLabelValues("running")))

	beforeField := testutil.ToFloat64(validationFailures.WithLabelValues("distance"))
	ValidationFailed("distance")
	assert.Equal(t, beforeField+1, testutil.ToFloat64(validationFailures.WithLabelValues("distance")))

	beforeErr := testutil.ToFloat64(storeSaves.WithLabelValues("error"))
	StoreSaved(errors.New("disk full"))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(storeSaves.WithLabelValues("error")))

	beforeLoad := testutil.ToFloat64(storeLoadFailures)
	StoreLoadFailed()
	assert.Equal(t, beforeLoad+1, testutil.ToFloat64(storeLoadFailures))

	SetStoredWorkouts(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(storedWorkouts))
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	regOK.Store(false)
	require.NoError(t, Register(prometheus.DefaultRegisterer))
	SetStoredWorkouts(2)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "mapty_store_workouts 2")
}
