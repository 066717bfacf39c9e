package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAction(t *testing.T) {
	m := New()

	m.RecordAction("click", true, time.Millisecond)
	m.RecordAction("click", true, time.Millisecond)
	m.RecordAction("drop", false, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActionTotal.WithLabelValues("click", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionTotal.WithLabelValues("drop", "failed")))
}

func TestRecordStore(t *testing.T) {
	m := New()

	m.RecordStore("save", nil, time.Millisecond)
	m.RecordStore("load", errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreTotal.WithLabelValues("save", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreTotal.WithLabelValues("load", "failed")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.OnlinePlayers.Set(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "slotcore_online_players 3"))
}
