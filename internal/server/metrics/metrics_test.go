package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RegisterListenerGauge(func() int { return 3 })
	m.PulledDocumentsTotal.WithLabelValues("businesses").Add(5)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.PulledDocumentsTotal.WithLabelValues("businesses")))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `docsync_pulled_documents_total{collection="businesses"} 5`)
	assert.Contains(t, body, "docsync_stream_listeners 3")
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	// Повторная регистрация в новом реестре не паникует
	assert.NotPanics(t, func() {
		_ = New()
		_ = New()
	})
}
