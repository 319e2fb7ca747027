package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.RPCRequests.WithLabelValues("/svc/Ping", "OK").Inc()
	m.RPCRequests.WithLabelValues("/svc/Ping", "OK").Inc()
	m.UploadsFinished.WithLabelValues("confirmed").Inc()
	m.UploadBytes.Add(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RPCRequests.WithLabelValues("/svc/Ping", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UploadsFinished.WithLabelValues("confirmed")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.UploadBytes))
}

func TestMetrics_NewIsIndependent(t *testing.T) {
	a, b := New(), New()
	a.SessionsOpened.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SessionsOpened))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SessionsOpened.Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "gophchat_sessions_opened_total 1"), string(body))
}
