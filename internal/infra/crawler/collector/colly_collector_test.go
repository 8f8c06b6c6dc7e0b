package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LouYuanbo1/watchagent/internal/config"
	"github.com/LouYuanbo1/watchagent/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("session"); err != nil || ck.Value != "ok" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("<html><body>dashboard</body></html>"))
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>login</body></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newProbe(t *testing.T) SessionProbe {
	return InitCollyProbe(config.Preflight{Enabled: true, Timeout: 5 * time.Second, UserAgent: "watchagent-test"}, zaptest.NewLogger(t))
}

func TestCheckValidSession(t *testing.T) {
	srv := newSite(t)
	cookies := []*model.Cookie{{Name: "session", Value: "ok", Domain: "litefaucet.in", Path: "/"}}

	probe, err := newProbe(t).Check(context.Background(), srv.URL+"/dashboard", cookies)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/dashboard", probe.FinalURL)
	assert.Equal(t, http.StatusOK, probe.StatusCode)
}

func TestCheckExpiredSessionRedirectsToLogin(t *testing.T) {
	srv := newSite(t)
	cookies := []*model.Cookie{{Name: "session", Value: "expired", Path: "/"}}

	probe, err := newProbe(t).Check(context.Background(), srv.URL+"/dashboard", cookies)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/dashboard", probe.RequestedURL)
	assert.Equal(t, srv.URL+"/login", probe.FinalURL)
}

func TestCheckUnreachable(t *testing.T) {
	srv := newSite(t)
	addr := srv.URL
	srv.Close()

	_, err := newProbe(t).Check(context.Background(), addr+"/dashboard", nil)
	assert.Error(t, err)
}
