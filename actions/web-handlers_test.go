package actions

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/relloyd/dbcop/locality"
	"github.com/relloyd/dbcop/logger"
	"github.com/relloyd/dbcop/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, l locality.Locality, exec *fakeExecutor) (*httptest.Server, *SyncService) {
	t.Helper()
	svc := newTestSyncService(t, l, exec)
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(newRouter(logger.Discard(), ctx, svc, &fakeAnalyzer{locality: l}))
	t.Cleanup(func() {
		cancel()
		if s := svc.Orchestrator.Current(); s != nil {
			s.Wait()
		}
		srv.Close()
	})
	return srv, svc
}

func postJSON(t *testing.T, url string, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	m := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(b, &m), string(b))
	return m
}

func TestWebHealth(t *testing.T) {
	srv, _ := newTestServer(t, locality.Local, &fakeExecutor{})
	resp, body := getJSON(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "ok", body["status"])
}

func TestWebSyncLifecycle(t *testing.T) {
	srv, svc := newTestServer(t, locality.Local, &fakeExecutor{})
	// Test 1: no session yet.
	resp, _ := getJSON(t, srv.URL+"/syncs/current")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	// Test 2: start a sync and wait for it.
	resp, body := postJSON(t, srv.URL+"/syncs", `{"mode":"safe","source":"src.Orders","target":"tgt"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, body)
	id, _ := body["sessionId"].(string)
	require.NotEmpty(t, id)
	o := svc.Orchestrator.Current().Wait()
	assert.Equal(t, orchestrator.Completed, o.State)
	// Test 3: the status shows the finished session.
	resp, body = getJSON(t, srv.URL+"/syncs/current")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	st, ok := body["sync"].(map[string]interface{})
	require.True(t, ok, body)
	assert.Equal(t, id, st["id"])
	assert.Equal(t, "Completed", st["state"])
	assert.EqualValues(t, 100, st["percent"])
	// Test 4: nothing to cancel once finished.
	resp, _ = postJSON(t, srv.URL+"/syncs/current/cancel", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWebSyncBusyAndCancel(t *testing.T) {
	exec := &fakeExecutor{block: true}
	srv, svc := newTestServer(t, locality.Local, exec)
	resp, _ := postJSON(t, srv.URL+"/syncs", `{"mode":"full","source":"src.Orders","target":"tgt.Copy"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	// Test 1: a second sync is refused while the first runs.
	resp, body := postJSON(t, srv.URL+"/syncs", `{"mode":"full","source":"src.Orders","target":"tgt.Copy"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "error", body["status"])
	// Test 2: cancel stops it.
	resp, _ = postJSON(t, srv.URL+"/syncs/current/cancel", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	select {
	case <-svc.Orchestrator.Current().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("sync did not stop after cancel")
	}
	assert.Equal(t, orchestrator.Cancelled, svc.Orchestrator.Current().Wait().State)
}

func TestWebSyncRemoteNeedsConfirmation(t *testing.T) {
	exec := &fakeExecutor{}
	srv, svc := newTestServer(t, locality.Remote, exec)
	// Test 1: without confirmRemote the session is cancelled before any work.
	resp, _ := postJSON(t, srv.URL+"/syncs", `{"mode":"force","source":"src.Orders","target":"tgt"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	o := svc.Orchestrator.Current().Wait()
	assert.Equal(t, orchestrator.Cancelled, o.State)
	assert.Equal(t, orchestrator.ReasonRemoteDeclined, o.Reason)
	assert.Equal(t, 0, exec.calls)
	// Test 2: with it the sync runs.
	resp, _ = postJSON(t, srv.URL+"/syncs", `{"mode":"force","source":"src.Orders","target":"tgt","confirmRemote":true}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	o = svc.Orchestrator.Current().Wait()
	assert.Equal(t, orchestrator.Completed, o.State)
	assert.Equal(t, 2, exec.calls)
}

func TestWebSyncBadRequests(t *testing.T) {
	srv, _ := newTestServer(t, locality.Local, &fakeExecutor{})
	bodies := []string{
		`not json`,
		`{"mode":"sideways","source":"src.Orders","target":"tgt"}`,
		`{"mode":"safe","source":"src","target":"tgt"}`,
		`{"mode":"safe","source":"nope.Orders","target":"tgt"}`,
		`{"mode":"safe","target":"tgt"}`,
	}
	for _, b := range bodies {
		resp, body := postJSON(t, srv.URL+"/syncs", b)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, b)
		assert.Equal(t, "error", body["status"], b)
	}
}

func TestWebAnalyze(t *testing.T) {
	srv, _ := newTestServer(t, locality.Remote, &fakeExecutor{})
	resp, body := getJSON(t, srv.URL+"/analyze/far01")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	d, ok := body["decision"].(map[string]interface{})
	require.True(t, ok, body)
	assert.Equal(t, "far01", d["server"])
	assert.Equal(t, "remote", d["locality"])
	assert.Contains(t, body["report"], "far01")
}

func TestWebMetrics(t *testing.T) {
	srv, svc := newTestServer(t, locality.Local, &fakeExecutor{})
	resp, _ := postJSON(t, srv.URL+"/syncs", `{"mode":"safe","source":"src.Orders","target":"tgt"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	svc.Orchestrator.Current().Wait()
	require.Eventually(t, func() bool {
		r, err := http.Get(srv.URL + "/metrics")
		if err != nil {
			return false
		}
		defer func() { _ = r.Body.Close() }()
		b, _ := io.ReadAll(r.Body)
		return strings.Contains(string(b), `dbcop_syncs_total{kind="",mode="SafeSchema",state="Completed"} 1`)
	}, 5*time.Second, 50*time.Millisecond)
}
