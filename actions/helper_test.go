package actions

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/relloyd/dbcop/config"
	"github.com/relloyd/dbcop/locality"
	"github.com/relloyd/dbcop/logger"
	"github.com/relloyd/dbcop/orchestrator"
	"github.com/relloyd/dbcop/preflight"
	"github.com/relloyd/dbcop/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// newTestStore returns a connections file in a temp dir along with its credential provider.
func newTestStore(t *testing.T) (*config.File, *config.LocalKeyProvider) {
	t.Helper()
	f := config.NewConfigFileWithDir(t.TempDir(), "connections.yaml", config.StaticKey(testKey))
	return f, config.NewLocalKeyProviderWithKey(testKey)
}

func addTestConnection(t *testing.T, store *config.File, creds *config.LocalKeyProvider, name string, server string) {
	t.Helper()
	err := RunConnectionAdd(&ConnectionConfig{
		Store:       store,
		Credentials: creds,
		LogicalName: name,
		Server:      server,
		UserID:      "sa",
		Password:    "Secret1!",
		Out:         &bytes.Buffer{},
	})
	require.NoError(t, err)
}

type fakeAnalyzer struct {
	locality locality.Locality
	servers  []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, server string) locality.Report {
	f.servers = append(f.servers, server)
	return locality.Report{Decision: locality.Decision{Server: server, Host: server, Locality: f.locality}}
}

func (f *fakeAnalyzer) Classify(ctx context.Context, server string) locality.Decision {
	return f.Analyze(ctx, server).Decision
}

type fakePreflight struct{}

func (fakePreflight) Run(context.Context, preflight.Plan) (*preflight.Report, error) {
	return &preflight.Report{}, nil
}

// fakeExecutor succeeds, writing any /TargetFile it is given, unless block is set
// in which case it waits for cancellation.
type fakeExecutor struct {
	mu    sync.Mutex
	calls int
	block bool
}

func (f *fakeExecutor) Execute(ctx context.Context, _ string, args []string, _ string) (*process.Result, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return &process.Result{Cancelled: true}, process.ErrCancelled
	}
	for _, a := range args {
		if strings.HasPrefix(a, "/TargetFile:") {
			if err := os.WriteFile(strings.TrimPrefix(a, "/TargetFile:"), []byte("package"), 0600); err != nil {
				return nil, err
			}
		}
	}
	return &process.Result{Succeeded: true}, nil
}

type fakeLocator struct {
	path string
}

func (f fakeLocator) Locate(context.Context, string) (string, error) {
	return f.path, nil
}

// newTestSyncService returns a SyncService over a temp connections file holding "src" and "tgt".
func newTestSyncService(t *testing.T, l locality.Locality, exec *fakeExecutor) *SyncService {
	t.Helper()
	store, creds := newTestStore(t)
	addTestConnection(t, store, creds, "src", "src01")
	addTestConnection(t, store, creds, "tgt", "tgt01")
	dir := t.TempDir()
	tool := filepath.Join(dir, "sqlpackage")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0700))
	log := logger.Discard()
	return &SyncService{
		Log:          log,
		Orchestrator: orchestrator.New(log, &fakeAnalyzer{locality: l}, fakePreflight{}, exec),
		Connections:  ConnectionSource{Loader: store, Credentials: creds},
		Locator:      fakeLocator{path: tool},
		TempDir:      dir,
		Metrics:      NewSyncMetrics(),
	}
}

func TestAskYesNo(t *testing.T) {
	cases := map[string]bool{"y\n": true, "YES\n": true, " yes \n": true, "n\n": false, "\n": false, "": false, "sure\n": false}
	for in, want := range cases {
		w := &bytes.Buffer{}
		got, err := askYesNo(context.Background(), strings.NewReader(in), w, "Continue? ")
		assert.NoError(t, err)
		assert.Equal(t, want, got, "answer %q", in)
		assert.Equal(t, "Continue? ", w.String())
	}
}

func TestAskYesNoCancelled(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() { _ = w.Close(); _ = r.Close() }()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := askYesNo(ctx, r, &bytes.Buffer{}, "? ")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfirmRemoteFunc(t *testing.T) {
	d := locality.Decision{Server: "far01", Locality: locality.Remote}
	// Test 1: assume yes never asks.
	ok, err := GetConfirmRemoteFunc(nil, &bytes.Buffer{}, true)(context.Background(), d)
	assert.NoError(t, err)
	assert.True(t, ok)
	// Test 2: a non-terminal input declines.
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	w := &bytes.Buffer{}
	ok, err = GetConfirmRemoteFunc(f, w, false)(context.Background(), d)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, w.String(), "--yes")
}

func TestSessionLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "logs", "run.txt")
	log, got, closeLog, err := newSessionLogger("info", false, name)
	require.NoError(t, err)
	assert.Equal(t, name, got)
	log.Info("hello transcript")
	closeLog()
	b, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello transcript")
}

func TestDefaultLogFileName(t *testing.T) {
	n := DefaultLogFileName("/tmp", mustTime(t, "2026-01-02T03:04:05Z"))
	assert.Equal(t, filepath.Join("/tmp", "DatabaseSync_Log_20260102_030405.txt"), n)
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tm
}
