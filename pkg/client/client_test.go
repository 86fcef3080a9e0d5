package client

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/ipc"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/api"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/auth"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/httpx"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/relay"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/ws"
)

const (
	adminToken = "admin-token-123"
	aliceToken = "alice-token-456"
)

type stubJobs struct {
	mu          sync.Mutex
	running     *jobs.Status
	initStateRq int
}

func (s *stubJobs) Start(_ context.Context, kind jobs.Kind) (jobs.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != nil {
		return jobs.Status{}, jobs.ErrAlreadyRunning
	}
	s.running = &jobs.Status{ID: "0f5c2a9e-job", Kind: kind, PID: 4242}
	return *s.running, nil
}

func (s *stubJobs) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		return jobs.ErrNoActiveJob
	}
	s.running.Cancelling = true
	return nil
}

func (s *stubJobs) RequestInitState() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initStateRq++
	if s.running == nil {
		return jobs.ErrNoActiveJob
	}
	return nil
}

func (s *stubJobs) Status() (jobs.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		return jobs.Status{}, false
	}
	return *s.running, true
}

type testServer struct {
	*httptest.Server
	jobs     *stubJobs
	registry *ws.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	authCfg := config.AuthConfig{Mode: "token", Users: []config.UserConfig{
		{Name: "admin", Group: "admin", Token: adminToken},
		{Name: "alice", Group: "user", Token: aliceToken},
	}}
	table := auth.NewTable(authCfg, zerolog.Nop())
	registry := ws.NewRegistry(zerolog.Nop())
	ctrl := &stubJobs{}

	ready := &atomic.Bool{}
	ready.Store(true)
	deps := &api.Deps{
		Jobs:     ctrl,
		Sessions: registry,
		Settings: config.DefaultConfig,
		Config:   api.DefaultConfig(),
		Ready:    ready,
	}
	wsHandler := ws.NewHandler(registry, ctrl, config.WSConfig{SendQueue: 16}, table.Enabled, zerolog.Nop())
	srv := httptest.NewServer(httpx.Chain(table, httpx.NewRouter(deps, wsHandler)))
	t.Cleanup(func() {
		registry.CloseAll()
		srv.Close()
	})

	return &testServer{Server: srv, jobs: ctrl, registry: registry}
}

func newClient(t *testing.T, server, token string) *Client {
	t.Helper()
	c, err := New(Options{Server: server, Token: token, RetryMax: 2, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return c
}

func TestClient_JobLifecycle(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv.URL, adminToken)
	ctx := context.Background()

	require.NoError(t, c.Ready(ctx))

	resp, err := c.Job(ctx)
	require.NoError(t, err)
	require.False(t, resp.Running)

	require.ErrorIs(t, c.CancelJob(ctx), jobs.ErrNoActiveJob)

	st, err := c.StartJob(ctx, jobs.KindScan)
	require.NoError(t, err)
	require.Equal(t, jobs.KindScan, st.Kind)
	require.Equal(t, 4242, st.PID)

	_, err = c.StartJob(ctx, jobs.KindUpdate)
	require.ErrorIs(t, err, jobs.ErrAlreadyRunning)
	require.Equal(t, "JOB_ALREADY_RUNNING", jobs.ErrorCode(err))

	require.NoError(t, c.CancelJob(ctx))

	resp, err = c.Job(ctx)
	require.NoError(t, err)
	require.True(t, resp.Running)
	require.True(t, resp.Job.Cancelling)
}

func TestClient_UnknownKind(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv.URL, adminToken)

	_, err := c.StartJob(context.Background(), "defrag")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.ErrorIs(t, err, jobs.ErrUnknownKind)
}

func TestClient_AuthErrors(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := newClient(t, srv.URL, "wrong-token").Job(ctx)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = newClient(t, srv.URL, aliceToken).StartJob(ctx, jobs.KindScan)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = newClient(t, srv.URL, "wrong-token").Dial(ctx)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_ConfigOmitsTokens(t *testing.T) {
	srv := newTestServer(t)

	cfg, err := newClient(t, srv.URL, aliceToken).Config(context.Background())
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, ".shelfkeeper", cfg.Library.DataDir)
}

func TestClient_RetriesGatewayErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("Ready"))
	}))
	defer srv.Close()

	require.NoError(t, newClient(t, srv.URL, "").Ready(context.Background()))
	require.EqualValues(t, 3, hits.Load())
}

func TestClient_DoesNotRetryJobErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		api.WriteError(w, r, &jobs.SpawnError{Kind: jobs.KindScan, Err: context.DeadlineExceeded})
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, "").StartJob(context.Background(), jobs.KindScan)
	require.ErrorIs(t, err, jobs.ErrSpawnFailed)
	require.EqualValues(t, 1, hits.Load())
}

func TestNew_RejectsBadURLs(t *testing.T) {
	for _, server := range []string{"", "localhost:8080", "ftp://host", "http://"} {
		_, err := New(Options{Server: server})
		require.Error(t, err, server)
	}
}

func TestWatch_StreamsUntilTerminalEvent(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv.URL, aliceToken)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		mu     sync.Mutex
		events []string
	)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(env ws.Envelope) error {
			mu.Lock()
			events = append(events, env.Event)
			mu.Unlock()
			if Terminal(env.Event) {
				return ErrStopWatching
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		srv.jobs.mu.Lock()
		defer srv.jobs.mu.Unlock()
		return srv.jobs.initStateRq == 1
	}, 5*time.Second, 10*time.Millisecond)

	srv.registry.Broadcast(relay.EventJobStarted, relay.JobStart{JobID: "j1", Kind: jobs.KindScan})
	srv.registry.Broadcast(ipc.EventProgress, map[string]any{"pct": 50, "done": 1, "total": 2})
	srv.registry.Broadcast(ipc.EventComplete, map[string]any{"files": 2})

	require.NoError(t, <-done)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{relay.EventJobStarted, ipc.EventProgress, ipc.EventComplete}, events)
}

func TestSession_GreetingAndSignals(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	s, err := newClient(t, srv.URL, aliceToken).Dial(ctx)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, "alice", s.Greeting().User.Name)
	require.True(t, s.Greeting().Auth)

	require.NoError(t, s.Send(ws.SignalPerformScan, nil))
	env, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, ws.EventJobRejected, env.Event)
	require.Contains(t, string(env.Payload), ws.CodeForbidden)
}

func TestRenderer(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, false)

	frames := []ws.Envelope{
		{Event: ws.EventSuccess, Payload: []byte(`{"message":"hi","user":{"name":"admin","group":"admin"},"auth":true}`)},
		{Event: relay.EventJobStarted, Payload: []byte(`{"job_id":"0123456789abcdef","kind":"scan"}`)},
		{Event: ipc.EventInitState, Payload: []byte(`{"kind":"scan","total":4,"done":0}`)},
		{Event: ipc.EventProgress, Payload: []byte(`{"pct":50,"done":2,"total":4}`)},
		{Event: ipc.EventComplete, Payload: []byte(`{"files":4,"bytes":1024}`)},
		{Event: relay.EventScanError, Payload: []byte(`{"kind":"update","exit_code":3,"error":"exit status 3"}`)},
		{Event: ws.EventJobRejected, Payload: []byte(`{"signal":"PERFORM_SCAN","reason":"busy","code":"JOB_ALREADY_RUNNING"}`)},
		{Event: "ALBUM_FOUND", Payload: []byte(`"Kind of Blue"`)},
		{Event: "NOISY", Payload: []byte(`"` + strings.Repeat("x", 400) + `"`)},
	}
	for _, f := range frames {
		r.Render(f)
	}

	text := out.String()
	for _, want := range []string{
		"connected as admin",
		"scan job 01234567 started",
		"job complete  bytes=1024 files=4",
		"update job failed with exit code 3: exit status 3",
		"PERFORM_SCAN rejected: busy (JOB_ALREADY_RUNNING)",
		`ALBUM_FOUND "Kind of Blue"`,
		"NOISY \"" + strings.Repeat("x", 156) + "...",
	} {
		require.Contains(t, text, want)
	}

	require.True(t, Terminal(ipc.EventCancelled))
	require.False(t, Terminal(ipc.EventProgress))
}
