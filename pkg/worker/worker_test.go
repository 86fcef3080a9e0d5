package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/pkg/ipc"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
	"github.com/shelfkeeper/shelfkeeper/pkg/storage"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) messages(t *testing.T) []ipc.Message {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []ipc.Message
	sc := ipc.NewScanner(strings.NewReader(b.buf.String()))
	for sc.Scan() {
		m, err := ipc.DecodeMessage(sc.Bytes())
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func names(msgs []ipc.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Event
	}
	return out
}

func decode[T any](t *testing.T, m ipc.Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(m.Payload, &v))
	return v
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newLibrary(t *testing.T, extensions ...string) *storage.Store {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "a.epub", "alpha")
	writeFile(t, root, "shelf/b.pdf", "bravo!")
	writeFile(t, root, ".hidden/secret.epub", "nope")
	writeFile(t, root, ".DS_Store", "x")

	store, err := storage.Open(storage.Config{Root: root, DataDir: ".shelfkeeper", Extensions: extensions})
	require.NoError(t, err)
	return store
}

// run executes job to completion with an empty control stream.
func run(t *testing.T, job Job, store *storage.Store) ([]ipc.Message, error) {
	t.Helper()
	var out syncBuffer
	err := NewRunner(job, store, "job-1", strings.NewReader(""), &out, zerolog.Nop()).Run(context.Background())
	return out.messages(t), err
}

type blockingJob struct{}

func (blockingJob) Kind() jobs.Kind { return jobs.KindScan }

func (blockingJob) Run(ctx context.Context, _ *storage.Store, r *Reporter) (any, error) {
	if err := r.Begin(3); err != nil {
		return nil, err
	}
	if err := r.Step("one"); err != nil {
		return nil, err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type failingJob struct{}

func (failingJob) Kind() jobs.Kind { return jobs.KindUpdate }

func (failingJob) Run(context.Context, *storage.Store, *Reporter) (any, error) {
	return nil, errors.New("disk on fire")
}

func TestRunner_TerminateEmitsCancelled(t *testing.T) {
	store := newLibrary(t)
	stdin, control := io.Pipe()
	var out syncBuffer

	done := make(chan error, 1)
	go func() {
		done <- NewRunner(blockingJob{}, store, "job-7", stdin, &out, zerolog.Nop()).Run(context.Background())
	}()

	require.Eventually(t, func() bool {
		return len(out.messages(t)) == 2
	}, 5*time.Second, 10*time.Millisecond)

	_, err := control.Write([]byte(`{"type":"emit_init_state"}` + "\n"))
	require.NoError(t, err)
	_, err = control.Write([]byte("not json\n"))
	require.NoError(t, err)
	_, err = control.Write([]byte(`{"type":"terminate"}` + "\n"))
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after terminate")
	}
	require.NoError(t, control.Close())

	msgs := out.messages(t)
	require.Equal(t, []string{
		ipc.EventInitState,
		ipc.EventProgress,
		ipc.EventInitState,
		ipc.EventCancelled,
	}, names(msgs))

	replay := decode[InitState](t, msgs[2])
	require.Equal(t, "job-7", replay.JobID)
	require.Equal(t, jobs.KindScan, replay.Kind)
	require.Equal(t, 3, replay.Total)
	require.Equal(t, 1, replay.Done)
	require.Equal(t, 33, replay.Pct)

	cancelled := decode[map[string]any](t, msgs[3])
	require.EqualValues(t, 1, cancelled["done"])
}

func TestRunner_ParentCancelIsAFailure(t *testing.T) {
	store := newLibrary(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out syncBuffer
	err := NewRunner(blockingJob{}, store, "job-1", strings.NewReader(""), &out, zerolog.Nop()).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotContains(t, names(out.messages(t)), ipc.EventCancelled)
}

func TestRunner_FailureSkipsComplete(t *testing.T) {
	msgs, err := run(t, failingJob{}, newLibrary(t))
	require.EqualError(t, err, "disk on fire")
	require.Empty(t, msgs)
	require.Equal(t, ExitFailure, ExitCode(err))
}

func TestReporter_ThrottlesProgress(t *testing.T) {
	var out syncBuffer
	r := newReporter(ipc.NewEncoder(&out), "j", jobs.KindScan)

	require.NoError(t, r.Begin(1000))
	for i := 0; i < 1000; i++ {
		require.NoError(t, r.Step("f"))
	}

	msgs := out.messages(t)
	require.Len(t, msgs, 1+101)
	last := decode[Progress](t, msgs[len(msgs)-1])
	require.Equal(t, Progress{Pct: 100, Done: 1000, Total: 1000, Path: "f"}, last)
}

func TestReporter_EmptyJobIsComplete(t *testing.T) {
	var out syncBuffer
	r := newReporter(ipc.NewEncoder(&out), "j", jobs.KindModify)
	require.NoError(t, r.Begin(0))
	require.Equal(t, 100, r.State().Pct)
}

func TestExitCode(t *testing.T) {
	require.Equal(t, ExitOK, ExitCode(nil))
	require.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	require.Equal(t, ExitLocked, ExitCode(&ExitError{Code: ExitLocked, Err: storage.ErrLocked}))

	wrapped := errors.Join(errors.New("context"), &ExitError{Code: ExitIncompatible, Err: errors.New("v2")})
	require.Equal(t, ExitIncompatible, ExitCode(wrapped))
}

func TestNew(t *testing.T) {
	for _, kind := range jobs.Kinds() {
		job, err := New(kind, Options{Logger: zerolog.Nop()})
		require.NoError(t, err)
		require.Equal(t, kind, job.Kind())
	}

	_, err := New("defrag", Options{})
	require.ErrorIs(t, err, jobs.ErrUnknownKind)
}
