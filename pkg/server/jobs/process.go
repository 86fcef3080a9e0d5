package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/ipc"
)

// ArgsFunc builds the worker command line (without the executable) for a job.
type ArgsFunc func(spec Spec) []string

// WorkerArgs returns the command line for the bundled "worker" subcommand.
func WorkerArgs(lib config.LibraryConfig, refreshAll bool) ArgsFunc {
	return func(spec Spec) []string {
		args := []string{
			"worker", string(spec.Kind),
			"--protocol", ipc.ProtocolVersion,
			"--job-id", spec.JobID,
			"--library.root", lib.Root,
			"--library.data_dir", lib.DataDir,
		}
		if len(lib.Extensions) > 0 {
			args = append(args, "--library.extensions", strings.Join(lib.Extensions, ","))
		}
		if spec.Kind == KindUpdate && refreshAll {
			args = append(args, "--refresh-all")
		}
		return args
	}
}

// ProcessLauncher runs each job as a child process speaking the ipc protocol
// on stdin and stdout. The worker's stderr is forwarded to the logger.
type ProcessLauncher struct {
	path   string
	args   ArgsFunc
	env    []string
	logger zerolog.Logger
}

// NewProcessLauncher creates a launcher for the executable at path.
// An empty path re-executes the running binary.
func NewProcessLauncher(path string, args ArgsFunc, logger zerolog.Logger) *ProcessLauncher {
	return &ProcessLauncher{
		path:   path,
		args:   args,
		logger: logger.With().Str("component", "jobs.launcher").Logger(),
	}
}

// WithEnv adds environment variables to every launched worker.
func (l *ProcessLauncher) WithEnv(env ...string) *ProcessLauncher {
	l.env = append(l.env, env...)
	return l
}

// Launch starts the worker process. The process is not bound to ctx: a job
// outlives the request that started it and ends through Cancel or Kill.
func (l *ProcessLauncher) Launch(ctx context.Context, spec Spec) (Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := l.path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		path = exe
	}

	cmd := exec.Command(path, l.args(spec)...)
	cmd.Env = append(os.Environ(), l.env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	w := &processWorker{
		cmd:   cmd,
		stdin: stdin,
		enc:   ipc.NewEncoder(stdin),
		lines: make(chan []byte, 64),
		logger: l.logger.With().
			Str("job_id", spec.JobID).
			Str("kind", string(spec.Kind)).
			Int("pid", cmd.Process.Pid).
			Logger(),
	}
	w.readers.Add(2)
	go w.readStdout(stdout)
	go w.readStderr(stderr)

	w.logger.Debug().Str("path", path).Msg("Worker process started")
	return w, nil
}

type processWorker struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	enc     *ipc.Encoder
	lines   chan []byte
	readers sync.WaitGroup
	logger  zerolog.Logger

	waitOnce sync.Once
	outcome  Outcome
}

func (w *processWorker) PID() int { return w.cmd.Process.Pid }

func (w *processWorker) Lines() <-chan []byte { return w.lines }

func (w *processWorker) Send(c ipc.Control) error {
	if err := w.enc.Encode(c); err != nil {
		return fmt.Errorf("%w: %v", ErrWorkerGone, err)
	}
	return nil
}

func (w *processWorker) Kill() error {
	err := w.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (w *processWorker) Wait() Outcome {
	w.waitOnce.Do(func() {
		w.readers.Wait()
		err := w.cmd.Wait()

		var exitErr *exec.ExitError
		switch {
		case err == nil:
			w.outcome = Outcome{Code: 0}
		case errors.As(err, &exitErr):
			w.outcome = Outcome{Code: exitErr.ExitCode(), Err: err}
		default:
			w.outcome = Outcome{Code: -1, Err: err}
		}
	})
	return w.outcome
}

func (w *processWorker) readStdout(r io.Reader) {
	defer w.readers.Done()
	defer close(w.lines)

	sc := ipc.NewScanner(r)
	for sc.Scan() {
		line := make([]byte, len(sc.Bytes()))
		copy(line, sc.Bytes())
		w.lines <- line
	}
	if err := sc.Err(); err != nil {
		w.logger.Warn().Err(err).Msg("Worker output unreadable, discarding the rest")
		_, _ = io.Copy(io.Discard, r)
	}
}

func (w *processWorker) readStderr(r io.Reader) {
	defer w.readers.Done()

	sc := ipc.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			w.logger.Debug().Str("stream", "stderr").Msg(line)
		}
	}
	_, _ = io.Copy(io.Discard, r)
}
