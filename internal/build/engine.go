package build

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hmjahid/build-studio/internal/audit"
	"github.com/hmjahid/build-studio/internal/errors"
	"github.com/hmjahid/build-studio/internal/logging"
	"github.com/hmjahid/build-studio/internal/metrics"
	"github.com/hmjahid/build-studio/internal/security"
	"github.com/hmjahid/build-studio/internal/toolchain"
)

// defaultPipeGrace is how long output may keep flowing after a build is
// killed. Children that left the process group can hold the pipes open.
const defaultPipeGrace = 2 * time.Second

// maxLineBytes bounds a single output line. Longer lines are cut and the
// rest of the stream is discarded so the child never blocks on a full pipe.
const maxLineBytes = 1 << 20

// Request describes one build invocation.
type Request struct {
	Command  string
	Dir      string
	Platform string
	Policy   security.Policy
}

// EventSink receives build audit events.
type EventSink interface {
	LogEvent(eventType audit.EventType, subject, details string) error
}

// Engine runs builds. It holds no per-build state and may run many builds
// at once.
type Engine struct {
	toolchains *toolchain.Resolver
	recorder   metrics.Recorder
	events     EventSink
	shell      []string
	pipeGrace  time.Duration
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithToolchains sets the platform resolver.
func WithToolchains(r *toolchain.Resolver) Option {
	return func(e *Engine) {
		e.toolchains = r
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithEvents sets the audit sink.
func WithEvents(s EventSink) Option {
	return func(e *Engine) {
		e.events = s
	}
}

// WithShell overrides the shell invocation, e.g. []string{"bash", "-c"}.
func WithShell(shell ...string) Option {
	return func(e *Engine) {
		e.shell = shell
	}
}

// WithPipeGrace sets how long output is still read after a build has been
// killed before its pipes are closed.
func WithPipeGrace(d time.Duration) Option {
	return func(e *Engine) {
		e.pipeGrace = d
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		recorder:  metrics.NoopRecorder{},
		shell:     defaultShell(),
		pipeGrace: defaultPipeGrace,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultShell() []string {
	if goruntime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

// Run validates, sandboxes and runs one build, streaming output to obs.
//
// A command rejected by the policy or a sandbox that cannot be built
// aborts before anything is spawned; the classified error is returned as
// well as recorded on the outcome. Once the process has been spawned, every
// result (including non-zero exit and timeout) is reported on the outcome
// with a nil error. obs.Finished is called exactly once on every path.
func (e *Engine) Run(ctx context.Context, req Request, obs Observer) (*Outcome, error) {
	if obs == nil {
		obs = Funcs{}
	}
	r := &run{engine: e, req: req, obs: obs, start: e.now()}
	r.log = logging.With("dir", req.Dir, "platform", req.Platform)
	return r.execute(ctx)
}

type run struct {
	engine  *Engine
	req     Request
	obs     Observer
	log     *slog.Logger
	start   time.Time
	sandbox string
}

func (r *run) state(s State) {
	r.log.Debug("build state", "state", s.String())
	if so, ok := r.obs.(StateObserver); ok {
		so.State(s)
	}
}

func (r *run) execute(ctx context.Context) (*Outcome, error) {
	e := r.engine
	policy := r.req.Policy
	tc := e.toolchains.Resolve(r.req.Platform)
	full := tc.Apply(r.req.Command)
	outcome := &Outcome{Command: full}

	r.state(Pending)
	r.state(Validating)
	if token, blocked := security.BlockedToken(r.req.Command, policy); blocked {
		r.log.Debug("command rejected", "token", token)
		e.recorder.IncPolicyRejection()
		err := errors.PolicyViolation(r.req.Command)
		r.finish(outcome, StatusFailed, -1, err)
		return outcome, err
	}

	r.state(Sandboxing)
	sandbox, err := security.CreateSandbox(r.req.Dir, policy)
	r.sandbox = sandbox
	outcome.Sandbox = sandbox
	if err != nil {
		r.finish(outcome, StatusFailed, -1, err)
		return outcome, err
	}

	runCtx := ctx
	if policy.MaxBuildTime > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, policy.MaxBuildTime)
		defer cancel()
	}

	r.state(Running)
	exitCode, runErr := r.spawn(runCtx, full)
	switch {
	case runErr == nil:
		r.finish(outcome, StatusSucceeded, 0, nil)
	case stderrors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		r.finish(outcome, StatusFailed, exitCode, errors.Timeout(policy.MaxBuildTime))
	case ctx.Err() != nil:
		r.finish(outcome, StatusFailed, exitCode, errors.Wrap(errors.ExitGeneralError, "build canceled", ctx.Err()))
	default:
		r.finish(outcome, StatusFailed, exitCode, runErr)
	}
	return outcome, nil
}

// spawn starts the shell, drains both pipes to EOF and waits for exit.
func (r *run) spawn(ctx context.Context, full string) (int, error) {
	shell := r.engine.shell
	args := append(append([]string(nil), shell[1:]...), full)
	cmd := exec.CommandContext(ctx, shell[0], args...)
	cmd.Dir = r.sandbox
	configureProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, errors.ProcessSpawn(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, errors.ProcessSpawn(err)
	}

	if err := cmd.Start(); err != nil {
		return -1, errors.ProcessSpawn(err)
	}
	r.log.Debug("build process started", "pid", cmd.Process.Pid, "command", full)

	drained := make(chan struct{})
	go r.closeAfterKill(ctx, drained, stdout, stderr)

	var g errgroup.Group
	g.Go(func() error { return r.drain(stdout, Stdout) })
	g.Go(func() error { return r.drain(stderr, Stderr) })
	_ = g.Wait()
	close(drained)

	err = cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return code, errors.ProcessExit(code)
	}
	return -1, errors.ProcessSpawn(err)
}

// closeAfterKill closes the pipes once ctx is done and output has not ended
// within the grace period. A killed build whose descendants escaped the
// process group would otherwise keep the drains, and the build, alive.
func (r *run) closeAfterKill(ctx context.Context, drained <-chan struct{}, pipes ...io.Closer) {
	select {
	case <-drained:
		return
	case <-ctx.Done():
	}

	timer := time.NewTimer(r.engine.pipeGrace)
	defer timer.Stop()
	select {
	case <-drained:
	case <-timer.C:
		r.log.Warn("build output still open after kill, closing pipes", "grace", r.engine.pipeGrace)
		for _, p := range pipes {
			_ = p.Close()
		}
	}
}

// drain forwards every line of rd to the observer. Read errors are reported
// as a stderr line and the remainder of the pipe is discarded.
func (r *run) drain(rd io.Reader, stream Stream) error {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		r.obs.Line(Line{Stream: stream, Text: scanner.Text()})
	}
	if err := scanner.Err(); err != nil {
		if stderrors.Is(err, os.ErrClosed) {
			return nil
		}
		r.obs.Line(Line{Stream: Stderr, Text: fmt.Sprintf("error reading %s: %v", stream, err)})
		_, _ = io.Copy(io.Discard, rd)
		return err
	}
	return nil
}

// finish runs cleanup, fills in the outcome and notifies the observer.
func (r *run) finish(outcome *Outcome, status Status, exitCode int, err error) {
	e := r.engine
	if status == StatusSucceeded {
		r.state(Succeeded)
	} else {
		r.state(Failed)
	}

	r.state(CleaningUp)
	if r.sandbox != "" && r.sandbox != r.req.Dir {
		if cerr := security.CleanupSandbox(r.sandbox); cerr != nil {
			r.log.Warn("failed to clean up sandbox", "sandbox", r.sandbox, "error", cerr)
			e.recorder.IncSandboxCleanupFailure()
			outcome.CleanupErr = cerr
		}
	}

	outcome.Status = status
	outcome.ExitCode = exitCode
	outcome.Err = err
	if err != nil {
		outcome.Error = err.Error()
	}
	outcome.Duration = e.now().Sub(r.start)

	e.recorder.ObserveBuildDuration(r.req.Platform, outcome.Duration)
	e.recorder.IncBuildOutcome(string(status))
	r.audit(outcome)

	r.state(Done)
	r.obs.Finished(*outcome)
}

// AuditSubject names the audit log a build of dir is recorded under: the
// project's directory name plus a short hash of its absolute path, so "."
// resolves to the project it points at and same-named projects stay apart.
func AuditSubject(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	sum := sha256.Sum256([]byte(dir))
	return audit.SafeSubject(dir) + "-" + hex.EncodeToString(sum[:4])
}

func (r *run) audit(outcome *Outcome) {
	if r.engine.events == nil {
		return
	}
	eventType := audit.EventBuild
	if errors.HasCode(outcome.Err, errors.ExitPolicyViolation) {
		eventType = audit.EventRejected
	}
	details := fmt.Sprintf("status=%s exit=%d platform=%s command=%q", outcome.Status, outcome.ExitCode, r.req.Platform, outcome.Command)
	if err := r.engine.events.LogEvent(eventType, AuditSubject(r.req.Dir), details); err != nil {
		r.log.Warn("failed to write build audit event", "error", err)
	}
}
