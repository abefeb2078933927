package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/helper"
	"github.com/relloyd/dbcop/locality"
	"github.com/relloyd/dbcop/logger"
	"github.com/relloyd/dbcop/preflight"
	"github.com/relloyd/dbcop/process"
	"github.com/relloyd/dbcop/rdbms/shared"
	"github.com/relloyd/dbcop/sqlpackage"
	"github.com/rs/xid"
	"go.uber.org/multierr"
)

// ErrSessionActive is returned by Start while another session is running.
var ErrSessionActive = errors.New("a sync is already in progress")

// Classifier decides whether the target server is on this machine.
type Classifier interface {
	Classify(ctx context.Context, server string) locality.Decision
}

// Preflighter checks connectivity and prepares the target database.
type Preflighter interface {
	Run(ctx context.Context, p preflight.Plan) (*preflight.Report, error)
}

// Executor runs the SqlPackage subprocess.
type Executor interface {
	Execute(ctx context.Context, exe string, args []string, dir string) (*process.Result, error)
}

// Locker excludes other processes. *flock.Flock satisfies it.
type Locker interface {
	TryLock() (bool, error)
	Unlock() error
}

// NewFileLock returns a lock on path for use as Orchestrator.Lock.
func NewFileLock(path string) *flock.Flock {
	return flock.New(path)
}

// Request describes a sync.
// Source.Database and Target.Database name the databases on each side.
type Request struct {
	Mode                Mode
	Source              shared.Endpoint
	Target              shared.Endpoint
	ToolPath            string
	TempDir             string // defaults to os.TempDir().
	ExtractAllTableData bool   // schema modes only.
	Confirm             ConfirmFunc
	Progress            ProgressFunc
}

func (r Request) validate() error {
	if !r.Mode.Valid() {
		return fmt.Errorf("invalid sync mode %v", r.Mode)
	}
	return helper.ValidateStructIsPopulated(struct {
		SourceServer   string `errorTxt:"source server" mandatory:"yes"`
		SourceDatabase string `errorTxt:"source database" mandatory:"yes"`
		TargetServer   string `errorTxt:"target server" mandatory:"yes"`
		TargetDatabase string `errorTxt:"target database" mandatory:"yes"`
	}{r.Source.Server, r.Source.Database, r.Target.Server, r.Target.Database})
}

// Orchestrator owns the single active session.
type Orchestrator struct {
	Log        logger.Logger
	Classifier Classifier
	Preflight  Preflighter
	Runner     Executor
	Lock       Locker // optional.
	NewID      func() string
	mu         sync.Mutex
	current    *Session
}

// New returns an Orchestrator using the given collaborators.
func New(log logger.Logger, c Classifier, p Preflighter, r Executor) *Orchestrator {
	return &Orchestrator{
		Log:        log,
		Classifier: c,
		Preflight:  p,
		Runner:     r,
		NewID:      func() string { return xid.New().String() },
	}
}

// Current returns the running session or the last one to finish. It may be nil.
func (o *Orchestrator) Current() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Start begins a session in the background.
// It fails with ErrSessionActive if a session is running, here or in another process holding Lock.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Session, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != nil && o.current.Running() {
		return nil, errors.Wrapf(ErrSessionActive, "session %v", o.current.ID)
	}
	if o.Lock != nil {
		ok, err := o.Lock.TryLock()
		if err != nil {
			return nil, errors.Wrap(err, "unable to take the sync lock")
		}
		if !ok {
			return nil, errors.Wrap(ErrSessionActive, "another process holds the sync lock")
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:       o.NewID(),
		Mode:     req.Mode,
		Source:   req.Source.String(),
		Target:   req.Target.String(),
		progress: req.Progress,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    Idle,
		started:  time.Now(),
	}
	o.current = s
	go func() {
		defer cancel()
		s.finish(o.run(ctx, s, req))
	}()
	return s, nil
}

// Run starts a session and waits for it.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Outcome, error) {
	s, err := o.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Wait(), nil
}

func (o *Orchestrator) run(ctx context.Context, s *Session, req Request) *Outcome {
	log := o.logger().WithFields(logger.Fields{"session": s.ID, "mode": req.Mode.String()})
	out := &Outcome{Started: s.started}
	s.transition(Idle, constants.ProgressStart, "")
	log.Info("starting ", req.Mode, " sync from ", s.Source, " to ", s.Target)
	o.pipeline(ctx, log, s, req, out)
	out.CleanupErr = multierr.Append(out.CleanupErr, o.unlock())
	if out.CleanupErr != nil {
		log.Warn(KindArtifactCleanupWarning, ": ", out.CleanupErr)
		if out.Kind == KindNone {
			out.Kind = KindArtifactCleanupWarning
		}
	}
	out.Finished = time.Now()
	switch out.State {
	case Completed:
		log.Info("sync completed in ", out.Finished.Sub(out.Started).Round(time.Second))
	case Cancelled:
		log.Warn("sync cancelled (", out.Reason, ")")
	default:
		log.Error("sync failed (", out.Reason, "): ", out.Err)
		for _, l := range out.ToolOutput {
			log.Error(l)
		}
	}
	return out
}

// pipeline fills out as the session moves through its states.
func (o *Orchestrator) pipeline(ctx context.Context, log logger.Logger, s *Session, req Request, out *Outcome) {
	// Safety gate.
	out.Target = o.Classifier.Classify(ctx, req.Target.Server)
	if !out.Target.IsLocal() { // if the target is on another machine...
		log.Warn("target server ", req.Target.Server, " is remote: ", out.Target.Detail)
		ok, err := o.confirm(ctx, req, out.Target)
		if err != nil || !ok {
			out.State, out.Kind, out.Reason = Cancelled, KindOperationCancelled, ReasonRemoteDeclined
			out.Err = errors.Wrapf(multierr.Append(ErrRemoteDeclined, err), "target %v", req.Target.Server)
			return
		}
	}
	if o.cancelled(ctx, out, "") {
		return
	}
	if err := process.CheckExecutable(req.ToolPath); err != nil {
		out.State, out.Kind, out.Reason, out.Err = Failed, KindToolNotFound, string(KindToolNotFound), err
		return
	}
	// Preflight.
	s.transition(Preflighting, constants.ProgressStart, "")
	rpt, err := o.Preflight.Run(ctx, preflight.Plan{
		Source:           req.Source,
		Target:           req.Target,
		RecreateExisting: req.Mode.recreatesTarget(),
	})
	out.Preflight = rpt
	if err != nil {
		if o.cancelled(ctx, out, "") {
			return
		}
		out.State, out.Kind, out.Err = Failed, KindConnectivityFailure, err
		out.Reason = "Preflight"
		var f *preflight.Failure
		if errors.As(err, &f) {
			out.Reason = string(f.Reason)
		}
		return
	}
	// Transfer.
	out.Artifact = artifactPath(req, s.ID)
	defer func() {
		out.CleanupErr = multierr.Append(out.CleanupErr, removeArtifact(out.Artifact))
	}()
	first, second := o.commands(req, out.Artifact)
	step1, step2 := req.Mode.steps()
	s.transition(TransferringStep1, constants.ProgressPreflightDone, step1)
	if !o.step(ctx, log, req, step1, first, out) {
		return
	}
	s.transition(TransferringStep2, constants.ProgressStepOneDone, step2)
	if !o.step(ctx, log, req, step2, second, out) {
		return
	}
	out.State = Completed
}

// step runs one tool invocation and reports whether the pipeline may continue.
func (o *Orchestrator) step(ctx context.Context, log logger.Logger, req Request, name string, cmd sqlpackage.Command, out *Outcome) bool {
	if o.cancelled(ctx, out, name) {
		return false
	}
	log.Info("running ", name, ": ", filepath.Base(req.ToolPath), " ", cmd)
	res, err := o.Runner.Execute(ctx, req.ToolPath, cmd.Args, filepath.Dir(out.Artifact))
	if res != nil {
		out.ToolOutput = res.Stderr
	}
	switch {
	case errors.Is(err, process.ErrCancelled) || (err != nil && ctx.Err() != nil):
		out.State, out.Step, out.Kind, out.Reason, out.Err = Cancelled, name, KindOperationCancelled, ReasonUserCancelled, err
		return false
	case errors.Is(err, process.ErrToolNotFound):
		out.State, out.Step, out.Kind, out.Reason, out.Err = Failed, name, KindToolNotFound, name, err
		return false
	case err != nil:
		kind := KindToolFailure
		var se *process.StartError
		if errors.As(err, &se) {
			kind = KindStartFailure
		}
		out.State, out.Step, out.Kind, out.Reason, out.Err = Failed, name, kind, name, err
		return false
	case !res.Succeeded:
		out.State, out.Step, out.Kind, out.Reason = Failed, name, KindToolFailure, name
		out.Err = fmt.Errorf("%v step failed: SqlPackage exited with code %v", name, res.ExitCode)
		return false
	}
	out.ToolOutput = nil
	log.Info(name, " step succeeded in ", res.Duration.Round(time.Second))
	return true
}

func (o *Orchestrator) commands(req Request, artifact string) (sqlpackage.Command, sqlpackage.Command) {
	if req.Mode == FullCopy {
		return sqlpackage.Export(req.Source, artifact), sqlpackage.Import(artifact, req.Target)
	}
	return sqlpackage.Extract(req.Source, artifact, req.ExtractAllTableData),
		sqlpackage.Publish(artifact, req.Target, PublishOptionsFor(req.Mode))
}

// ErrRemoteDeclined is the cause recorded when a remote target was not confirmed.
var ErrRemoteDeclined = errors.New("remote target not confirmed")

// confirm asks the caller about a remote target. No ConfirmFunc means no.
func (o *Orchestrator) confirm(ctx context.Context, req Request, d locality.Decision) (bool, error) {
	if req.Confirm == nil {
		return false, nil
	}
	return req.Confirm(ctx, d)
}

// cancelled records a cancellation if ctx is done.
func (o *Orchestrator) cancelled(ctx context.Context, out *Outcome, step string) bool {
	if ctx.Err() == nil {
		return false
	}
	out.State, out.Step, out.Kind, out.Reason = Cancelled, step, KindOperationCancelled, ReasonUserCancelled
	out.Err = errors.Wrap(ctx.Err(), "sync cancelled")
	return true
}

func (o *Orchestrator) unlock() error {
	if o.Lock == nil {
		return nil
	}
	return errors.Wrap(o.Lock.Unlock(), "unable to release the sync lock")
}

func (o *Orchestrator) logger() logger.Logger {
	if o.Log == nil {
		return logger.Discard()
	}
	return o.Log
}

func artifactPath(req Request, id string) string {
	dir := req.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, constants.ArtifactFilePrefix+id+req.Mode.artifactExtension())
}

// removeArtifact deletes the transfer package. An artifact that was never written is fine.
func removeArtifact(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "unable to remove artifact %q", path)
	}
	return nil
}
