package actions

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/config"
	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/helper"
	"github.com/relloyd/dbcop/locality"
	"github.com/relloyd/dbcop/logger"
	"github.com/relloyd/dbcop/orchestrator"
	"github.com/relloyd/dbcop/preflight"
	"github.com/relloyd/dbcop/process"
	"github.com/relloyd/dbcop/rdbms"
	"github.com/relloyd/dbcop/toolpath"
)

// SyncRequest names what to sync using <connection>.<database> strings.
// When the target database is omitted the source database name is used.
type SyncRequest struct {
	Mode                string `json:"mode" errorTxt:"mode (full, safe or force)" mandatory:"yes"`
	Source              string `json:"source" errorTxt:"source <connection>.<database>" mandatory:"yes"`
	Target              string `json:"target" errorTxt:"target <connection>[.<database>]" mandatory:"yes"`
	ExtractAllTableData bool   `json:"extractAllTableData"`
}

// SyncService turns SyncRequests into orchestrator sessions.
type SyncService struct {
	Log          logger.Logger
	Orchestrator *orchestrator.Orchestrator
	Connections  ConnectionSource
	Locator      ToolLocator
	ToolPath     string // explicit SqlPackage path, optional.
	TempDir      string
	Metrics      *SyncMetrics // optional.
}

// NewSyncService wires the real classifier, preflight checker and process runner.
func NewSyncService(log logger.Logger, c ConnectionSource, lockFile string) *SyncService {
	o := orchestrator.New(log,
		locality.NewClassifier(log),
		preflight.NewChecker(log, rdbms.NewSqlServerDialer(log)),
		process.NewRunner(log, nil))
	if lockFile != "" {
		o.Lock = orchestrator.NewFileLock(lockFile)
	}
	return &SyncService{
		Log:          log,
		Orchestrator: o,
		Connections:  c,
		Locator:      toolpath.NewLocator(log, toolpath.NewCache(config.ToolCache)),
	}
}

// Start validates r, locates SqlPackage and starts a session.
func (s *SyncService) Start(ctx context.Context, r SyncRequest, confirm orchestrator.ConfirmFunc) (*orchestrator.Session, error) {
	req, err := s.buildRequest(ctx, r, confirm)
	if err != nil {
		return nil, err
	}
	sess, err := s.Orchestrator.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Metrics.Started()
	go func() {
		s.Metrics.Finished(req.Mode, sess.Wait())
	}()
	return sess, nil
}

func (s *SyncService) buildRequest(ctx context.Context, r SyncRequest, confirm orchestrator.ConfirmFunc) (orchestrator.Request, error) {
	if err := helper.ValidateStructIsPopulated(r); err != nil {
		return orchestrator.Request{}, err
	}
	mode, err := orchestrator.ParseMode(r.Mode)
	if err != nil {
		return orchestrator.Request{}, err
	}
	src := NewConnectionDatabase(r.Source)
	tgt := NewConnectionDatabase(r.Target)
	if src.GetDatabase() == "" {
		return orchestrator.Request{}, fmt.Errorf("source %q must be of the form <connection>.<database>", r.Source)
	}
	tgtDatabase := tgt.GetDatabase()
	if tgtDatabase == "" {
		tgtDatabase = src.GetDatabase()
	}
	timeout := constants.AdminTimeoutSeconds * time.Second
	srcEndpoint, err := s.Connections.Endpoint(src.GetConnectionName(), src.GetDatabase(), timeout)
	if err != nil {
		return orchestrator.Request{}, errors.Wrap(err, "source")
	}
	tgtEndpoint, err := s.Connections.Endpoint(tgt.GetConnectionName(), tgtDatabase, timeout)
	if err != nil {
		return orchestrator.Request{}, errors.Wrap(err, "target")
	}
	tool, err := s.Locator.Locate(ctx, s.ToolPath)
	if err != nil {
		return orchestrator.Request{}, err
	}
	return orchestrator.Request{
		Mode:                mode,
		Source:              srcEndpoint,
		Target:              tgtEndpoint,
		ToolPath:            tool,
		TempDir:             s.TempDir,
		ExtractAllTableData: r.ExtractAllTableData,
		Confirm:             confirm,
		Progress: func(p orchestrator.Progress) {
			s.Metrics.Progress(p)
			s.logger().WithFields(logger.Fields{"session": p.SessionID}).Info("progress ", p.Percent, "% ", p.State)
		},
	}, nil
}

func (s *SyncService) logger() logger.Logger {
	if s.Log == nil {
		return logger.Discard()
	}
	return s.Log
}

type SyncConfig struct {
	SyncRequest
	Connections      ConnectionSource
	AssumeYes        bool
	ToolPath         string
	TempDir          string
	LogFile          string
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	LockFile         string
	StackDumpOnPanic bool
	In               *os.File // answers the remote confirmation, defaults to os.Stdin.
	Out              io.Writer
	newService       func(log logger.Logger) *SyncService // replaces NewSyncService in tests.
}

// RunSync runs one sync in the foreground. Ctrl+C cancels it.
// A sync that does not complete returns an error.
func RunSync(cfg *SyncConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if cfg.LogFile == "" {
		dir := cfg.TempDir
		if dir == "" {
			dir = os.TempDir()
		}
		cfg.LogFile = DefaultLogFileName(dir, time.Now())
	}
	log, logFile, closeLog, err := newSessionLogger(cfg.LogLevel, cfg.StackDumpOnPanic, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()
	var svc *SyncService
	if cfg.newService != nil {
		svc = cfg.newService(log)
	} else {
		svc = NewSyncService(log, cfg.Connections, cfg.LockFile)
	}
	svc.ToolPath = cfg.ToolPath
	svc.TempDir = cfg.TempDir
	// Cancel on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	in := cfg.In
	if in == nil {
		in = os.Stdin
	}
	sess, err := svc.Start(ctx, cfg.SyncRequest, GetConfirmRemoteFunc(in, os.Stderr, cfg.AssumeYes))
	if err != nil {
		return err
	}
	go func() {
		select {
		case <-ctx.Done():
			log.Warn("interrupt received, cancelling sync ", sess.ID)
			sess.Cancel()
		case <-sess.Done():
		}
	}()
	o := sess.Wait()
	printOutcome(out(cfg.Out), sess.Snapshot(), logFile)
	switch o.State {
	case orchestrator.Completed:
		return nil
	case orchestrator.Cancelled:
		return fmt.Errorf("sync cancelled: %v", o.Err)
	default:
		return fmt.Errorf("sync failed at %v: %v", o.Reason, o.Err)
	}
}

func printOutcome(w io.Writer, st orchestrator.Status, logFile string) {
	fmt.Fprintf(w, "Sync %v %v: %v", st.ID, st.Mode, st.State)
	if st.Reason != "" {
		fmt.Fprintf(w, " (%v)", st.Reason)
	}
	fmt.Fprintln(w)
	if st.Error != "" {
		fmt.Fprintf(w, "  error: %v\n", st.Error)
	}
	if len(st.ToolOutput) > 0 {
		fmt.Fprintf(w, "  tool output:\n    %v\n", strings.Join(st.ToolOutput, "\n    "))
	}
	if st.CleanupWarning != "" {
		fmt.Fprintf(w, "  warning: %v\n", st.CleanupWarning)
	}
	if logFile != "" {
		fmt.Fprintf(w, "  log: %v\n", logFile)
	}
}
