package process

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/logger"
)

// Result describes how a subprocess ended.
type Result struct {
	ExitCode  int           `json:"exitCode"`
	Succeeded bool          `json:"succeeded"`
	Cancelled bool          `json:"cancelled"`
	Stderr    []string      `json:"stderr,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Runner starts external tools and streams their output to a Sink.
type Runner struct {
	Log           logger.Logger
	Sink          Sink
	FlushInterval time.Duration // how often buffered output is handed to Sink.
	KillGrace     time.Duration // how long to wait for output to close after a kill.
	Env           []string      // nil means inherit the environment.
}

// NewRunner returns a Runner with the default flush interval and kill grace period.
// If sink is nil then output lines are logged.
func NewRunner(log logger.Logger, sink Sink) *Runner {
	r := &Runner{
		Log:           log,
		Sink:          sink,
		FlushInterval: constants.ToolOutputFlushMillis * time.Millisecond,
		KillGrace:     constants.ToolKillGraceSeconds * time.Second,
	}
	if sink == nil {
		r.Sink = LogSink(log)
	}
	return r
}

// LogSink returns a Sink that logs each line with its stream name.
func LogSink(log logger.Logger) Sink {
	return func(lines []Line) {
		for _, l := range lines {
			entry := log.WithFields(logger.Fields{"stream": string(l.Stream)})
			if l.Stream == Stderr {
				entry.Warn(l.Text)
			} else {
				entry.Info(l.Text)
			}
		}
	}
}

// Execute runs exe with args in dir and blocks until it exits or ctx is done.
// A non-zero exit is reported in Result and is not an error.
// Cancellation kills the process and returns ErrCancelled with a Result that has Cancelled set.
func (r *Runner) Execute(ctx context.Context, exe string, args []string, dir string) (*Result, error) {
	if err := CheckExecutable(exe); err != nil {
		return nil, err
	}
	if ctx.Err() != nil { // if we were cancelled before starting...
		return &Result{ExitCode: -1, Cancelled: true}, ErrCancelled
	}
	cmd := exec.Command(exe, args...)
	cmd.Dir = dir
	cmd.Env = r.Env
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &StartError{Path: exe, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &StartError{Path: exe, Err: err}
	}
	buf := newLineBuffer(r.Sink, r.flushInterval())
	startTime := time.Now()
	if err = cmd.Start(); err != nil {
		return nil, &StartError{Path: exe, Err: err}
	}
	r.logger().Debug("started ", exe, " with pid ", cmd.Process.Pid)
	buf.startFlushing()
	readers := sync.WaitGroup{}
	readers.Add(2)
	go drain(&readers, stdout, Stdout, buf)
	go drain(&readers, stderr, Stderr, buf)
	// Wait for the readers before calling Wait, as required by StdoutPipe.
	chanDone := make(chan error, 1)
	go func() {
		readers.Wait()
		chanDone <- cmd.Wait()
	}()
	cancelled := false
	var waitErr error
	select {
	case waitErr = <-chanDone:
	case <-ctx.Done():
		cancelled = true
		r.logger().Info("cancelling ", exe, " with pid ", cmd.Process.Pid)
		r.terminate(cmd.Process)
		select {
		case waitErr = <-chanDone:
		case <-time.After(r.killGrace()):
			// A grandchild may still hold the pipes open.
			r.logger().Warn("output of ", exe, " still open after kill, closing pipes")
			_ = stdout.Close()
			_ = stderr.Close()
			waitErr = <-chanDone
		}
	}
	buf.stopFlushing()
	res := &Result{
		ExitCode: exitCode(cmd),
		Stderr:   buf.stderrLines(),
		Duration: time.Since(startTime),
	}
	if cancelled {
		res.Cancelled = true
		return res, ErrCancelled
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) { // if the process did not exit cleanly or with a code...
		return res, errors.Wrapf(waitErr, "error waiting for %q", exe)
	}
	res.Succeeded = res.ExitCode == 0
	r.logger().Debug(exe, " exited with code ", res.ExitCode, " after ", res.Duration.Round(time.Millisecond))
	return res, nil
}

// terminate kills p. A process that already exited is not an error.
func (r *Runner) terminate(p *os.Process) {
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		r.logger().Warn("error killing pid ", p.Pid, ": ", err)
	}
}

func (r *Runner) logger() logger.Logger {
	if r.Log == nil {
		return logger.Discard()
	}
	return r.Log
}

func (r *Runner) flushInterval() time.Duration {
	if r.FlushInterval <= 0 {
		return constants.ToolOutputFlushMillis * time.Millisecond
	}
	return r.FlushInterval
}

func (r *Runner) killGrace() time.Duration {
	if r.KillGrace <= 0 {
		return constants.ToolKillGraceSeconds * time.Second
	}
	return r.KillGrace
}

// drain reads lines from rd into buf until EOF.
// Once the scanner gives up, on a very long line for example, the rest is discarded so the process never blocks on a full pipe.
func drain(wg *sync.WaitGroup, rd io.Reader, s Stream, buf *lineBuffer) {
	defer wg.Done()
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		buf.add(s, strings.TrimRight(scanner.Text(), "\r"))
	}
	_, _ = io.Copy(io.Discard, rd)
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}
