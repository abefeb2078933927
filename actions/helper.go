package actions

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/locality"
	"github.com/relloyd/dbcop/logger"
	"github.com/relloyd/dbcop/orchestrator"
	"golang.org/x/term"
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PromptPassword reads a password from the terminal without echo.
func PromptPassword(prompt string) (string, error) {
	if !IsTerminal(os.Stdin) {
		return "", errors.New("a password is required but stdin is not a terminal: supply it with --password or --dsn")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "unable to read password")
	}
	return string(b), nil
}

// GetConfirmRemoteFunc returns the decision used before touching a remote target.
// With assumeYes the answer is always yes. Without a terminal the answer is always no.
func GetConfirmRemoteFunc(in *os.File, w io.Writer, assumeYes bool) orchestrator.ConfirmFunc {
	return func(ctx context.Context, d locality.Decision) (bool, error) {
		if assumeYes {
			return true, nil
		}
		if !IsTerminal(in) { // if nobody can answer...
			fmt.Fprintf(w, "Target server %q is remote and no terminal is attached: use --yes to proceed\n", d.Server)
			return false, nil
		}
		return askYesNo(ctx, in, w, fmt.Sprintf("Target server %q looks remote (%v).\nChanges will be made to a database on another machine. Continue? [y/N] ", d.Server, d.Detail))
	}
}

// askYesNo reads one line from r. Anything but y or yes is no.
func askYesNo(ctx context.Context, r io.Reader, w io.Writer, question string) (bool, error) {
	fmt.Fprint(w, question)
	chanAnswer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(r).ReadString('\n')
		chanAnswer <- line
	}()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-chanAnswer:
		a = strings.ToLower(strings.TrimSpace(a))
		return a == "y" || a == "yes", nil
	}
}

// newSessionLogger returns a logger that also writes to a transcript file when logFile is set.
// The returned func closes the transcript.
func newSessionLogger(logLevel string, stackDumpOnPanic bool, logFile string) (logger.Logger, string, func(), error) {
	log := logger.NewLogger(constants.AppName, logLevel, stackDumpOnPanic)
	if logFile == "" {
		return log, "", func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0700); err != nil {
		return nil, "", nil, errors.Wrapf(err, "unable to create directory for log file %q", logFile)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, "", nil, errors.Wrapf(err, "unable to open log file %q", logFile)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return log, logFile, func() { _ = f.Close() }, nil
}

// DefaultLogFileName returns DatabaseSync_Log_<timestamp>.txt in dir.
func DefaultLogFileName(dir string, now time.Time) string {
	return filepath.Join(dir, constants.LogFilePrefix+now.Format(constants.TimeFormatYearSeconds)+".txt")
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to marshal JSON")
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
