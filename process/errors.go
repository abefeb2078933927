package process

import (
	"fmt"
	"os"
	"runtime"

	"github.com/pkg/errors"
)

var (
	// ErrToolNotFound means the executable path is missing, is a directory or cannot be executed.
	ErrToolNotFound = errors.New("tool not found")
	// ErrCancelled means the run was stopped by its context. It is not a tool failure.
	ErrCancelled = errors.New("operation cancelled")
)

// StartError is returned when the subprocess could not be started.
type StartError struct {
	Path string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("unable to start %q: %v", e.Path, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// CheckExecutable returns ErrToolNotFound unless path is an executable file.
func CheckExecutable(path string) error {
	if path == "" {
		return errors.Wrap(ErrToolNotFound, "no executable path supplied")
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(ErrToolNotFound, "%q: %v", path, err)
	}
	if info.IsDir() {
		return errors.Wrapf(ErrToolNotFound, "%q is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0111 == 0 { // if no execute bit is set...
		return errors.Wrapf(ErrToolNotFound, "%q is not executable", path)
	}
	return nil
}
