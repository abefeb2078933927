package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/relloyd/dbcop/locality"
	"github.com/relloyd/dbcop/preflight"
)

// Outcome is the terminal result of a session.
type Outcome struct {
	State      State             `json:"state"`
	Step       string            `json:"step,omitempty"`   // the step that was running when the session ended.
	Reason     string            `json:"reason,omitempty"` // preflight reason, failed step name or cancellation reason.
	Kind       Kind              `json:"kind,omitempty"`
	Err        error             `json:"-"`
	ToolOutput []string          `json:"toolOutput,omitempty"` // stderr of the failed or cancelled step.
	CleanupErr error             `json:"-"`
	Artifact   string            `json:"artifact,omitempty"`
	Target     locality.Decision `json:"target"`
	Preflight  *preflight.Report `json:"preflight,omitempty"`
	Started    time.Time         `json:"started"`
	Finished   time.Time         `json:"finished"`
}

// Succeeded reports whether both steps completed.
func (o *Outcome) Succeeded() bool {
	return o != nil && o.State == Completed
}

// Progress is delivered to a ProgressFunc on every transition.
type Progress struct {
	SessionID string `json:"sessionId"`
	State     State  `json:"state"`
	Percent   int    `json:"percent"`
	Step      string `json:"step,omitempty"`
}

// ProgressFunc observes a session. It must not block.
type ProgressFunc func(Progress)

// ConfirmFunc is asked before anything touches a remote target.
// Returning false or an error cancels the session.
type ConfirmFunc func(ctx context.Context, target locality.Decision) (bool, error)

// Status is a point-in-time view of a session.
type Status struct {
	ID             string     `json:"id"`
	Mode           Mode       `json:"mode"`
	Source         string     `json:"source"`
	Target         string     `json:"target"`
	State          State      `json:"state"`
	Percent        int        `json:"percent"`
	Step           string     `json:"step,omitempty"`
	Started        time.Time  `json:"started"`
	Finished       *time.Time `json:"finished,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	Kind           Kind       `json:"kind,omitempty"`
	Error          string     `json:"error,omitempty"`
	CleanupWarning string     `json:"cleanupWarning,omitempty"`
	ToolOutput     []string   `json:"toolOutput,omitempty"`
}

// Session is one running sync. Use Wait to block for its Outcome.
type Session struct {
	ID       string
	Mode     Mode
	Source   string // redacted description of the source.
	Target   string // redacted description of the target.
	progress ProgressFunc
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
	state    State
	percent  int
	step     string
	started  time.Time
	outcome  *Outcome
}

// Wait blocks until the session ends and returns its Outcome.
func (s *Session) Wait() *Outcome {
	<-s.done
	return s.outcome
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cancel asks the session to stop. It returns immediately.
func (s *Session) Cancel() {
	s.cancel()
}

// Running reports whether the session has yet to end.
func (s *Session) Running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Snapshot returns the current Status.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		ID:      s.ID,
		Mode:    s.Mode,
		Source:  s.Source,
		Target:  s.Target,
		State:   s.state,
		Percent: s.percent,
		Step:    s.step,
		Started: s.started,
	}
	if o := s.outcome; o != nil {
		f := o.Finished
		st.Finished = &f
		st.Reason = o.Reason
		st.Kind = o.Kind
		st.ToolOutput = o.ToolOutput
		if o.Err != nil {
			st.Error = o.Err.Error()
		}
		if o.CleanupErr != nil {
			st.CleanupWarning = o.CleanupErr.Error()
		}
	}
	return st
}

// transition moves to state and raises progress to percent. Progress never goes down.
func (s *Session) transition(state State, percent int, step string) {
	s.mu.Lock()
	s.state = state
	if percent > s.percent {
		s.percent = percent
	}
	s.step = step
	p := Progress{SessionID: s.ID, State: s.state, Percent: s.percent, Step: s.step}
	s.mu.Unlock()
	if s.progress != nil {
		s.progress(p)
	}
}

// finish records the outcome and releases waiters.
func (s *Session) finish(o *Outcome) {
	s.mu.Lock()
	s.state = o.State
	s.outcome = o
	if o.State == Completed {
		s.percent = 100
	}
	p := Progress{SessionID: s.ID, State: s.state, Percent: s.percent, Step: o.Step}
	s.mu.Unlock()
	if s.progress != nil {
		s.progress(p)
	}
	close(s.done)
}
