// Package orchestrator runs one database sync at a time.
// A sync is a preflight followed by exactly two SqlPackage steps, and the
// session reports its state and progress while it runs.
package orchestrator

import (
	"fmt"
	"strings"

	"github.com/relloyd/dbcop/sqlpackage"
)

// Mode selects the sync strategy.
type Mode int

const (
	FullCopy Mode = iota + 1
	SafeSchema
	ForceSchema
)

var modeNames = map[Mode]string{
	FullCopy:    "FullCopy",
	SafeSchema:  "SafeSchema",
	ForceSchema: "ForceSchema",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMode accepts the mode names and the short CLI forms full, safe and force.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "fullcopy":
		return FullCopy, nil
	case "safe", "safeschema":
		return SafeSchema, nil
	case "force", "forceschema":
		return ForceSchema, nil
	}
	return 0, fmt.Errorf("unknown sync mode %q: use full, safe or force", s)
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// recreatesTarget reports whether an existing target database is dropped before the transfer.
func (m Mode) recreatesTarget() bool {
	return m == FullCopy
}

// steps returns the names of the two tool steps for the mode.
func (m Mode) steps() (string, string) {
	if m == FullCopy {
		return "export", "import"
	}
	return "extract", "publish"
}

func (m Mode) artifactExtension() string {
	if m == FullCopy {
		return ".bacpac"
	}
	return ".dacpac"
}

// PublishOptionsFor returns the deployment flags used by the schema modes.
// Safe mode also enables smart defaults; force mode leaves them unset.
func PublishOptionsFor(m Mode) sqlpackage.PublishOptions {
	if m == ForceSchema {
		return sqlpackage.ForcePublishOptions()
	}
	return sqlpackage.SafePublishOptions()
}

// State is a position in the session state machine.
type State int

const (
	Idle State = iota
	Preflighting
	TransferringStep1
	TransferringStep2
	Completed
	Cancelled
	Failed
)

var stateNames = map[State]string{
	Idle:              "Idle",
	Preflighting:      "Preflighting",
	TransferringStep1: "Transferring(step 1)",
	TransferringStep2: "Transferring(step 2)",
	Completed:         "Completed",
	Cancelled:         "Cancelled",
	Failed:            "Failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

// Kind classifies why a session did not complete.
type Kind string

const (
	KindNone                   Kind = ""
	KindConnectivityFailure    Kind = "ConnectivityFailure"
	KindToolNotFound           Kind = "ToolNotFound"
	KindToolFailure            Kind = "ToolFailure"
	KindStartFailure           Kind = "StartFailure"
	KindOperationCancelled     Kind = "OperationCancelled"
	KindArtifactCleanupWarning Kind = "ArtifactCleanupWarning"
)

// Reasons recorded in Outcome.Reason besides preflight reasons and step names.
const (
	ReasonRemoteDeclined = "RemoteTargetDeclined"
	ReasonUserCancelled  = "UserCancelled"
)
