// Package remote sends button commands to the X32 controller server.
//
// Every command is attempted at most once. A command that fails leaves the
// caller's confirmed state untouched: AdvanceGroup returns the current index
// and SetAutoSwitch returns the previous state alongside the error.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/sweeney/zero-buttons/internal/logic"
)

// Command names used in errors, logs and metrics.
const (
	CommandSwitch     = "switch"
	CommandAutoSwitch = "auto_switch"
	CommandStatus     = "status"
)

// Commander issues commands to the controller server.
type Commander interface {
	// AdvanceGroup asks the server to switch to (current+1) mod numGroups.
	// Returns the new index on success, or current and an error.
	AdvanceGroup(ctx context.Context, current int) (int, error)

	// SetAutoSwitch asks the server to set auto-switch to enabled using
	// state.Interval. Returns the confirmed state on success, or state
	// unchanged and an error.
	SetAutoSwitch(ctx context.Context, state logic.AutoSwitch, enabled bool) (logic.AutoSwitch, error)

	// Status reads the server's current group and auto-switch state.
	Status(ctx context.Context) (ServerStatus, error)
}

// ServerStatus is the subset of GET /api/status the remote cares about.
type ServerStatus struct {
	ActiveGroup     int  `json:"activeGroup"`
	IsAutoSwitching bool `json:"isAutoSwitching"`
	SwitchInterval  int  `json:"switchInterval"`
}

// AutoSwitchRequest is the body of POST /api/auto-switch.
type AutoSwitchRequest struct {
	Enabled  bool `json:"enabled"`
	Interval int  `json:"interval"`
}

// Kind classifies a command failure.
type Kind int

const (
	KindStatus    Kind = iota // server answered with a non-200 status
	KindTimeout               // no answer within the request timeout
	KindTransport             // connection, DNS or other transport failure
	KindCanceled              // caller context was cancelled (shutdown)
	KindDecode                // 200 with a body that could not be decoded
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindCanceled:
		return "canceled"
	case KindDecode:
		return "decode"
	}
	return "unknown"
}

// ErrStatus is wrapped by every KindStatus error.
var ErrStatus = errors.New("unexpected status")

// Error is returned by every failed command.
type Error struct {
	Op         string // CommandSwitch, CommandAutoSwitch or CommandStatus
	Kind       Kind
	StatusCode int // set for KindStatus
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, and false if err is not a *Error.
func KindOf(err error) (Kind, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}

// Outcome returns the metrics label for a command result.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k, ok := KindOf(err); ok {
		return k.String()
	}
	return "unknown"
}
