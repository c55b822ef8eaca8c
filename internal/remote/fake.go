package remote

import (
	"context"
	"sync"

	"github.com/sweeney/zero-buttons/internal/logic"
)

// FakeCommander records commands and returns scripted results.
// Safe for concurrent use.
type FakeCommander struct {
	mu sync.Mutex

	numGroups int

	advanceErr    error
	autoSwitchErr error
	status        ServerStatus
	statusErr     error

	// gate, if set, blocks every command until it receives or is closed.
	gate chan struct{}

	advanceCalls    []int
	autoSwitchCalls []AutoSwitchRequest
	statusCalls     int
}

// NewFakeCommander creates a FakeCommander that succeeds by default.
func NewFakeCommander(numGroups int) *FakeCommander {
	if numGroups < 1 {
		numGroups = 1
	}
	return &FakeCommander{numGroups: numGroups}
}

// FailAdvance makes subsequent AdvanceGroup calls return err (nil = succeed).
func (f *FakeCommander) FailAdvance(err error) {
	f.mu.Lock()
	f.advanceErr = err
	f.mu.Unlock()
}

// FailAutoSwitch makes subsequent SetAutoSwitch calls return err (nil = succeed).
func (f *FakeCommander) FailAutoSwitch(err error) {
	f.mu.Lock()
	f.autoSwitchErr = err
	f.mu.Unlock()
}

// SetStatus scripts the Status result.
func (f *FakeCommander) SetStatus(st ServerStatus, err error) {
	f.mu.Lock()
	f.status = st
	f.statusErr = err
	f.mu.Unlock()
}

// Gate makes every command wait on the returned channel.
// Send on it to release one command, or close it to release all.
func (f *FakeCommander) Gate() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

// AdvanceGroup records the call and applies the scripted result.
func (f *FakeCommander) AdvanceGroup(ctx context.Context, current int) (int, error) {
	f.mu.Lock()
	f.advanceCalls = append(f.advanceCalls, current)
	err := f.advanceErr
	gate := f.gate
	f.mu.Unlock()

	if werr := wait(ctx, gate, CommandSwitch); werr != nil {
		return current, werr
	}
	if err != nil {
		return current, err
	}
	return logic.NextGroup(current, f.numGroups), nil
}

// SetAutoSwitch records the call and applies the scripted result.
func (f *FakeCommander) SetAutoSwitch(ctx context.Context, state logic.AutoSwitch, enabled bool) (logic.AutoSwitch, error) {
	f.mu.Lock()
	f.autoSwitchCalls = append(f.autoSwitchCalls, AutoSwitchRequest{Enabled: enabled, Interval: state.Interval})
	err := f.autoSwitchErr
	gate := f.gate
	f.mu.Unlock()

	if werr := wait(ctx, gate, CommandAutoSwitch); werr != nil {
		return state, werr
	}
	if err != nil {
		return state, err
	}
	return logic.AutoSwitch{Enabled: enabled, Interval: state.Interval}, nil
}

// Status returns the scripted status.
func (f *FakeCommander) Status(ctx context.Context) (ServerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	return f.status, f.statusErr
}

// AdvanceCalls returns the current index passed to each AdvanceGroup call.
func (f *FakeCommander) AdvanceCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.advanceCalls...)
}

// AutoSwitchCalls returns the request of each SetAutoSwitch call.
func (f *FakeCommander) AutoSwitchCalls() []AutoSwitchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AutoSwitchRequest(nil), f.autoSwitchCalls...)
}

// StatusCalls returns how many times Status was called.
func (f *FakeCommander) StatusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

func wait(ctx context.Context, gate chan struct{}, op string) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return &Error{Op: op, Kind: KindCanceled, Err: ctx.Err()}
	}
}
