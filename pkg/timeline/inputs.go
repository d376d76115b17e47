package timeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/divverence/MarbleTesting/pkg/marble"
)

// Action is what an input timeline does with a marble.
type Action func(ctx context.Context, marble string) error

// InputAction is one marble to fire at Time.
type InputAction struct {
	Time   int
	Pos    int
	Marble string
	Do     Action
}

// Inputs is an immutable set of input actions together with the sequence
// they were built from.
type Inputs struct {
	sequence string
	actions  []InputAction
}

// NewInputs creates an input timeline from prepared actions.
func NewInputs(sequence string, actions []InputAction) *Inputs {
	cp := make([]InputAction, len(actions))
	copy(cp, actions)
	return &Inputs{sequence: sequence, actions: cp}
}

// InputsFor parses sequence and schedules do for every marble in it. All
// marbles of a group fire at the group's tick.
func InputsFor(parse marble.Parser, sequence string, do Action) (*Inputs, error) {
	moments, err := parse(sequence)
	if err != nil {
		return nil, err
	}
	var actions []InputAction
	for _, m := range moments {
		for _, name := range m.Marbles {
			actions = append(actions, InputAction{Time: m.Time, Pos: m.Pos, Marble: name, Do: do})
		}
	}
	return &Inputs{sequence: sequence, actions: actions}, nil
}

// Sequence returns the source diagram.
func (in *Inputs) Sequence() string { return in.sequence }

// Actions returns a copy of the scheduled actions.
func (in *Inputs) Actions() []InputAction {
	cp := make([]InputAction, len(in.actions))
	copy(cp, in.actions)
	return cp
}

// RunAt fires every action scheduled at tick concurrently and waits for all
// of them. Failures are returned as ActionErrors, joined when several
// actions failed.
func (in *Inputs) RunAt(ctx context.Context, tick int) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, a := range in.actions {
		if a.Time != tick {
			continue
		}
		wg.Add(1)
		go func(a InputAction) {
			defer wg.Done()
			if err := in.fire(ctx, a); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(a)
	}
	wg.Wait()
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

func (in *Inputs) fire(ctx context.Context, a InputAction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = in.actionError(a, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := ctx.Err(); err != nil {
		return in.actionError(a, err)
	}
	if err := a.Do(ctx, a.Marble); err != nil {
		return in.actionError(a, err)
	}
	return nil
}

func (in *Inputs) actionError(a InputAction, err error) *ActionError {
	return &ActionError{Sequence: in.sequence, Time: a.Time, Pos: a.Pos, Marble: a.Marble, Err: err}
}
