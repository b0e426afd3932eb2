// Package useraction pauses wizard execution for human input. It keeps
// a push-down stack of "interaction required" states that a front end
// surfaces, plus a registry of named actions the front end resolves.
package useraction

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State names one distinct "the user must do something" situation. The
// wizard's externally observable state is the top of the stack whenever
// the stack is non-empty.
type State string

// Action names one resolution method a front end can invoke. Each action
// has at most one registered handler at a time.
type Action string

// ErrAlreadyRegistered is returned when an action already has a handler.
// Registering twice without unregistering is a programming error.
var ErrAlreadyRegistered = errors.New("action handler already registered")

// ErrNotRegistered is returned when resolving an action nobody waits on.
var ErrNotRegistered = errors.New("no handler registered for action")

// Broker is safe for concurrent use by the wizard, its phases and the
// front end.
type Broker struct {
	mu       sync.Mutex
	stack    []State
	handlers map[Action]func()
	notify   func()
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{handlers: make(map[Action]func())}
}

// SetNotify installs a callback invoked after every stack change.
func (b *Broker) SetNotify(fn func()) {
	b.mu.Lock()
	b.notify = fn
	b.mu.Unlock()
}

// PushState appends s to the stack.
func (b *Broker) PushState(s State) {
	b.push(s, false)
}

// PushStatePriority inserts s at the front of the stack, preempting
// whatever is currently surfaced. Used by the cover-safety monitor.
func (b *Broker) PushStatePriority(s State) {
	b.push(s, true)
}

func (b *Broker) push(s State, priority bool) {
	b.mu.Lock()
	if priority {
		b.stack = append([]State{s}, b.stack...)
	} else {
		b.stack = append(b.stack, s)
	}
	fn := b.notify
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// DropState removes the first occurrence of s from the stack. Dropping
// a state that is not on the stack is a no-op.
func (b *Broker) DropState(s State) {
	b.mu.Lock()
	for i, cur := range b.stack {
		if cur == s {
			b.stack = append(b.stack[:i], b.stack[i+1:]...)
			break
		}
	}
	fn := b.notify
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Top returns the currently surfaced state, if any.
func (b *Broker) Top() (State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.stack) == 0 {
		return "", false
	}
	return b.stack[0], true
}

// States returns a snapshot of the stack, most urgent first.
func (b *Broker) States() []State {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]State, len(b.stack))
	copy(out, b.stack)
	return out
}

// Register installs the one-shot handler for action.
func (b *Broker) Register(action Action, fn func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[action]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, action)
	}
	b.handlers[action] = fn
	return nil
}

// Unregister removes the handler for action, if any.
func (b *Broker) Unregister(action Action) {
	b.mu.Lock()
	delete(b.handlers, action)
	b.mu.Unlock()
}

// Resolve invokes and consumes the handler registered for action. Called
// by a front end when the user completed the requested interaction.
func (b *Broker) Resolve(action Action) error {
	b.mu.Lock()
	fn, ok := b.handlers[action]
	if ok {
		delete(b.handlers, action)
	}
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, action)
	}
	fn()
	return nil
}

// WaitFor is the reusable pause pattern: push state, register a one-shot
// handler on action, block until the front end resolves it or ctx ends,
// then unregister and pop the state.
func WaitFor(ctx context.Context, b *Broker, action Action, state State) error {
	done := make(chan struct{})
	if err := b.Register(action, func() { close(done) }); err != nil {
		return err
	}
	b.PushState(state)
	defer b.DropState(state)
	defer b.Unregister(action)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
