// Package dispatch is an optional, direct-call command dispatcher: a
// thin convenience for callers who want to register handlers at runtime
// and dispatch by a string command name, instead of calling
// eventcore.Execute with a concrete handler directly. It is not a
// pipeline — there is no middleware chain, no type-erased event bus, and
// no cross-aggregate registry; one CommandDispatcher serves exactly one
// aggregate's state/event/state-pointer triple, the same triple every
// other generic type in the core is parameterized over
// (map[string]handler behind a RWMutex, Register/Dispatch by name). A
// universal pipeline erasing every aggregate's types through a single
// dynamic-dispatch box is deliberately left out.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/defense-allies/eventcore"
)

// handlerFunc is a type-erased-but-bounded adapter: it closes over one
// concrete Command/Result pair at Register time via a type assertion,
// so CommandDispatcher's map can hold handlers for many different
// command types without CommandDispatcher itself needing a type
// parameter per command.
type handlerFunc[S any, E eventcore.DomainEvent, PS eventcore.StatePtr[S, E]] func(
	ctx context.Context,
	root *eventcore.AggregateRoot[S, E, PS],
	cmd eventcore.Command,
	services any,
) (any, error)

// CommandDispatcher routes commands to registered handlers by command
// name, for one aggregate's state/event/state-pointer triple. Safe for
// concurrent use.
type CommandDispatcher[S any, E eventcore.DomainEvent, PS eventcore.StatePtr[S, E]] struct {
	mu       sync.RWMutex
	handlers map[string]handlerFunc[S, E, PS]
}

// New creates an empty CommandDispatcher for one aggregate type.
func New[S any, E eventcore.DomainEvent, PS eventcore.StatePtr[S, E]]() *CommandDispatcher[S, E, PS] {
	return &CommandDispatcher[S, E, PS]{handlers: make(map[string]handlerFunc[S, E, PS])}
}

// Register binds commandName to handler. Registering the same name
// twice is an error: a silently-overwritten handler is a much harder bug
// to find than a registration-time error.
func Register[S any, E eventcore.DomainEvent, PS eventcore.StatePtr[S, E], C eventcore.Command, R any](
	d *CommandDispatcher[S, E, PS],
	commandName string,
	handler eventcore.CommandHandler[S, E, C, R],
) error {
	if commandName == "" {
		return fmt.Errorf("dispatch: command name cannot be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[commandName]; exists {
		return fmt.Errorf("dispatch: handler already registered for command %q", commandName)
	}

	d.handlers[commandName] = func(
		ctx context.Context,
		root *eventcore.AggregateRoot[S, E, PS],
		cmd eventcore.Command,
		services any,
	) (any, error) {
		typed, ok := cmd.(C)
		if !ok {
			var zero C
			return nil, fmt.Errorf("dispatch: command %q expects %T, got %T", commandName, zero, cmd)
		}
		return eventcore.Execute[S, E, PS, C, R](ctx, root, handler, typed, services)
	}
	return nil
}

// Dispatch looks up the handler registered under commandName and
// executes it against root via eventcore.Execute — exactly the direct
// call a caller could make by hand, just looked up by name instead of
// wired at compile time.
func (d *CommandDispatcher[S, E, PS]) Dispatch(
	ctx context.Context,
	root *eventcore.AggregateRoot[S, E, PS],
	commandName string,
	cmd eventcore.Command,
	services any,
) (any, error) {
	d.mu.RLock()
	handler, exists := d.handlers[commandName]
	d.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("dispatch: no handler registered for command %q", commandName)
	}
	return handler(ctx, root, cmd, services)
}
