package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/convoral/convoral/core"
	"github.com/convoral/convoral/logging"
)

// RegistryOptions holds configuration overrides passed to NewRegistry.
type RegistryOptions struct {
	// DefaultTimeout bounds tool execution when Invoke is called with a zero
	// timeout.
	DefaultTimeout time.Duration
	// Logger receives per-invocation structured log lines.
	Logger logging.Logger
}

// Registry holds named tools and is the single entry point for validated,
// sandboxed invocation. Registration happens at construction time; Invoke is
// safe for concurrent use.
type Registry struct {
	tools          map[string]Tool
	order          []string // registration order, for stable Definitions()
	defaultTimeout time.Duration
	logger         logging.Logger
}

// NewRegistry constructs an empty registry with optional overrides.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		DefaultTimeout: 15 * time.Second,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		tools:          make(map[string]Tool),
		defaultTimeout: opts.DefaultTimeout,
		logger:         opts.Logger,
	}
}

// Register makes a tool available for invocation. It fails with a
// DUPLICATE_TOOL error when the name is already taken.
func (r *Registry) Register(t Tool) error {
	if _, exists := r.tools[t.Name()]; exists {
		return NewToolError(t.Name(), "tool already registered", core.CodeDuplicateTool)
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// MustRegister registers a tool and panics on duplicate names. Intended for
// static tool sets assembled at startup.
func (r *Registry) MustRegister(tools ...Tool) *Registry {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Get returns the named tool if registered.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Definitions returns declarative descriptions of every registered tool in
// registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, Definition{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()})
	}
	return defs
}

// Subset returns a new registry exposing only the named tools, sharing the
// parent's timeout and logger. Unknown names are an error so agent wiring
// mistakes surface at startup rather than at invocation time.
func (r *Registry) Subset(names ...string) (*Registry, error) {
	sub := &Registry{
		tools:          make(map[string]Tool, len(names)),
		defaultTimeout: r.defaultTimeout,
		logger:         r.logger,
	}
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			return nil, NewToolError(name, "tool not registered", core.CodeNotFound)
		}
		sub.tools[name] = t
		sub.order = append(sub.order, name)
	}
	return sub, nil
}

// Invoke validates args against the named tool's schema and executes it under
// the given timeout (the registry default when zero).
//
// Error semantics, always *ToolError:
//
//	unknown name          -> NOT_FOUND
//	schema violations     -> VALIDATION_ERROR (Details: every violation)
//	deadline exceeded     -> TOOL_TIMEOUT
//	implementation error  -> EXECUTION_ERROR (custom codes preserved when the
//	                         implementation returns *ToolError directly)
//
// A timed-out implementation is not preempted; the goroutine is abandoned on
// a best-effort basis and its eventual result discarded.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any, timeout time.Duration) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, NewToolError(name, "tool not registered", core.CodeNotFound)
	}

	if violations, err := ValidateArguments(args, t.Parameters()); err != nil {
		return nil, NewToolError(name, err.Error(), core.CodeValidation)
	} else if len(violations) > 0 {
		r.logger.Warn("tool.call.validation_failed", "tool", name, "violations", len(violations))
		return nil, &ToolError{
			Tool:    name,
			Message: fmt.Sprintf("parameter validation failed: %s", violations.Error()),
			Code:    core.CodeValidation,
			Details: violations,
		}
	}

	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	resCh := make(chan outcome, 1)

	start := time.Now()
	r.logger.Debug("tool.call.start", "tool", name)

	go func() {
		var out outcome
		defer func() {
			if rec := recover(); rec != nil {
				out = outcome{err: NewToolError(name, fmt.Sprintf("panic: %v", rec), core.CodeToolExecution)}
			}
			resCh <- out
		}()
		out.result, out.err = t.Call(ctx, args)
	}()

	select {
	case <-ctx.Done():
		r.logger.Warn("tool.call.timeout", "tool", name, "timeout", timeout)
		return nil, NewToolError(name, fmt.Sprintf("execution exceeded %s", timeout), core.CodeToolTimeout)
	case out := <-resCh:
		if out.err != nil {
			if toolErr, ok := out.err.(*ToolError); ok {
				r.logger.Error("tool.call.error", "tool", name, "error", toolErr.Message)
				return nil, toolErr
			}
			r.logger.Error("tool.call.error", "tool", name, "error", out.err.Error())
			return nil, NewToolError(name, out.err.Error(), core.CodeToolExecution)
		}
		r.logger.Info("tool.call.success", "tool", name, "duration_ms", time.Since(start).Milliseconds())
		return out.result, nil
	}
}
