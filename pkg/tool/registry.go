package tool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/swarmruntime/core/pkg/masking"
)

// Registry maps tool-name groups to the Executor that serves them and
// routes Call/ListTools requests, consulted by the provider router
// when auto-executing tool calls. Registration is rare (once per tool
// group at startup) while Execute/ListTools are on the hot path of
// every agent turn, so the executor table is a lock-free xsync.Map
// rather than a mutex-guarded map.
type Registry struct {
	executors *xsync.Map[string, Executor]
	masking   *masking.Service
	maskGroup string
}

// NewRegistry creates an empty Registry. maskingService may be nil
// (results are returned unmasked); maskGroup names the pattern group
// applied to tool result content when maskingService is set.
func NewRegistry(maskingService *masking.Service, maskGroup string) *Registry {
	return &Registry{
		executors: xsync.NewMap[string, Executor](),
		masking:   maskingService,
		maskGroup: maskGroup,
	}
}

// Register adds e under its own Name(), replacing any prior executor
// registered for that group.
func (r *Registry) Register(e Executor) {
	r.executors.Store(e.Name(), e)
}

// Execute routes call to the executor for its group, applying masking
// to the result content (if configured) before returning it. Routing
// failures (unknown group, malformed name) are returned as an error
// Result rather than a Go error, so a caller can always feed the
// result back to the model as tool-role context.
func (r *Registry) Execute(ctx context.Context, call Call) (*Result, error) {
	group, toolName, err := SplitName(call.Name)
	if err != nil {
		return &Result{CallID: call.ID, Name: call.Name, Content: err.Error(), IsError: true}, nil
	}

	executor, ok := r.executors.Load(group)
	if !ok {
		return &Result{
			CallID:  call.ID,
			Name:    call.Name,
			Content: fmt.Sprintf("no tool executor registered for group %q", group),
			IsError: true,
		}, nil
	}

	result, err := executor.Execute(ctx, Call{ID: call.ID, Name: toolName, Arguments: call.Arguments})
	if err != nil {
		return &Result{
			CallID:  call.ID,
			Name:    call.Name,
			Content: fmt.Sprintf("tool execution failed: %s", err),
			IsError: true,
		}, nil
	}

	if r.masking != nil && result.Content != "" {
		result.Content = r.masking.Mask(result.Content, r.maskGroup)
	}
	return result, nil
}

// ListTools aggregates every registered executor's tools, prefixing
// each name with its group. An executor that fails to list its tools
// is logged and skipped — partial results beat none.
func (r *Registry) ListTools(ctx context.Context) []Definition {
	executors := make([]Executor, 0, r.executors.Size())
	r.executors.Range(func(_ string, e Executor) bool {
		executors = append(executors, e)
		return true
	})

	var all []Definition
	for _, e := range executors {
		defs, err := e.ListTools(ctx)
		if err != nil {
			slog.Warn("failed to list tools from executor", "group", e.Name(), "error", err)
			continue
		}
		for _, d := range defs {
			d.Name = e.Name() + "." + d.Name
			all = append(all, d)
		}
	}
	return all
}
