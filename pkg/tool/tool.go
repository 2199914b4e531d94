// Package tool defines the narrow executor/registry surface the provider
// router consults when a response carries tool calls and the caller
// opts into auto-execution (spec.md §3 ProviderResponse.toolCalls,
// SPEC_FULL.md §4.16). Tool names are "group.tool" (e.g.
// "kubernetes.get_pods"), routed to the executor registered for the
// group.
package tool

import (
	"context"
	"fmt"
	"regexp"
)

// Call is a single tool invocation requested by a provider response.
type Call struct {
	ID        string
	Name      string // "group.tool"
	Arguments string // raw JSON arguments
}

// Result is the outcome of executing a Call.
type Result struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

// Definition describes a tool available to the model, in the shape the
// provider router attaches to outbound requests.
type Definition struct {
	Name             string
	Description      string
	ParametersSchema string
}

// Executor runs one group's tools. Execute never returns a Go error for
// tool-level failures — a failed call comes back as Result.IsError with
// a human-readable Content, the same convention tarsy's MCP executor
// uses, so a failed tool call can be fed back to the model as context
// instead of aborting the turn.
type Executor interface {
	// Name identifies the group of tools this executor serves, matching
	// the "group" half of a "group.tool" name.
	Name() string
	// Execute runs call.Name's tool (with the group prefix stripped)
	// and returns its result.
	Execute(ctx context.Context, call Call) (*Result, error)
	// ListTools returns the tools this executor exposes, with names
	// prefixed "group.tool".
	ListTools(ctx context.Context) ([]Definition, error)
}

var toolNameRegex = regexp.MustCompile(`^([\w][\w-]*)\.([\w][\w-]*)$`)

// SplitName splits "group.tool" into (group, tool, error).
func SplitName(name string) (group, tool string, err error) {
	matches := toolNameRegex.FindStringSubmatch(name)
	if matches == nil {
		return "", "", fmt.Errorf(
			"invalid tool name %q: must be in 'group.tool' format (e.g. 'kubernetes.get_pods')", name)
	}
	return matches[1], matches[2], nil
}
