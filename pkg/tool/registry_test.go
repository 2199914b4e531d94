package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmruntime/core/pkg/masking"
)

type stubExecutor struct {
	name    string
	results map[string]*Result
	err     error
}

func (s *stubExecutor) Name() string { return s.name }

func (s *stubExecutor) Execute(_ context.Context, call Call) (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if r, ok := s.results[call.Name]; ok {
		return r, nil
	}
	return &Result{CallID: call.ID, Name: call.Name, Content: "ok"}, nil
}

func (s *stubExecutor) ListTools(_ context.Context) ([]Definition, error) {
	return []Definition{{Name: "do_thing", Description: "does a thing"}}, nil
}

func TestSplitName(t *testing.T) {
	group, toolName, err := SplitName("kubernetes.get_pods")
	require.NoError(t, err)
	assert.Equal(t, "kubernetes", group)
	assert.Equal(t, "get_pods", toolName)

	_, _, err = SplitName("not-a-valid-name")
	assert.Error(t, err)
}

func TestRegistry_Execute_RoutesToRegisteredExecutor(t *testing.T) {
	reg := NewRegistry(nil, "")
	reg.Register(&stubExecutor{name: "kubernetes"})

	result, err := reg.Execute(context.Background(), Call{ID: "c1", Name: "kubernetes.get_pods", Arguments: "{}"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "ok", result.Content)
}

func TestRegistry_Execute_UnknownGroupReturnsErrorResult(t *testing.T) {
	reg := NewRegistry(nil, "")
	result, err := reg.Execute(context.Background(), Call{ID: "c1", Name: "nope.do_thing"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "no tool executor registered")
}

func TestRegistry_Execute_MalformedNameReturnsErrorResult(t *testing.T) {
	reg := NewRegistry(nil, "")
	result, err := reg.Execute(context.Background(), Call{ID: "c1", Name: "not-valid"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRegistry_Execute_ExecutorErrorReturnsErrorResult(t *testing.T) {
	reg := NewRegistry(nil, "")
	reg.Register(&stubExecutor{name: "kubernetes", err: errors.New("transport down")})

	result, err := reg.Execute(context.Background(), Call{ID: "c1", Name: "kubernetes.get_pods"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "transport down")
}

func TestRegistry_Execute_AppliesMasking(t *testing.T) {
	maskSvc := masking.NewService()
	reg := NewRegistry(maskSvc, "secrets")
	reg.Register(&stubExecutor{
		name: "kubernetes",
		results: map[string]*Result{
			"get_secret": {CallID: "c1", Name: "get_secret", Content: `api_key: "sk-abcdefghijklmnopqrstuvwx"`},
		},
	})

	result, err := reg.Execute(context.Background(), Call{ID: "c1", Name: "kubernetes.get_secret"})
	require.NoError(t, err)
	assert.Contains(t, result.Content, "[MASKED_API_KEY]")
}

func TestRegistry_ListTools_PrefixesGroupName(t *testing.T) {
	reg := NewRegistry(nil, "")
	reg.Register(&stubExecutor{name: "kubernetes"})

	defs := reg.ListTools(context.Background())
	require.Len(t, defs, 1)
	assert.Equal(t, "kubernetes.do_thing", defs[0].Name)
}
