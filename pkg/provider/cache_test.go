package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey_SameRequestSameKey(t *testing.T) {
	req := Request{Model: "gpt-x", Messages: []Message{{Role: RoleUser, Content: "hi"}}}
	assert.Equal(t, CacheKey("p1", req), CacheKey("p1", req))
}

func TestCacheKey_DiffersByProviderAndContent(t *testing.T) {
	req := Request{Model: "gpt-x", Messages: []Message{{Role: RoleUser, Content: "hi"}}}
	other := Request{Model: "gpt-x", Messages: []Message{{Role: RoleUser, Content: "bye"}}}
	assert.NotEqual(t, CacheKey("p1", req), CacheKey("p2", req))
	assert.NotEqual(t, CacheKey("p1", req), CacheKey("p1", other))
}
