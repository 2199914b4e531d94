package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv_BraceAndBareSyntax(t *testing.T) {
	os.Setenv("SWARMD_TEST_KEY", "secret123")
	defer os.Unsetenv("SWARMD_TEST_KEY")

	out := ExpandEnv([]byte(`api_key_env: ${SWARMD_TEST_KEY}`))
	assert.Equal(t, "api_key_env: secret123", string(out))

	out = ExpandEnv([]byte(`api_key_env: $SWARMD_TEST_KEY`))
	assert.Equal(t, "api_key_env: secret123", string(out))
}

func TestExpandEnv_MissingVarExpandsEmpty(t *testing.T) {
	out := ExpandEnv([]byte(`value: ${SWARMD_DOES_NOT_EXIST}`))
	assert.Equal(t, "value: ", string(out))
}
