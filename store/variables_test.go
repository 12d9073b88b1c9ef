package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariables_SetGet(t *testing.T) {
	v := NewVariables()
	v.Set("FOO", "bar", false)
	val, ok := v.Get("FOO")
	require.True(t, ok)
	assert.Equal(t, "bar", val)
}

func TestVariables_UnsetFallsBackToEnv(t *testing.T) {
	os.Setenv("QSH_TEST_VAR", "from-env")
	defer os.Unsetenv("QSH_TEST_VAR")

	v := NewVariables()
	v.Set("QSH_TEST_VAR", "shadowed", false)
	v.Unset("QSH_TEST_VAR")

	val, ok := v.Get("QSH_TEST_VAR")
	assert.True(t, ok)
	assert.Equal(t, "from-env", val)
}

func TestVariables_ExportedSetsEnv(t *testing.T) {
	v := NewVariables()
	v.Set("QSH_TEST_EXPORTED", "1", true)
	defer os.Unsetenv("QSH_TEST_EXPORTED")

	assert.Equal(t, "1", os.Getenv("QSH_TEST_EXPORTED"))
}

func TestVariables_ExportCreatesFromEnvironment(t *testing.T) {
	os.Setenv("QSH_TEST_PREEXISTING", "value")
	defer os.Unsetenv("QSH_TEST_PREEXISTING")

	v := NewVariables()
	v.Export("QSH_TEST_PREEXISTING")

	found := false
	for _, entry := range v.All() {
		if entry.Name == "QSH_TEST_PREEXISTING" {
			found = true
			assert.True(t, entry.Exported)
		}
	}
	assert.True(t, found)
}

func TestVariables_MissingReturnsFalse(t *testing.T) {
	v := &Variables{table: map[string]*Variable{}}
	_, ok := v.Get("QSH_TEST_DEFINITELY_MISSING_XYZ")
	assert.False(t, ok)
}
