package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	Env = map[string]string{"PAYMATRIX_TEST_KEY": "file"}
	t.Cleanup(func() { Env = nil })
	t.Setenv("PAYMATRIX_TEST_KEY", "process")

	assert.Equal(t, "file", GetEnv("PAYMATRIX_TEST_KEY", "default"))
	assert.Equal(t, "default", GetEnv("PAYMATRIX_MISSING_KEY", "default"))
}

func TestTypedGetters(t *testing.T) {
	Env = map[string]string{
		"FLAG_ON":  "true",
		"FLAG_BAD": "maybe",
		"COUNT":    " 42 ",
	}
	t.Cleanup(func() { Env = nil })

	assert.True(t, GetEnvBool("FLAG_ON", false))
	assert.True(t, GetEnvBool("FLAG_BAD", true))
	assert.False(t, GetEnvBool("FLAG_MISSING", false))
	assert.Equal(t, 42, GetEnvInt("COUNT", 0))
	assert.Equal(t, 7, GetEnvInt("COUNT_MISSING", 7))
}
