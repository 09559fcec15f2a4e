package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntAndDuration(t *testing.T) {
	t.Setenv("CFG_INT", "42")
	t.Setenv("CFG_BAD_INT", "forty")
	t.Setenv("CFG_DUR", "90s")

	n, err := Int("CFG_INT", 1)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = Int("CFG_BAD_INT", 1)
	assert.Error(t, err)

	n, err = Int("CFG_MISSING_INT", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	d, err := Duration("CFG_DUR", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestPort(t *testing.T) {
	t.Setenv("CFG_PORT", "70000")
	_, err := Port("CFG_PORT", "8080")
	assert.Error(t, err)

	p, err := Port("CFG_PORT_UNSET", "8080")
	require.NoError(t, err)
	assert.Equal(t, "8080", p)
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("CFG_BOOL", "yes")
	t.Setenv("CFG_LIST", " email, ,sms ")

	assert.True(t, Bool("CFG_BOOL", false))
	assert.True(t, Bool("CFG_BOOL_UNSET", true))
	assert.Equal(t, []string{"email", "sms"}, List("CFG_LIST", nil))
	assert.Equal(t, []string{"push"}, List("CFG_LIST_UNSET", []string{"push"}))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CFG_DOTENV_A=from-file\nCFG_DOTENV_B=from-file\n"), 0o600))

	t.Setenv("CFG_DOTENV_B", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("CFG_DOTENV_A") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", String("CFG_DOTENV_A", ""))
	assert.Equal(t, "from-env", String("CFG_DOTENV_B", ""))
}

func TestLocation(t *testing.T) {
	loc, err := Location("CFG_TZ_UNSET", "UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	t.Setenv("CFG_TZ", "Not/AZone")
	_, err = Location("CFG_TZ", "UTC")
	assert.Error(t, err)
}
