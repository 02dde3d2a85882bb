package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoader_Load(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := `# Comment
FOO=bar
BAZ="quoted value"
export EXPORTED=yes
EMPTY=
SINGLE_QUOTE='single'
not a pair
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	l := NewLoader()
	require.NoError(t, l.Load(envFile))
	assert.True(t, l.Loaded())
	assert.Equal(t, "bar", l.vars["FOO"])
	assert.Equal(t, "quoted value", l.vars["BAZ"])
	assert.Equal(t, "yes", l.vars["EXPORTED"])
	assert.Equal(t, "", l.vars["EMPTY"])
	assert.Equal(t, "single", l.vars["SINGLE_QUOTE"])
	assert.Len(t, l.vars, 5)
}

func TestDefaultLoader_Load_FileNotFound(t *testing.T) {
	l := NewLoader()
	err := l.Load("/nonexistent/.env")
	assert.Error(t, err)
	assert.False(t, l.Loaded())
}

func TestDefaultLoader_Get(t *testing.T) {
	l := NewLoader()
	l.vars["TEST_KEY"] = "from_file"

	assert.Equal(t, "from_file", l.Get("TEST_KEY"))

	t.Setenv("TEST_KEY", "from_os")
	assert.Equal(t, "from_os", l.Get("TEST_KEY"))

	assert.Equal(t, "", l.Get("NONEXISTENT"))
}

func TestDefaultLoader_Prefix(t *testing.T) {
	l := NewPrefixedLoader("CAMPAIGNS_")
	l.vars["CAMPAIGNS_STORE_KIND"] = "file"
	l.vars["STORE_PATH"] = "ignored"

	assert.Equal(t, "file", l.Get("STORE_KIND"))
	assert.Empty(t, l.Get("STORE_PATH"))

	_, err := l.GetRequired("MONITOR_ADDR")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CAMPAIGNS_MONITOR_ADDR")
}

func TestDefaultLoader_Lookup_EmptyIsUnset(t *testing.T) {
	l := NewLoader()
	l.vars["EMPTY"] = ""

	_, ok := l.Lookup("EMPTY")
	assert.False(t, ok)
}

func TestDefaultLoader_GetRequired(t *testing.T) {
	l := NewLoader()
	l.vars["EXISTS"] = "value"

	v, err := l.GetRequired("EXISTS")
	assert.NoError(t, err)
	assert.Equal(t, "value", v)

	_, err = l.GetRequired("MISSING")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "MISSING")
}

func TestDefaultLoader_GetWithDefault(t *testing.T) {
	l := NewLoader()
	l.vars["EXISTS"] = "value"

	assert.Equal(t, "value", l.GetWithDefault("EXISTS", "default"))
	assert.Equal(t, "default", l.GetWithDefault("MISSING", "default"))
}

func TestDefaultLoader_TypedGetters(t *testing.T) {
	l := NewLoader()
	l.vars["N"] = "8"
	l.vars["B"] = "true"
	l.vars["D"] = "90s"
	l.vars["BAD"] = "x"

	n, err := l.GetInt("N", 1)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n, err = l.GetInt("MISSING", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = l.GetInt("BAD", 1)
	assert.Error(t, err)

	b, err := l.GetBool("B", false)
	require.NoError(t, err)
	assert.True(t, b)

	_, err = l.GetBool("BAD", false)
	assert.Error(t, err)

	d, err := l.GetDuration("D", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = l.GetDuration("BAD", time.Second)
	assert.Error(t, err)
}

func TestDefaultLoader_Set(t *testing.T) {
	l := NewPrefixedLoader("CAMPAIGNS_TEST_")
	t.Cleanup(func() { os.Unsetenv("CAMPAIGNS_TEST_MY_VAR") })

	require.NoError(t, l.Set("MY_VAR", "my_value"))
	assert.Equal(t, "my_value", l.Get("MY_VAR"))
	assert.Equal(t, "my_value", os.Getenv("CAMPAIGNS_TEST_MY_VAR"))
}

func TestDefaultLoader_All(t *testing.T) {
	l := NewLoader()
	l.vars["A"] = "1"
	l.vars["B"] = "2"

	all := l.All()
	assert.Equal(t, "1", all["A"])
	assert.Equal(t, "2", all["B"])

	// Verify it's a copy
	all["C"] = "3"
	assert.Empty(t, l.vars["C"])
}
