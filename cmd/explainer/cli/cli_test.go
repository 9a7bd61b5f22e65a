package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm/localmock"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/store"
)

// run 执行一次命令；全局 flag 变量在每次执行前复位
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	configPath, storePath, logLevel, provType, verbose = "", "", "", "", false
	explainKey, noPrompt = "", false

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("EXPLAINER_STYLE", "notty")

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := Execute(context.Background())
	return out.String(), err
}

func readStore(t *testing.T, path string) map[string]string {
	t.Helper()
	st, err := store.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	items, err := st.Get(context.Background(), store.KeyAPIKey, store.KeySelectedCode)
	require.NoError(t, err)
	return items
}

func TestKeySetAndReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")

	_, err := run(t, "", "key", "set", "KEY123", "--store", path)
	require.NoError(t, err)
	assert.Equal(t, "KEY123", readStore(t, path)[store.KeyAPIKey])

	_, err = run(t, "", "key", "status", "--store", path)
	require.NoError(t, err)

	_, err = run(t, "", "key", "reset", "--store", path)
	require.NoError(t, err)
	assert.NotContains(t, readStore(t, path), store.KeyAPIKey)
}

func TestKeySet_BlankFromStdinIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")

	_, err := run(t, "   \n", "key", "set", "--store", path)
	require.NoError(t, err)
	assert.Empty(t, readStore(t, path))
}

func TestSelect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")

	_, err := run(t, "print('hi')", "select", "--store", path)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", readStore(t, path)[store.KeySelectedCode])

	_, err = run(t, " \n ", "select", "-", "--store", path)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", readStore(t, path)[store.KeySelectedCode])
}

func TestExplain_LocalMock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")

	out, err := run(t, "for(i=0;i<10;i++){}", "explain", "--provider", "localmock", "--store", path)

	require.NoError(t, err)
	assert.Contains(t, out, strings.TrimSuffix(localmock.DefaultResponse, "."))
}

func TestExplain_NoKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")

	_, err := run(t, "x", "explain", "--provider", "gemini", "--store", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key saved")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")

	require.NoError(t, err)
	assert.Contains(t, out, "explainer dev")
}

func TestExplain_FailurePrintedOnce(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(script, []byte("simulate_error: quota exceeded\n"), 0o600))
	t.Setenv("EXPLAINER_PROVIDER", "localmock")
	t.Setenv("EXPLAINER_BASE_URL", script)

	out, err := run(t, "x", "explain", "--store", filepath.Join(dir, "storage.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 1, strings.Count(out, "quota exceeded"), out)
	assert.Contains(t, out, "Please check your API Key.")
}

func TestExecute_PrintsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")

	out, err := run(t, "x", "explain", "--provider", "gemini", "--store", path)

	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(out, "no API key saved"), out)
}

func TestKeySet_MasksKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")

	out, err := run(t, "", "key", "set", "AIzaSECRET1234", "--store", path)

	require.NoError(t, err)
	assert.Equal(t, "AIzaSECRET1234", readStore(t, path)[store.KeyAPIKey])
	assert.Contains(t, out, "1234")
	assert.NotContains(t, out, "SECRET")
}
