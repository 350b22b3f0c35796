package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memoryConfigYAML = `
log:
  level: error
scoring:
  store: memory
  store_lock: local
  batch_size: 2
worker:
  concurrency: 2
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "npl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(memoryConfigYAML), 0o600))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "nplscore", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"score", "import", "run", "migrate", "fragments", "signature", "strip", "events", "summary", "reports", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	pf := cmd.PersistentFlags()

	for _, name := range []string{"config", "log-level", "output", "verbose", "no-color", "timeout"} {
		assert.NotNil(t, pf.Lookup(name), "missing flag %q", name)
	}
	assert.Equal(t, "v", pf.Lookup("verbose").Shorthand)
	assert.Equal(t, "text", pf.Lookup("output").DefValue)
	assert.Equal(t, "false", pf.Lookup("no-color").DefValue)
}

func TestRoot_InvalidOutputFormat(t *testing.T) {
	_, _, err := execute(t, "--config", writeConfig(t), "-o", "yaml", "signature", "CCO")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestRoot_MissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "signature", "CCO")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestRoot_UnknownSubcommand(t *testing.T) {
	_, _, err := execute(t, "bogus")
	assert.Error(t, err)
}

func TestVersion_SkipsConfig(t *testing.T) {
	out, _, err := execute(t, "--config", "/nonexistent.yaml", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "nplscore "+Version)

	out, _, err = execute(t, "version", "-o", "json")
	require.NoError(t, err)
	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := NewVersionCmd()
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestFormatTable(t *testing.T) {
	out, err := FormatTable([]string{"Signature", "Count"}, [][]string{{"C(O)", "2"}, {"O(C)", "1"}})
	require.NoError(t, err)
	assert.Contains(t, strings.ToUpper(out), "SIGNATURE")
	assert.Contains(t, out, "C(O)")
	assert.Contains(t, out, "O(C)")

	empty, err := FormatTable(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
