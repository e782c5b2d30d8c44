// ABOUTME: Tests for root command structure, global flags and local subcommands
// ABOUTME: Runs commands in-process with captured output

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/races/internal/auth"
	"github.com/2389/races/internal/config"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// execute runs the root command with args and returns everything written to stdout and stderr.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv(EnvToken, "")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "races", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"serve", "health", "list", "get", "archive", "restore", "delete", "import-leg", "slug", "token"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"config", "c", ""},
		{"verbose", "v", "false"},
		{"format", "", "text"},
		{"server", "", ""},
		{"token", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tt.name)
			require.NotNil(t, flag)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
			assert.Equal(t, tt.defValue, flag.DefValue)
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "slug", "Fastnet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSlugCommand(t *testing.T) {
	out, err := execute(t, "slug", "Vendée", "Globe", "2024")
	require.NoError(t, err)
	assert.Equal(t, "vende-globe-2024\n", out)
}

func TestSlugCommand_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "slug", "Route du Rhum")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "route-du-rhum", got["id"])
	assert.Equal(t, "Route du Rhum", got["name"])
}

func TestSlugCommand_Unusable(t *testing.T) {
	_, err := execute(t, "slug", "???")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not yield a usable id")
}

const testSecret = "a-jwt-secret-that-is-long-enough!"

func TestTokenCommand(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8000"
storage:
  races_dir: "races"
  archived_dir: "archived"
auth:
  jwt_secret: "`+testSecret+`"
`)

	out, err := execute(t, "--config", path, "token", "--subject", "race-director", "--ttl", "1h")
	require.NoError(t, err)

	verifier, err := auth.NewJWTVerifier([]byte(testSecret))
	require.NoError(t, err)
	subject, err := verifier.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "race-director", subject)
}

func TestTokenCommand_JSON(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8000"
storage:
  races_dir: "races"
  archived_dir: "archived"
auth:
  jwt_secret: "`+testSecret+`"
`)

	out, err := execute(t, "--config", path, "--format", "json", "token", "--subject", "ops")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "ops", got["subject"])
	assert.NotEmpty(t, got["token"])

	expires, err := time.Parse(time.RFC3339, got["expires_at"])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(defaultTokenTTL), expires, time.Minute)
}

func TestTokenCommand_NoSecret(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8000"
storage:
  races_dir: "races"
  archived_dir: "archived"
`)

	_, err := execute(t, "--config", path, "token", "--subject", "ops")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret")
}

func TestTokenCommand_SubjectRequired(t *testing.T) {
	_, err := execute(t, "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject")
}

func TestServeCommand_MissingConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestServeCommand_StorageNotADirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "races")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o644))

	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:0"
storage:
  races_dir: "`+blocker+`"
  archived_dir: "`+filepath.Join(dir, "archived")+`"
`)

	_, err := execute(t, "--config", path, "serve", "--quiet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening store")
}

func TestServeCommand_StopsWithContext(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:0"
storage:
  races_dir: "`+filepath.Join(dir, "races")+`"
  archived_dir: "`+filepath.Join(dir, "archived")+`"
logging:
  level: "error"
`)
	t.Setenv(config.EnvConfigPath, "")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", path, "serve"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after context cancellation")
	}

	assert.Contains(t, out.String(), "Races:")
	assert.DirExists(t, filepath.Join(dir, "archived"))
}

func TestURLFromListenAddr(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"0.0.0.0:8000", "http://localhost:8000"},
		{":9000", "http://localhost:9000"},
		{"[::]:8000", "http://localhost:8000"},
		{"races.internal:80", "http://races.internal:80"},
		{"bogus", "http://bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, urlFromListenAddr(tt.addr))
		})
	}
}

func TestServerURL(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")

	opts := &RootOptions{Server: "http://example:1"}
	assert.Equal(t, "http://example:1", opts.serverURL())

	opts = &RootOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")}
	assert.Equal(t, defaultServerURL, opts.serverURL())

	opts = &RootOptions{ConfigPath: writeConfig(t, `
server:
  http_addr: "0.0.0.0:8123"
storage:
  races_dir: "races"
  archived_dir: "archived"
`)}
	assert.Equal(t, "http://localhost:8123", opts.serverURL())
}

func TestToken_FromEnv(t *testing.T) {
	t.Setenv(EnvToken, "from-env")

	assert.Equal(t, "from-env", (&RootOptions{}).token())
	assert.Equal(t, "from-flag", (&RootOptions{Token: "from-flag"}).token())
}
