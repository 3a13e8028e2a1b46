package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/checkin/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background(), LoadOptions{GlobalConfigFile: "-"})
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Retry.BaseDelay)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, ViewportConfig{Width: 1600, Height: 1280}, cfg.Browser.Viewport)
	assert.Equal(t, "https://southwest.com", cfg.Steps.URL)
	assert.Equal(t, "dwell", cfg.Steps.SettleMode)
	assert.Equal(t, 3*time.Second, cfg.Steps.SettleDwell)
	assert.Equal(t, "SWA Check In Script", cfg.Notification.SenderName)
	assert.True(t, cfg.Notification.TLS)
	assert.Equal(t, "/tmp", cfg.Artifacts.ScratchDir)
	assert.True(t, cfg.Logging.History)
	assert.Empty(t, cfg.Notification.Recipients)
	assert.False(t, cfg.Notification.Configured())
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	t.Setenv("SWA_CONFIRMATION", "abc123")
	t.Setenv("SWA_NAME", "Ada King Lovelace")
	t.Setenv("SWA_EMAIL_SERVER", "smtp.example.com:587")
	t.Setenv("SWA_EMAIL_USER", "bot@example.com")
	t.Setenv("SWA_EMAIL_PASSWORD", "hunter2")
	t.Setenv("SWA_EMAIL_RECIPIENTS", "a@example.com,b@example.com")

	cfg, err := Load(context.Background(), LoadOptions{GlobalConfigFile: "-"})
	require.NoError(t, err)

	assert.Equal(t, "abc123", cfg.Traveler.Confirmation)
	assert.Equal(t, "Ada King Lovelace", cfg.Traveler.Name)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notification.Recipients)
	assert.True(t, cfg.Notification.Configured())
}

func TestLoad_PrefixedEnvironmentWinsOverLegacy(t *testing.T) {
	t.Setenv("SWA_CONFIRMATION", "legacy")
	t.Setenv("CHECKIN_TRAVELER_CONFIRMATION", "prefixed")
	t.Setenv("CHECKIN_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("CHECKIN_RETRY_BASE_DELAY", "2s")
	t.Setenv("CHECKIN_RETRY_NON_RETRYABLE", "site_reported")

	cfg, err := Load(context.Background(), LoadOptions{GlobalConfigFile: "-"})
	require.NoError(t, err)

	assert.Equal(t, "prefixed", cfg.Traveler.Confirmation)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, []string{"site_reported"}, cfg.Retry.NonRetryable)
}

func TestLoad_FilePrecedence(t *testing.T) {
	dir := t.TempDir()
	global := writeFile(t, dir, "global.yaml", `
retry:
  max_attempts: 4
  base_delay: 1s
artifacts:
  scratch_dir: /var/global
notification:
  recipients:
    - ops@example.com
`)
	explicit := writeFile(t, dir, "checkin.yaml", `
retry:
  max_attempts: 6
steps:
  settle_mode: network_idle
  selectors:
    confirm: "#confirm"
`)
	envFile := writeFile(t, dir, "test.env", `
SWA_CONFIRMATION=xyz789
CHECKIN_ARTIFACTS_SCRATCH_DIR=/var/envfile
UNRELATED=ignored
`)

	t.Setenv("CHECKIN_ARTIFACTS_SCRATCH_DIR", "/var/env")

	cfg, err := Load(context.Background(), LoadOptions{
		GlobalConfigFile: global,
		ConfigFile:       explicit,
		EnvFile:          envFile,
	})
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Retry.MaxAttempts, "explicit file over global")
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay, "global over defaults")
	assert.Equal(t, "network_idle", cfg.Steps.SettleMode)
	assert.Equal(t, "#confirm", cfg.Steps.Selectors.Confirm)
	assert.Equal(t, "xyz789", cfg.Traveler.Confirmation, "env file fills unset values")
	assert.Equal(t, "/var/env", cfg.Artifacts.ScratchDir, "real env over env file")
	assert.Equal(t, []string{"ops@example.com"}, cfg.Notification.Recipients)
}

func TestLoad_FlagsWin(t *testing.T) {
	t.Setenv("CHECKIN_RETRY_MAX_ATTEMPTS", "5")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("max-attempts", 3, "")
	fs.String("confirmation", "", "")
	fs.String("unbound", "", "")
	require.NoError(t, fs.Parse([]string{"--max-attempts", "2", "--confirmation", "flag01"}))

	cfg, err := Load(context.Background(), LoadOptions{GlobalConfigFile: "-", Flags: fs})
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
	assert.Equal(t, "flag01", cfg.Traveler.Confirmation)
}

func TestLoad_UnchangedFlagDoesNotOverrideEnv(t *testing.T) {
	t.Setenv("CHECKIN_RETRY_MAX_ATTEMPTS", "5")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("max-attempts", 3, "")
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(context.Background(), LoadOptions{GlobalConfigFile: "-", Flags: fs})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		opts LoadOptions
	}{
		{name: "missing explicit config", opts: LoadOptions{GlobalConfigFile: "-", ConfigFile: filepath.Join(dir, "nope.yaml")}},
		{name: "missing explicit env file", opts: LoadOptions{GlobalConfigFile: "-", EnvFile: filepath.Join(dir, "nope.env")}},
		{name: "malformed config", opts: LoadOptions{GlobalConfigFile: "-", ConfigFile: writeFile(t, dir, "bad.yaml", "retry: [unclosed")}},
		{name: "invalid values", opts: LoadOptions{GlobalConfigFile: "-", ConfigFile: writeFile(t, dir, "zero.yaml", "retry:\n  max_attempts: 0\n")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(context.Background(), tc.opts)
			require.ErrorIs(t, err, errors.ErrConfiguration)
		})
	}
}

func TestLoad_MissingGlobalIsSkipped(t *testing.T) {
	_, err := Load(context.Background(), LoadOptions{GlobalConfigFile: filepath.Join(t.TempDir(), "absent.yaml")})
	require.NoError(t, err)
}

func TestEnvNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"CHECKIN_RETRY_MAX_ATTEMPTS"}, envNames("retry.max_attempts"))
	assert.Equal(t, []string{"CHECKIN_NOTIFICATION_PASSWORD", "SWA_EMAIL_PASSWORD"}, envNames("notification.password"))
}

func TestSetNested(t *testing.T) {
	t.Parallel()

	m := map[string]any{}
	setNested(m, "steps.selectors.confirm", "#x")
	setNested(m, "steps.url", "https://example.com")

	steps, ok := m["steps"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://example.com", steps["url"])
	selectors, ok := steps["selectors"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "#x", selectors["confirm"])
}

func TestLoad_EnvFileFallsBackToCheckinHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".checkin"), 0o750))
	writeFile(t, filepath.Join(home, ".checkin"), ".env", "SWA_CONFIRMATION=home42\nSWA_NAME=Grace Hopper\n")

	cfg, err := Load(context.Background(), LoadOptions{GlobalConfigFile: "-"})
	require.NoError(t, err)
	assert.Equal(t, "home42", cfg.Traveler.Confirmation)
	assert.Equal(t, "Grace Hopper", cfg.Traveler.Name)
}

func TestLoad_WorkingDirectoryEnvFileWins(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	work := t.TempDir()
	t.Chdir(work)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".checkin"), 0o750))
	writeFile(t, filepath.Join(home, ".checkin"), ".env", "SWA_CONFIRMATION=home42\n")
	writeFile(t, work, ".env", "SWA_CONFIRMATION=work77\n")

	cfg, err := Load(context.Background(), LoadOptions{GlobalConfigFile: "-"})
	require.NoError(t, err)
	assert.Equal(t, "work77", cfg.Traveler.Confirmation)
}

func TestDefaultEnvFiles(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, []string{".env", filepath.Join(home, ".checkin", ".env")}, DefaultEnvFiles())
}
