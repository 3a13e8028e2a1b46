package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/checkin/internal/browser"
	"github.com/mrz1836/checkin/internal/clock"
	"github.com/mrz1836/checkin/internal/config"
	"github.com/mrz1836/checkin/internal/domain"
	"github.com/mrz1836/checkin/internal/errors"
	"github.com/mrz1836/checkin/internal/flock"
	"github.com/mrz1836/checkin/internal/record"
	"github.com/mrz1836/checkin/internal/steps"
	"github.com/mrz1836/checkin/internal/testutil"
)

const testPassword = "pw-cli-test-9931"

// fakeMailer records sendemail invocations.
type fakeMailer struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (m *fakeMailer) run(_ context.Context, name string, args ...string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string{name}, args...))
	return "Email was sent successfully!", m.err
}

// checkInPage scripts a session for the default selectors. With banner set
// the submit click shows the site's error banner instead of the confirm button.
func checkInPage(banner string) *testutil.FakeSession {
	sel := steps.DefaultSelectors()
	s := testutil.NewFakeSession()
	s.AddElement(sel.CheckInTab, "Check In")
	s.AddElement(sel.Confirmation, "")
	s.AddElement(sel.FirstName, "")
	s.AddElement(sel.LastName, "")
	s.AddElement(sel.Submit, "Retrieve")
	s.OnClick[sel.Submit] = func(fs *testutil.FakeSession) {
		if banner != "" {
			fs.AddElement(sel.ErrorBanner, banner)
			return
		}
		fs.AddElement(sel.Confirm, "Check in")
	}
	return s
}

type runFixture struct {
	dir      string
	cfgFile  string
	clock    *clock.Fake
	launcher *testutil.FakeLauncher
	mailer   *fakeMailer
	console  bytes.Buffer
	out      bytes.Buffer
}

func newRunFixture(t *testing.T, yaml string) *runFixture {
	t.Helper()
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	body := strings.ReplaceAll(yaml, "{{dir}}", dir)
	require.NoError(t, os.WriteFile(cfgFile, []byte(body), 0o600))
	return &runFixture{
		dir:      dir,
		cfgFile:  cfgFile,
		clock:    clock.NewFake(time.Date(2026, 10, 14, 10, 15, 0, 0, time.UTC)),
		launcher: &testutil.FakeLauncher{},
		mailer:   &fakeMailer{},
	}
}

func (f *runFixture) deps() runDeps {
	return runDeps{
		clock:       f.clock,
		newLauncher: func(browser.Options, zerolog.Logger) browser.Launcher { return f.launcher },
		runner:      f.mailer.run,
		lookPath:    func(file string) (string, error) { return "/usr/bin/" + file, nil },
		console:     &f.console,
		loadOptions: func(_ *GlobalFlags, cmd *cobra.Command) config.LoadOptions {
			envFile := filepath.Join(f.dir, "empty.env")
			_ = os.WriteFile(envFile, nil, 0o600)
			return config.LoadOptions{
				ConfigFile:       f.cfgFile,
				EnvFile:          envFile,
				GlobalConfigFile: "-",
				Flags:            cmd.Flags(),
			}
		},
	}
}

// run executes a check-in with the given command line flags.
func (f *runFixture) run(t *testing.T, args ...string) (*RunFlags, error) {
	t.Helper()
	runFlags := &RunFlags{}
	cmd := &cobra.Command{Use: "run"}
	addRunFlags(cmd, runFlags)
	cmd.SetOut(&f.out)
	require.NoError(t, cmd.ParseFlags(args))
	return runFlags, runCheckinWith(context.Background(), cmd, &GlobalFlags{}, runFlags, f.deps())
}

func (f *runFixture) summary(t *testing.T) *record.Summary {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(f.dir, "checkin-run-*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	s, err := record.Load(matches[0])
	require.NoError(t, err)
	return s
}

const mailConfig = `
traveler:
  confirmation: abc123
  name: Ada Lovelace
retry:
  base_delay: 1s
artifacts:
  scratch_dir: {{dir}}
logging:
  history: false
notification:
  server: smtp.example.com:587
  user: bot@example.com
  password: ` + testPassword + `
  recipients: "ada@example.com, bob@example.com"
`

func TestRunCheckin_SuccessMailsReport(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t, mailConfig)
	f.launcher.NewSession = func(int) *testutil.FakeSession { return checkInPage("") }

	_, err := f.run(t)
	require.NoError(t, err)

	require.Equal(t, 1, f.launcher.Launches())
	session := f.launcher.Sessions[0]
	sel := steps.DefaultSelectors()
	assert.Equal(t, "ABC123", session.Typed[sel.Confirmation])
	assert.Equal(t, "Ada", session.Typed[sel.FirstName])
	assert.Equal(t, "Lovelace", session.Typed[sel.LastName])
	assert.Equal(t, [2]int{1600, 1280}, session.Viewport)

	require.Len(t, f.mailer.calls, 1)
	call := f.mailer.calls[0]
	assert.Equal(t, "sendemail", call[0])
	subject := call[slices.Index(call, "-u")+1]
	assert.Equal(t, "Southwest Check In Completed for Ada", subject)
	assert.Contains(t, call, "ada@example.com")
	assert.Contains(t, call, "bob@example.com")

	s := f.summary(t)
	assert.Equal(t, domain.OutcomeSuccess, s.Run.Outcome)
	assert.True(t, s.Notified)
	assert.Equal(t, domain.ArtifactLogFile, s.Artifacts[len(s.Artifacts)-1].Kind)

	assert.Contains(t, f.out.String(), "Outcome:  success")
	assert.Contains(t, f.out.String(), "Attempts: 1 of 3")

	runLog, err := os.ReadFile(s.Artifacts[len(s.Artifacts)-1].Path)
	require.NoError(t, err)
	assert.Contains(t, string(runLog), "starting check-in")
	assert.NotContains(t, string(runLog), testPassword)
}

func TestRunCheckin_SiteErrorExhaustsAndFails(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t, mailConfig)
	f.launcher.NewSession = func(int) *testutil.FakeSession {
		return checkInPage("Your reservation cannot be checked in yet.")
	}

	_, err := f.run(t, "--max-attempts", "2")
	require.ErrorIs(t, err, errors.ErrRunFailed)
	assert.Equal(t, ExitError, ExitCodeForError(err))

	assert.Equal(t, 2, f.launcher.Launches())
	require.Len(t, f.mailer.calls, 1)
	call := f.mailer.calls[0]
	assert.Equal(t, "Southwest Check In Failed for Ada", call[slices.Index(call, "-u")+1])

	body := call[slices.Index(call, "-m")+1]
	assert.Contains(t, body, "Your reservation cannot be checked in yet.")

	s := f.summary(t)
	assert.Equal(t, domain.OutcomeFailed, s.Run.Outcome)
	assert.Equal(t, 2, s.Run.Attempt)
	assert.Equal(t, 2, s.Run.MaxAttempts)
	assert.Equal(t, []time.Duration{time.Second}, f.clock.Sleeps(), "one backoff, no settle dwell")
}

func TestRunCheckin_FlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t, mailConfig)
	f.launcher.NewSession = func(int) *testutil.FakeSession { return checkInPage("") }

	_, err := f.run(t, "--confirmation", "zz9plz", "--first-name", "Grace", "--last-name", "Hopper", "--url", "https://example.test")
	require.NoError(t, err)

	session := f.launcher.Sessions[0]
	sel := steps.DefaultSelectors()
	assert.Equal(t, []string{"https://example.test"}, session.Navigated)
	assert.Equal(t, "ZZ9PLZ", session.Typed[sel.Confirmation])
	assert.Equal(t, "Grace", session.Typed[sel.FirstName])
	assert.Equal(t, "Hopper", session.Typed[sel.LastName])
}

func TestRunCheckin_JSONSummary(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t, mailConfig)
	f.launcher.NewSession = func(int) *testutil.FakeSession { return checkInPage("") }

	_, err := f.run(t, "-o", "json")
	require.NoError(t, err)

	var s record.Summary
	require.NoError(t, json.Unmarshal(f.out.Bytes(), &s))
	assert.Equal(t, domain.OutcomeSuccess, s.Run.Outcome)
	assert.NotEmpty(t, s.Artifacts)
}

func TestRunCheckin_WithoutMailStillSucceeds(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t, `
traveler:
  confirmation: abc123
  name: Ada Lovelace
artifacts:
  scratch_dir: {{dir}}
logging:
  history: false
`)
	f.launcher.NewSession = func(int) *testutil.FakeSession { return checkInPage("") }

	_, err := f.run(t)
	require.NoError(t, err)
	assert.Empty(t, f.mailer.calls)
	assert.False(t, f.summary(t).Notified)
}

func TestRunCheckin_MissingTravelerFailsBeforeLaunch(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t, `
traveler:
  name: Ada Lovelace
artifacts:
  scratch_dir: {{dir}}
logging:
  history: false
`)

	_, err := f.run(t)
	require.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Zero(t, f.launcher.Launches())
	assert.Empty(t, f.mailer.calls)
}

func TestRunCheckin_MissingSendemailFailsBeforeLaunch(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t, mailConfig)
	deps := f.deps()
	deps.lookPath = func(file string) (string, error) { return "", fmt.Errorf("%s: not found", file) }

	runFlags := &RunFlags{}
	cmd := &cobra.Command{Use: "run"}
	addRunFlags(cmd, runFlags)
	require.NoError(t, cmd.ParseFlags(nil))

	err := runCheckinWith(context.Background(), cmd, &GlobalFlags{}, runFlags, deps)
	require.ErrorIs(t, err, errors.ErrMissingRequiredTools)
	assert.Zero(t, f.launcher.Launches())
}

func TestRunCheckin_InvalidOutputFormat(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t, mailConfig)
	_, err := f.run(t, "-o", "yaml")
	require.ErrorIs(t, err, errors.ErrInvalidOutputFormat)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestRunCheckin_RefusesOverlappingRun(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t, mailConfig)
	lock, err := flock.Acquire(flock.Path(f.dir, "ABC123"))
	require.NoError(t, err)
	defer func() { require.NoError(t, lock.Release()) }()

	_, err = f.run(t)
	require.ErrorIs(t, err, flock.ErrLocked)
	assert.Zero(t, f.launcher.Launches())
}

func TestCredentialFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		traveler  config.TravelerConfig
		wantFirst string
		wantLast  string
		wantErr   bool
	}{
		{
			name:      "splits full name",
			traveler:  config.TravelerConfig{Confirmation: "abc123", Name: "Mary Ann Evans"},
			wantFirst: "Mary",
			wantLast:  "Ann Evans",
		},
		{
			name:      "explicit names win",
			traveler:  config.TravelerConfig{Confirmation: "abc123", Name: "Ada Lovelace", LastName: "King"},
			wantFirst: "Ada",
			wantLast:  "King",
		},
		{
			name:     "missing confirmation",
			traveler: config.TravelerConfig{Name: "Ada Lovelace"},
			wantErr:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cred, err := credentialFrom(tc.traveler)
			if tc.wantErr {
				require.ErrorIs(t, err, errors.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ABC123", cred.ConfirmationCode)
			assert.Equal(t, tc.wantFirst, cred.FirstName)
			assert.Equal(t, tc.wantLast, cred.LastName)
		})
	}
}

func TestRetryPolicyFrom(t *testing.T) {
	t.Parallel()

	policy := retryPolicyFrom(config.RetryConfig{
		MaxAttempts:  4,
		BaseDelay:    2 * time.Second,
		NonRetryable: []string{"site_reported"},
	})
	assert.Equal(t, 4, policy.MaxAttempts)
	assert.False(t, policy.ShouldRetry(errors.KindSiteReported))
	assert.True(t, policy.ShouldRetry(errors.KindInteraction))
	assert.Equal(t, 6*time.Second, policy.Backoff(3))
}

func TestRunCheckin_LegacyEnvironment(t *testing.T) {
	t.Setenv("SWA_CONFIRMATION", "xyz789")
	t.Setenv("SWA_NAME", "Grace Brewster Hopper")

	f := newRunFixture(t, `
artifacts:
  scratch_dir: {{dir}}
logging:
  history: false
notification:
  server: smtp.example.com:587
  user: bot@example.com
  password: `+testPassword+`
  recipients: ada@example.com
`)
	f.launcher.NewSession = func(int) *testutil.FakeSession {
		return checkInPage("Your reservation cannot be checked in yet.")
	}

	_, err := f.run(t)
	require.ErrorIs(t, err, errors.ErrRunFailed)

	assert.Equal(t, 3, f.launcher.Launches())
	sel := steps.DefaultSelectors()
	session := f.launcher.Sessions[0]
	assert.Equal(t, "XYZ789", session.Typed[sel.Confirmation])
	assert.Equal(t, "Grace", session.Typed[sel.FirstName])
	assert.Equal(t, "Brewster Hopper", session.Typed[sel.LastName])

	require.Len(t, f.mailer.calls, 1)
	call := f.mailer.calls[0]
	assert.Equal(t, "Southwest Check In Failed for Grace", call[slices.Index(call, "-u")+1])
}

func TestRunCheckin_ZeroAttemptsIsConfigurationError(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t, mailConfig)
	_, err := f.run(t, "--max-attempts", "0")

	require.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Equal(t, ExitError, ExitCodeForError(err))
	assert.Zero(t, f.launcher.Launches())
	assert.Empty(t, f.mailer.calls)
}
