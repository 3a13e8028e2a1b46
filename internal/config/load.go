package config

import (
	"context"
	stderrors "errors"
	"os"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mrz1836/checkin/internal/errors"
)

// envPrefix prefixes every environment variable checkin reads.
const envPrefix = "CHECKIN"

// legacyEnv maps config keys to the environment names the original
// check-in script used. They are bound alongside the CHECKIN_* names.
//
//nolint:gochecknoglobals // read-only lookup table
var legacyEnv = map[string]string{
	"traveler.confirmation":   "SWA_CONFIRMATION",
	"traveler.name":           "SWA_NAME",
	"notification.server":     "SWA_EMAIL_SERVER",
	"notification.user":       "SWA_EMAIL_USER",
	"notification.password":   "SWA_EMAIL_PASSWORD",
	"notification.recipients": "SWA_EMAIL_RECIPIENTS",
}

// flagKeys maps CLI flag names to config keys. Flags missing from the
// FlagSet are skipped.
//
//nolint:gochecknoglobals // read-only lookup table
var flagKeys = map[string]string{
	"confirmation": "traveler.confirmation",
	"name":         "traveler.name",
	"first-name":   "traveler.first_name",
	"last-name":    "traveler.last_name",
	"max-attempts": "retry.max_attempts",
	"scratch-dir":  "artifacts.scratch_dir",
	"url":          "steps.url",
	"headless":     "browser.headless",
	"install":      "browser.install",
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// ConfigFile is an explicit YAML config file. It must exist when set.
	ConfigFile string

	// EnvFile is a dotenv file. When empty, the first of DefaultEnvFiles that
	// exists is read. An explicit file must exist.
	EnvFile string

	// GlobalConfigFile overrides ~/.checkin/config.yaml. Tests point this at
	// a temp file; "-" disables the global layer.
	GlobalConfigFile string

	// Flags are bound at the highest precedence.
	Flags *pflag.FlagSet
}

// newViperInstance creates a Viper instance with checkin defaults, the
// CHECKIN_ prefix, the key replacer and the legacy env bindings.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(append([]string{key}, envNames(key)...)...)
	}
	return v
}

// envNames returns the environment names bound to key, CHECKIN_* first.
func envNames(key string) []string {
	names := []string{envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
	if legacy, ok := legacyEnv[key]; ok {
		names = append(names, legacy)
	}
	return names
}

// isConfigNotFoundError returns true if the error is a viper config file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// Load reads configuration from all sources with proper precedence,
// validates it and returns it.
//
// Missing optional files (the global config and the implicit .env) are
// skipped. Configuration problems wrap ErrConfiguration.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	v, err := newLayeredViper(opts)
	if err != nil {
		return nil, err
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Int("retry.max_attempts", cfg.Retry.MaxAttempts).
		Dur("retry.base_delay", cfg.Retry.BaseDelay).
		Str("artifacts.scratch_dir", cfg.Artifacts.ScratchDir).
		Bool("notification.configured", cfg.Notification.Configured()).
		Msg("configuration loaded and unmarshaled")

	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// newLayeredViper stacks the file layers and binds the flags.
func newLayeredViper(opts LoadOptions) (*viper.Viper, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v, opts.GlobalConfigFile); err != nil {
		return nil, err
	}
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(errors.ErrConfiguration, "failed to read config file %s: %v", opts.ConfigFile, err)
		}
	}
	if err := mergeEnvFile(v, opts.EnvFile); err != nil {
		return nil, err
	}
	if err := bindFlags(v, opts.Flags); err != nil {
		return nil, err
	}
	return v, nil
}

// loadGlobalConfig reads the global config when it exists.
func loadGlobalConfig(v *viper.Viper, path string) error {
	if path == "-" {
		return nil
	}
	if path == "" {
		p, err := GlobalConfigPath()
		if err != nil {
			// Home directory unavailable, skip silently
			return nil //nolint:nilerr // the global layer is optional
		}
		path = p
	}
	if !fileExists(path) {
		return nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrapf(errors.ErrConfiguration, "failed to read global config file %s: %v", path, err)
	}
	return nil
}

// mergeEnvFile reads a dotenv file and merges the variables it knows about
// over the file layers. Real environment variables still win, because viper
// checks the environment before the config map.
func mergeEnvFile(v *viper.Viper, path string) error {
	if path == "" {
		path = firstExisting(DefaultEnvFiles())
		if path == "" {
			return nil
		}
	} else if !fileExists(path) {
		return errors.Wrapf(errors.ErrConfiguration, "env file %s not found", path)
	}

	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("dotenv")
	if err := ev.ReadInConfig(); err != nil {
		return errors.Wrapf(errors.ErrConfiguration, "failed to read env file %s: %v", path, err)
	}

	values := make(map[string]string, len(ev.AllKeys()))
	for _, name := range ev.AllKeys() {
		values[strings.ToUpper(name)] = ev.GetString(name)
	}

	layer := map[string]any{}
	for _, key := range v.AllKeys() {
		for _, name := range envNames(key) {
			if val, ok := values[name]; ok {
				setNested(layer, key, val)
				break
			}
		}
	}
	if len(layer) == 0 {
		return nil
	}
	if err := v.MergeConfigMap(layer); err != nil {
		return errors.Wrapf(errors.ErrConfiguration, "failed to merge env file %s: %v", path, err)
	}
	return nil
}

// setNested stores val under a dotted key in a nested map.
func setNested(m map[string]any, key string, val any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = val
}

// bindFlags binds every known flag present in fs.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return errors.Wrapf(err, "failed to bind flag --%s", name)
		}
	}
	return nil
}

// unmarshal decodes v into a Config.
func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrapf(errors.ErrConfiguration, "failed to unmarshal config: %v", err)
	}
	cfg.Notification.Recipients = cleanList(cfg.Notification.Recipients)
	cfg.Retry.NonRetryable = cleanList(cfg.Retry.NonRetryable)
	return &cfg, nil
}

// viperDecoderOption configures mapstructure for durations and for
// comma separated lists given as a single string.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToListHook(),
		),
	)
}

// stringToListHook splits a string on commas and whitespace when the
// target is a []string.
func stringToListHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}
		s, _ := data.(string)
		return strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		}), nil
	}
}

// cleanList trims entries and drops blanks.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// fileExists returns true if the file at path exists.
// firstExisting returns the first path in paths that exists, or "".
func firstExisting(paths []string) string {
	for _, p := range paths {
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// setDefaults configures all default values on the Viper instance.
// These defaults match DefaultConfig. Every key the loader knows about must
// have a default here so env bindings and the dotenv layer can find it.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("traveler.confirmation", "")
	v.SetDefault("traveler.name", "")
	v.SetDefault("traveler.first_name", "")
	v.SetDefault("traveler.last_name", "")

	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.base_delay", d.Retry.BaseDelay.String())
	v.SetDefault("retry.max_delay", "0s")
	v.SetDefault("retry.non_retryable", []string{})

	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.install", d.Browser.Install)
	v.SetDefault("browser.executable_path", "")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.viewport.width", d.Browser.Viewport.Width)
	v.SetDefault("browser.viewport.height", d.Browser.Viewport.Height)
	v.SetDefault("browser.action_timeout", d.Browser.ActionTimeout.String())

	v.SetDefault("steps.url", d.Steps.URL)
	v.SetDefault("steps.settle_mode", d.Steps.SettleMode)
	v.SetDefault("steps.settle_dwell", d.Steps.SettleDwell.String())
	v.SetDefault("steps.settle_timeout", d.Steps.SettleTimeout.String())
	v.SetDefault("steps.poll_interval", d.Steps.PollInterval.String())
	v.SetDefault("steps.selectors.check_in_tab", "")
	v.SetDefault("steps.selectors.confirmation", "")
	v.SetDefault("steps.selectors.first_name", "")
	v.SetDefault("steps.selectors.last_name", "")
	v.SetDefault("steps.selectors.submit", "")
	v.SetDefault("steps.selectors.error_banner", "")
	v.SetDefault("steps.selectors.confirm", "")

	v.SetDefault("notification.server", "")
	v.SetDefault("notification.user", "")
	v.SetDefault("notification.password", "")
	v.SetDefault("notification.recipients", []string{})
	v.SetDefault("notification.sender_name", d.Notification.SenderName)
	v.SetDefault("notification.tls", d.Notification.TLS)
	v.SetDefault("notification.binary", d.Notification.Binary)
	v.SetDefault("notification.timeout", d.Notification.Timeout.String())

	v.SetDefault("artifacts.scratch_dir", d.Artifacts.ScratchDir)

	v.SetDefault("logging.history", d.Logging.History)
	v.SetDefault("logging.history_file", "")
}
