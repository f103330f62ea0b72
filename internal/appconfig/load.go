package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/marquee/internal/music"
	"pkt.systems/marquee/internal/perf"
	"pkt.systems/marquee/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MARQUEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("display.height", cfg.Display.Height)
	v.SetDefault("display.width", cfg.Display.Width)
	v.SetDefault("display.poll_interval_seconds", cfg.Display.PollIntervalSeconds)
	v.SetDefault("display.poll_timeout_seconds", cfg.Display.PollTimeoutSeconds)
	v.SetDefault("display.rotate_interval_seconds", cfg.Display.RotateIntervalSeconds)
	v.SetDefault("display.screens", cfg.Display.Screens)
	v.SetDefault("display.theme", cfg.Display.Theme)
	v.SetDefault("music.client_id", cfg.Music.ClientID)
	v.SetDefault("music.client_secret", cfg.Music.ClientSecret)
	v.SetDefault("music.redirect_uri", cfg.Music.RedirectURI)
	v.SetDefault("music.auth_origin", cfg.Music.AuthOrigin)
	v.SetDefault("music.scopes", cfg.Music.Scopes)
	v.SetDefault("music.accounts_url", cfg.Music.AccountsURL)
	v.SetDefault("music.api_url", cfg.Music.APIURL)
	v.SetDefault("music.http_timeout_seconds", cfg.Music.HTTPTimeoutSeconds)
	v.SetDefault("music.login_timeout_seconds", cfg.Music.LoginTimeoutSeconds)
	v.SetDefault("popup.mode", cfg.Popup.Mode)
	v.SetDefault("popup.chrome_path", cfg.Popup.ChromePath)
	v.SetDefault("popup.user_data_dir", cfg.Popup.UserDataDir)
	v.SetDefault("popup.width", cfg.Popup.Width)
	v.SetDefault("popup.height", cfg.Popup.Height)
	v.SetDefault("popup.headless", cfg.Popup.Headless)
	v.SetDefault("credentials.dir", cfg.Credentials.Dir)
	v.SetDefault("credentials.key_store_path", cfg.Credentials.KeyStorePath)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)
	v.SetDefault("ssh.authorized_keys_path", cfg.SSH.AuthorizedKeysPath)
	v.SetDefault("ssh.idle_timeout_minutes", cfg.SSH.IdleTimeoutMinutes)
	v.SetDefault("logging.disable_audit_trails", cfg.Logging.DisableAuditTrails)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	normalizeScreens(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the sections that would otherwise fail late at runtime.
func Validate(cfg Config) error {
	if _, err := schema.NormalizeDisplayConfig(cfg.DisplaySettings()); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	if len(cfg.Display.Screens) == 0 {
		return fmt.Errorf("display.screens: %w", schema.ErrNoScreens)
	}
	seen := make(map[string]bool, len(cfg.Display.Screens))
	for _, raw := range cfg.Display.Screens {
		name, err := schema.NormalizeScreenName(raw)
		if err != nil {
			return fmt.Errorf("display.screens: %w: %q", err, raw)
		}
		switch name {
		case perf.ScreenName, music.ScreenName:
		default:
			return fmt.Errorf("display.screens: %w: %q", schema.ErrInvalidScreen, raw)
		}
		if seen[string(name)] {
			return fmt.Errorf("display.screens: duplicate screen %q", name)
		}
		seen[string(name)] = true
	}
	if _, ok := schema.NormalizeThemeName(cfg.Display.Theme); !ok {
		return fmt.Errorf("unsupported display.theme %q", cfg.Display.Theme)
	}
	switch cfg.Popup.Mode {
	case PopupModeChrome, PopupModeLoopback:
	default:
		return fmt.Errorf("unsupported popup.mode %q", cfg.Popup.Mode)
	}
	if err := validateURL("music.redirect_uri", cfg.Music.RedirectURI); err != nil {
		return err
	}
	if err := validateURL("music.accounts_url", cfg.Music.AccountsURL); err != nil {
		return err
	}
	if err := validateURL("music.api_url", cfg.Music.APIURL); err != nil {
		return err
	}
	if cfg.Popup.Mode == PopupModeLoopback && !strings.HasPrefix(cfg.Music.RedirectURI, "http://") {
		return fmt.Errorf("popup.mode loopback requires an http:// music.redirect_uri")
	}
	return nil
}

func validateURL(key, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must include scheme and host (e.g. https://example.com)", key)
	}
	return nil
}

// normalizeScreens lower-cases valid screen names and leaves invalid ones for
// Validate to report.
func normalizeScreens(cfg *Config) {
	for i, raw := range cfg.Display.Screens {
		if name, err := schema.NormalizeScreenName(raw); err == nil {
			cfg.Display.Screens[i] = string(name)
		}
	}
}

// ThemeName returns the normalized display theme.
func (c Config) ThemeName() schema.ThemeName {
	if name, ok := schema.NormalizeThemeName(c.Display.Theme); ok {
		return name
	}
	return schema.DefaultTheme
}

// UsesScreen reports whether name is listed in display.screens.
func (c Config) UsesScreen(name schema.ScreenName) bool {
	for _, screen := range c.Display.Screens {
		if schema.ScreenName(screen) == name {
			return true
		}
	}
	return false
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Popup.ChromePath = expandEnv(cfg.Popup.ChromePath)
	cfg.Popup.UserDataDir = expandEnv(cfg.Popup.UserDataDir)
	cfg.Credentials.Dir = expandEnv(cfg.Credentials.Dir)
	cfg.Credentials.KeyStorePath = expandEnv(cfg.Credentials.KeyStorePath)
	cfg.SSH.HostKeyPath = expandEnv(cfg.SSH.HostKeyPath)
	cfg.SSH.AuthorizedKeysPath = expandEnv(cfg.SSH.AuthorizedKeysPath)
	cfg.Music.ClientID = expandEnv(cfg.Music.ClientID)
	cfg.Music.ClientSecret = expandEnv(cfg.Music.ClientSecret)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
