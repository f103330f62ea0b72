package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/marquee/internal/music"
	"pkt.systems/marquee/internal/perf"
	"pkt.systems/marquee/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int               `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string            `mapstructure:"state_dir" yaml:"state_dir"`
	Display       DisplayConfig     `mapstructure:"display" yaml:"display"`
	Music         MusicConfig       `mapstructure:"music" yaml:"music"`
	Popup         PopupConfig       `mapstructure:"popup" yaml:"popup"`
	Credentials   CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	SSH           SSHConfig         `mapstructure:"ssh" yaml:"ssh"`
	Logging       LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// DisplayConfig controls the character display and screen rotation.
type DisplayConfig struct {
	Height                int      `mapstructure:"height" yaml:"height"`
	Width                 int      `mapstructure:"width" yaml:"width"`
	PollIntervalSeconds   int      `mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	PollTimeoutSeconds    int      `mapstructure:"poll_timeout_seconds" yaml:"poll_timeout_seconds"`
	RotateIntervalSeconds int      `mapstructure:"rotate_interval_seconds" yaml:"rotate_interval_seconds"`
	Screens               []string `mapstructure:"screens" yaml:"screens"`
	Theme                 string   `mapstructure:"theme" yaml:"theme"`
}

// MusicConfig configures the music service client and login flow.
type MusicConfig struct {
	ClientID            string   `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret        string   `mapstructure:"client_secret" yaml:"client_secret"`
	RedirectURI         string   `mapstructure:"redirect_uri" yaml:"redirect_uri"`
	AuthOrigin          string   `mapstructure:"auth_origin" yaml:"auth_origin"`
	Scopes              []string `mapstructure:"scopes" yaml:"scopes"`
	AccountsURL         string   `mapstructure:"accounts_url" yaml:"accounts_url"`
	APIURL              string   `mapstructure:"api_url" yaml:"api_url"`
	HTTPTimeoutSeconds  int      `mapstructure:"http_timeout_seconds" yaml:"http_timeout_seconds"`
	LoginTimeoutSeconds int      `mapstructure:"login_timeout_seconds" yaml:"login_timeout_seconds"`
}

// PopupConfig selects and configures the login popup browser.
type PopupConfig struct {
	Mode        string `mapstructure:"mode" yaml:"mode"`
	ChromePath  string `mapstructure:"chrome_path" yaml:"chrome_path"`
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Width       int    `mapstructure:"width" yaml:"width"`
	Height      int    `mapstructure:"height" yaml:"height"`
	Headless    bool   `mapstructure:"headless" yaml:"headless"`
}

// Popup modes.
const (
	PopupModeChrome   = "chrome"
	PopupModeLoopback = "loopback"
)

// CredentialsConfig locates the encrypted credential store.
type CredentialsConfig struct {
	Dir          string `mapstructure:"dir" yaml:"dir"`
	KeyStorePath string `mapstructure:"key_store_path" yaml:"key_store_path"`
}

// SSHConfig configures the SSH display host.
type SSHConfig struct {
	Addr               string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath        string `mapstructure:"host_key_path" yaml:"host_key_path"`
	AuthorizedKeysPath string `mapstructure:"authorized_keys_path" yaml:"authorized_keys_path"`
	IdleTimeoutMinutes int    `mapstructure:"idle_timeout_minutes" yaml:"idle_timeout_minutes"`
}

// LoggingConfig controls audit logging behavior.
type LoggingConfig struct {
	DisableAuditTrails bool `mapstructure:"disable_audit_trails" yaml:"disable_audit_trails"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	base := filepath.Join(home, ".marquee")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(base, "state"),
		Display: DisplayConfig{
			Height:                schema.DefaultDisplayHeight,
			Width:                 schema.DefaultDisplayWidth,
			PollIntervalSeconds:   int(schema.DefaultPollInterval / time.Second),
			PollTimeoutSeconds:    int(schema.DefaultPollTimeout / time.Second),
			RotateIntervalSeconds: 0,
			Screens:               []string{string(perf.ScreenName), string(music.ScreenName)},
			Theme:                 string(schema.DefaultTheme),
		},
		Music: MusicConfig{
			ClientID:            "",
			ClientSecret:        "",
			RedirectURI:         music.DefaultRedirectURI,
			AuthOrigin:          music.DefaultAccountsURL,
			Scopes:              append([]string(nil), music.DefaultScopes...),
			AccountsURL:         music.DefaultAccountsURL,
			APIURL:              music.DefaultAPIURL,
			HTTPTimeoutSeconds:  int(music.DefaultHTTPTimeout / time.Second),
			LoginTimeoutSeconds: int(music.DefaultLoginTimeout / time.Second),
		},
		Popup: PopupConfig{
			Mode:        PopupModeChrome,
			ChromePath:  "",
			UserDataDir: filepath.Join(base, "state", "chrome"),
			Width:       music.DefaultPopupWidth,
			Height:      music.DefaultPopupHeight,
			Headless:    false,
		},
		Credentials: CredentialsConfig{
			Dir:          filepath.Join(base, "state", "credentials"),
			KeyStorePath: filepath.Join(base, "state", "credentials", "keys.bundle"),
		},
		SSH: SSHConfig{
			Addr:               "127.0.0.1:27421",
			HostKeyPath:        filepath.Join(base, "ssh_host_key"),
			AuthorizedKeysPath: filepath.Join(home, ".ssh", "authorized_keys"),
			IdleTimeoutMinutes: 0,
		},
		Logging: LoggingConfig{
			DisableAuditTrails: false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".marquee", "config.yaml"), nil
}

// DisplaySettings converts the display section to the core display config.
func (c Config) DisplaySettings() schema.DisplayConfig {
	return schema.DisplayConfig{
		Height:         c.Display.Height,
		Width:          c.Display.Width,
		PollInterval:   seconds(c.Display.PollIntervalSeconds),
		PollTimeout:    seconds(c.Display.PollTimeoutSeconds),
		RotateInterval: seconds(c.Display.RotateIntervalSeconds),
	}
}

// ClientSettings converts the music section to a client config.
func (c Config) ClientSettings() music.ClientConfig {
	return music.ClientConfig{
		ClientID:     c.Music.ClientID,
		ClientSecret: c.Music.ClientSecret,
		RedirectURI:  c.Music.RedirectURI,
		Scopes:       append([]string(nil), c.Music.Scopes...),
		AccountsURL:  c.Music.AccountsURL,
		APIURL:       c.Music.APIURL,
		HTTPTimeout:  seconds(c.Music.HTTPTimeoutSeconds),
	}
}

// ScreenSettings converts the music and popup sections to a screen config.
func (c Config) ScreenSettings() music.Config {
	return music.Config{
		RedirectURI:  c.Music.RedirectURI,
		AuthOrigin:   c.Music.AuthOrigin,
		LoginTimeout: seconds(c.Music.LoginTimeoutSeconds),
		PopupWidth:   c.Popup.Width,
		PopupHeight:  c.Popup.Height,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
