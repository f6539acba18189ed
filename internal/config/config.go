// Package config resolves daybook settings from three layers, lowest
// precedence first: built-in defaults, the config.toml file in the
// journal directory, and DAYBOOK_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// FileName is the config file looked up inside the journal directory.
const FileName = "config.toml"

// Config holds the resolved settings.
type Config struct {
	// JournalDir is where the local store, session token and logs live.
	JournalDir string

	// RemoteDSN selects the remote store: a libsql:// URL for a hosted
	// database, or a file path for an embedded one. Empty disables sync.
	RemoteDSN string

	// RemoteAuthToken authenticates against a hosted remote store.
	RemoteAuthToken string

	// RealtimeURL is the change-feed hub (ws://host:port). Empty
	// disables the realtime listener.
	RealtimeURL string

	// RealtimePort is the port `daybook serve` listens on.
	RealtimePort int

	// WhisperURL is the speech-to-text endpoint for --from-audio.
	WhisperURL string

	// AttachDir is the attachment drop folder watched by the daemon.
	AttachDir string

	// LogFile receives daemon logs, rotated. Empty logs to stderr.
	LogFile string

	// AutoSaveDelay is the quiet period before an edit is pushed.
	AutoSaveDelay time.Duration

	// PullInterval is how often the daemon pulls remote changes.
	PullInterval time.Duration
}

// Default returns the built-in settings rooted at dir, or at
// ~/.daybook when dir is empty.
func Default(dir string) *Config {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dir = filepath.Join(home, ".daybook")
	}
	return &Config{
		JournalDir:    dir,
		RealtimePort:  8484,
		AttachDir:     filepath.Join(dir, "attachments"),
		AutoSaveDelay: 2 * time.Second,
		PullInterval:  time.Minute,
	}
}

// fileConfig mirrors config.toml. Durations are strings like "2s".
type fileConfig struct {
	RemoteDSN       string `toml:"remote_dsn"`
	RemoteAuthToken string `toml:"remote_auth_token"`
	RealtimeURL     string `toml:"realtime_url"`
	RealtimePort    int    `toml:"realtime_port"`
	WhisperURL      string `toml:"whisper_url"`
	AttachDir       string `toml:"attach_dir"`
	LogFile         string `toml:"log_file"`
	AutoSaveDelay   string `toml:"auto_save_delay"`
	PullInterval    string `toml:"pull_interval"`
}

// Load resolves the configuration for the journal at dir (empty means
// the default location). A missing config.toml is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default(dir)

	path := filepath.Join(cfg.JournalDir, FileName)
	if _, err := os.Stat(path); err == nil {
		var fc fileConfig
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := cfg.applyFile(&fc); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(fc *fileConfig) error {
	if fc.RemoteDSN != "" {
		c.RemoteDSN = fc.RemoteDSN
	}
	if fc.RemoteAuthToken != "" {
		c.RemoteAuthToken = fc.RemoteAuthToken
	}
	if fc.RealtimeURL != "" {
		c.RealtimeURL = fc.RealtimeURL
	}
	if fc.RealtimePort != 0 {
		c.RealtimePort = fc.RealtimePort
	}
	if fc.WhisperURL != "" {
		c.WhisperURL = fc.WhisperURL
	}
	if fc.AttachDir != "" {
		c.AttachDir = fc.AttachDir
	}
	if fc.LogFile != "" {
		c.LogFile = fc.LogFile
	}
	if fc.AutoSaveDelay != "" {
		d, err := time.ParseDuration(fc.AutoSaveDelay)
		if err != nil {
			return fmt.Errorf("auto_save_delay: %w", err)
		}
		c.AutoSaveDelay = d
	}
	if fc.PullInterval != "" {
		d, err := time.ParseDuration(fc.PullInterval)
		if err != nil {
			return fmt.Errorf("pull_interval: %w", err)
		}
		c.PullInterval = d
	}
	return nil
}

// applyEnv overlays DAYBOOK_* environment variables, the highest
// precedence layer.
func (c *Config) applyEnv() {
	v := viper.New()
	v.SetEnvPrefix("DAYBOOK")
	v.AutomaticEnv()

	if s := v.GetString("remote_dsn"); s != "" {
		c.RemoteDSN = s
	}
	if s := v.GetString("remote_auth_token"); s != "" {
		c.RemoteAuthToken = s
	}
	if s := v.GetString("realtime_url"); s != "" {
		c.RealtimeURL = s
	}
	if p := v.GetInt("realtime_port"); p != 0 {
		c.RealtimePort = p
	}
	if s := v.GetString("whisper_url"); s != "" {
		c.WhisperURL = s
	}
	if s := v.GetString("attach_dir"); s != "" {
		c.AttachDir = s
	}
	if s := v.GetString("log_file"); s != "" {
		c.LogFile = s
	}
	if s := v.GetString("auto_save_delay"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.AutoSaveDelay = d
		}
	}
	if s := v.GetString("pull_interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.PullInterval = d
		}
	}
}
