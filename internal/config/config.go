package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Engines EnginesConfig `mapstructure:"engines" yaml:"engines"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Audit   AuditConfig   `mapstructure:"audit" yaml:"audit"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig controls the headless browser process and per-page sessions.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// EngineConfig is the shared per-engine knob set.
type EngineConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Binary is the executable for subprocess engines (pa11y, lighthouse,
	// the IBM checker, alfa). Ignored by in-page and REST engines.
	Binary string `mapstructure:"binary" yaml:"binary"`
}

// AxeConfig extends EngineConfig with the axe-core script source.
type AxeConfig struct {
	EngineConfig `mapstructure:",squash" yaml:",inline"`
	// ScriptPath points at a local axe.min.js; when empty the adapter loads
	// the script from ScriptURL inside the page.
	ScriptPath string `mapstructure:"script_path" yaml:"script_path"`
	ScriptURL  string `mapstructure:"script_url" yaml:"script_url"`
}

// WaveConfig extends EngineConfig with WAVE REST API settings.
type WaveConfig struct {
	EngineConfig `mapstructure:",squash" yaml:",inline"`
	APIKey       string  `mapstructure:"api_key" yaml:"api_key"`
	Endpoint     string  `mapstructure:"endpoint" yaml:"endpoint"`
	ReportType   int     `mapstructure:"report_type" yaml:"report_type"`
	RatePerMin   float64 `mapstructure:"rate_per_min" yaml:"rate_per_min"`
}

// KeyboardConfig tunes the Tab traversal analyzer.
type KeyboardConfig struct {
	Enabled                bool `mapstructure:"enabled" yaml:"enabled"`
	MaxElements            int  `mapstructure:"max_elements" yaml:"max_elements"`
	TrapDetectionThreshold int  `mapstructure:"trap_detection_threshold" yaml:"trap_detection_threshold"`
}

// EnginesConfig gathers every checker the page orchestrator may invoke.
type EnginesConfig struct {
	Axe        AxeConfig      `mapstructure:"axe" yaml:"axe"`
	Pa11y      EngineConfig   `mapstructure:"pa11y" yaml:"pa11y"`
	Lighthouse EngineConfig   `mapstructure:"lighthouse" yaml:"lighthouse"`
	IBM        EngineConfig   `mapstructure:"ibm" yaml:"ibm"`
	Alfa       EngineConfig   `mapstructure:"alfa" yaml:"alfa"`
	Wave       WaveConfig     `mapstructure:"wave" yaml:"wave"`
	Keyboard   KeyboardConfig `mapstructure:"keyboard" yaml:"keyboard"`
	LiveRegion EngineConfig   `mapstructure:"live_region" yaml:"live_region"`
}

// AuthConfig feeds the static AuthManager.
type AuthConfig struct {
	Enabled          bool              `mapstructure:"enabled" yaml:"enabled"`
	Username         string            `mapstructure:"username" yaml:"username"`
	Password         string            `mapstructure:"password" yaml:"password"`
	Headers          map[string]string `mapstructure:"headers" yaml:"headers"`
	StorageStateFile string            `mapstructure:"storage_state_file" yaml:"storage_state_file"`
	// LoginURLPattern marks a post-navigation landing URL as an expired
	// session when matched (substring).
	LoginURLPattern string `mapstructure:"login_url_pattern" yaml:"login_url_pattern"`
}

// AuditConfig holds runtime settings resolved from CLI flags.
type AuditConfig struct {
	Output   string `mapstructure:"output" yaml:"output"`
	MaxPages int    `mapstructure:"max_pages" yaml:"max_pages"`
}

// SetDefaults registers every default on the given viper instance. Defaults
// are deliberately conservative: only the in-process engines are on, the
// subprocess and REST engines opt in via config.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "a11y-cli")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", 30*time.Second)
	v.SetDefault("browser.post_load_wait", 500*time.Millisecond)

	v.SetDefault("engines.axe.enabled", true)
	v.SetDefault("engines.axe.timeout", 30*time.Second)
	v.SetDefault("engines.axe.script_url", "https://cdnjs.cloudflare.com/ajax/libs/axe-core/4.10.2/axe.min.js")
	v.SetDefault("engines.pa11y.enabled", false)
	v.SetDefault("engines.pa11y.timeout", 60*time.Second)
	v.SetDefault("engines.pa11y.binary", "pa11y")
	v.SetDefault("engines.lighthouse.enabled", false)
	v.SetDefault("engines.lighthouse.timeout", 120*time.Second)
	v.SetDefault("engines.lighthouse.binary", "lighthouse")
	v.SetDefault("engines.ibm.enabled", false)
	v.SetDefault("engines.ibm.timeout", 60*time.Second)
	v.SetDefault("engines.ibm.binary", "achecker")
	v.SetDefault("engines.alfa.enabled", false)
	v.SetDefault("engines.alfa.timeout", 60*time.Second)
	v.SetDefault("engines.alfa.binary", "alfa")
	v.SetDefault("engines.wave.enabled", false)
	v.SetDefault("engines.wave.timeout", 45*time.Second)
	v.SetDefault("engines.wave.endpoint", "https://wave.webaim.org/api/request")
	v.SetDefault("engines.wave.report_type", 4)
	v.SetDefault("engines.wave.rate_per_min", 10.0)
	v.SetDefault("engines.keyboard.enabled", true)
	v.SetDefault("engines.keyboard.max_elements", 100)
	v.SetDefault("engines.keyboard.trap_detection_threshold", 3)
	v.SetDefault("engines.live_region.enabled", true)

	v.SetDefault("audit.max_pages", 4)
}

// Load reads the config file (optional) and environment, returning the
// unmarshalled configuration.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("A11Y")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: defaults and env vars carry the day.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewDefault returns the default configuration without touching the
// filesystem. Used by tests and as the fallback logger source.
func NewDefault() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Unmarshalling pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Engines.Wave.Enabled && c.Engines.Wave.APIKey == "" {
		return fmt.Errorf("engines.wave.enabled requires engines.wave.api_key")
	}
	if c.Engines.Keyboard.MaxElements <= 0 {
		return fmt.Errorf("engines.keyboard.max_elements must be positive")
	}
	if c.Engines.Keyboard.TrapDetectionThreshold < 2 {
		return fmt.Errorf("engines.keyboard.trap_detection_threshold must be at least 2")
	}
	if c.Audit.MaxPages <= 0 {
		return fmt.Errorf("audit.max_pages must be positive")
	}
	return nil
}
