// Package config loads scribe settings from an optional YAML file, SCRIBE_*
// environment variables, and built-in defaults, in that order of precedence
// below command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tiroq/scribe/internal/asr"
	"github.com/tiroq/scribe/internal/transcript"
)

// FileName is the config file base name searched for when no explicit path
// is given.
const FileName = "scribe"

// FFmpegConfig configures the external transcoder.
type FFmpegConfig struct {
	Binary         string `mapstructure:"binary" yaml:"binary"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // 0 = no limit
}

// ChunkedConfig tunes the chunked segmentation policy.
type ChunkedConfig struct {
	Threshold    float64 `mapstructure:"threshold" yaml:"threshold"`
	Workers      int     `mapstructure:"workers" yaml:"workers"` // 0 = GOMAXPROCS
	ChunkSeconds float64 `mapstructure:"chunk_seconds" yaml:"chunk_seconds"`
}

// OutputConfig controls what is written after a successful run.
type OutputConfig struct {
	Formats  []string `mapstructure:"formats" yaml:"formats"`
	Metadata bool     `mapstructure:"metadata" yaml:"metadata"`
	Dir      string   `mapstructure:"dir" yaml:"dir"` // empty = next to the input
}

// CacheConfig controls the transcript cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"` // empty = disabled
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	PollSeconds int    `mapstructure:"poll_seconds" yaml:"poll_seconds"`
	StableScans int    `mapstructure:"stable_scans" yaml:"stable_scans"`
	StatusFile  string `mapstructure:"status_file" yaml:"status_file"`
	PIDFile     string `mapstructure:"pid_file" yaml:"pid_file"`
}

// Config is the complete scribe configuration.
type Config struct {
	FFmpeg     FFmpegConfig  `mapstructure:"ffmpeg" yaml:"ffmpeg"`
	ScratchDir string        `mapstructure:"scratch_dir" yaml:"scratch_dir"`
	Model      string        `mapstructure:"model" yaml:"model"`
	Policy     string        `mapstructure:"policy" yaml:"policy"`
	Chunked    ChunkedConfig `mapstructure:"chunked" yaml:"chunked"`
	Output     OutputConfig  `mapstructure:"output" yaml:"output"`
	Cache      CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Metrics    MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Watch      WatchConfig   `mapstructure:"watch" yaml:"watch"`
	Debug      bool          `mapstructure:"debug" yaml:"debug"`
	DiagLog    string        `mapstructure:"diag_log" yaml:"diag_log"`

	// Source is the config file that was read, or "" when none was found.
	Source string `mapstructure:"-" yaml:"-"`
}

// Policies lists the segmentation policy names accepted by Validate.
var Policies = []string{"coarse", "chunked"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ffmpeg.binary", "ffmpeg")
	v.SetDefault("ffmpeg.timeout_seconds", 600)
	v.SetDefault("scratch_dir", "")
	v.SetDefault("model", asr.DefaultModel.Name())
	v.SetDefault("policy", "coarse")
	v.SetDefault("chunked.threshold", 0.0)
	v.SetDefault("chunked.workers", 0)
	v.SetDefault("chunked.chunk_seconds", 2.0)
	v.SetDefault("output.formats", []string{transcript.FormatText})
	v.SetDefault("output.metadata", false)
	v.SetDefault("output.dir", "")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", defaultCachePath())
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("watch.poll_seconds", 2)
	v.SetDefault("watch.stable_scans", 1)
	v.SetDefault("watch.status_file", "")
	v.SetDefault("watch.pid_file", "")
	v.SetDefault("debug", false)
	v.SetDefault("diag_log", "")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"model":      "model",
	"policy":     "policy",
	"format":     "output.formats",
	"output-dir": "output.dir",
	"metadata":   "output.metadata",
	"ffmpeg":     "ffmpeg.binary",
	"timeout":    "ffmpeg.timeout_seconds",
	"scratch":    "scratch_dir",
	"cache":      "cache.enabled",
	"threshold":  "chunked.threshold",
	"workers":    "chunked.workers",
	"debug":      "debug",
	"poll":       "watch.poll_seconds",
}

// Load reads configuration. When path is empty, scribe.yaml is looked up in
// the working directory and then in $HOME/.config/scribe; a missing file is
// not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	return LoadFlags(path, nil)
}

// LoadFlags is Load with command-line flags layered on top. Only flags the
// user actually set override the file and environment; flags not known to
// the config are ignored.
func LoadFlags(path string, flags *pflag.FlagSet) (*Config, error) {
	v := newViper()
	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := UserDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in defaults without reading files or the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// WriteDefault writes a config file with every default setting to path. It
// refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	v := viper.New()
	setDefaults(v)
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// YAML renders the effective configuration in config file form.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// UserDir returns $HOME/.config/scribe, or "" when HOME cannot be resolved.
func UserDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "scribe")
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "scribe", "transcripts.db")
}

// Validate checks Config for validity.
func (c *Config) Validate() error {
	if c.FFmpeg.Binary == "" {
		return fmt.Errorf("ffmpeg.binary must not be empty")
	}
	if c.FFmpeg.TimeoutSeconds < 0 {
		return fmt.Errorf("ffmpeg.timeout_seconds must be >= 0, got %d", c.FFmpeg.TimeoutSeconds)
	}
	if _, err := asr.ParseModel(c.Model); err != nil {
		return err
	}
	if !isPolicy(c.Policy) {
		return fmt.Errorf("policy must be one of %s, got %q", strings.Join(Policies, ", "), c.Policy)
	}
	if c.Chunked.Threshold < 0 {
		return fmt.Errorf("chunked.threshold must be >= 0, got %v", c.Chunked.Threshold)
	}
	if c.Chunked.Workers < 0 {
		return fmt.Errorf("chunked.workers must be >= 0, got %d", c.Chunked.Workers)
	}
	if c.Chunked.ChunkSeconds <= 0 {
		return fmt.Errorf("chunked.chunk_seconds must be > 0, got %v", c.Chunked.ChunkSeconds)
	}
	if err := transcript.ValidateFormats(c.Output.Formats); err != nil {
		return fmt.Errorf("output.formats: %w", err)
	}
	if c.Watch.PollSeconds < 1 || c.Watch.PollSeconds > 3600 {
		return fmt.Errorf("watch.poll_seconds must be between 1 and 3600, got %d", c.Watch.PollSeconds)
	}
	if c.Watch.StableScans < 1 {
		return fmt.Errorf("watch.stable_scans must be >= 1, got %d", c.Watch.StableScans)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path must be set when cache.enabled is true")
	}
	return nil
}

func isPolicy(name string) bool {
	for _, p := range Policies {
		if p == name {
			return true
		}
	}
	return false
}
