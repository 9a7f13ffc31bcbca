// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/publisher-directory/internal/storage"
)

// DefaultUserAgent is the browser user agent sent while discovering favicons.
const DefaultUserAgent = "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/104.0.0.0 Mobile Safari/537.36"

// Config captures every pipeline knob loaded via Viper.
type Config struct {
	Sources   SourcesConfig   `mapstructure:"sources"`
	Output    OutputConfig    `mapstructure:"output"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// SourcesConfig locates the tabular publisher input.
type SourcesConfig struct {
	Dir  string `mapstructure:"dir"`
	File string `mapstructure:"file"`
	Glob string `mapstructure:"glob"`
}

// OutputConfig locates the generated artifacts and the lookup tables.
type OutputConfig struct {
	Dir                 string `mapstructure:"dir"`
	FaviconLookupFile   string `mapstructure:"favicon_lookup_file"`
	CoverInfoLookupFile string `mapstructure:"cover_info_lookup_file"`
}

// UploadConfig controls publishing the list view to an object store.
type UploadConfig struct {
	NoUpload bool   `mapstructure:"no_upload"`
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Prefix   string `mapstructure:"prefix"`
	LocalDir string `mapstructure:"local_dir"`
}

// DiscoveryConfig tunes favicon discovery.
type DiscoveryConfig struct {
	Concurrency    int    `mapstructure:"concurrency"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	DefaultScheme  string `mapstructure:"default_scheme"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig configures the optional Pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	JobName        string `mapstructure:"job_name"`
}

// Option adjusts the Viper instance after defaults, file and environment
// have been applied.
type Option func(v *viper.Viper)

// WithOverride forces key to value, taking precedence over every other
// source. Command-line flags use it.
func WithOverride(key string, value any) Option {
	return func(v *viper.Viper) {
		v.Set(key, value)
	}
}

// Load builds a Config from disk/environment. Environment variables use the
// PUBDIR_ prefix with dots replaced by underscores, e.g. PUBDIR_UPLOAD_BUCKET.
func Load(path string, opts ...Option) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PUBDIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	for _, opt := range opts {
		opt(v)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sources.dir", "sources")
	v.SetDefault("sources.file", "sources")
	v.SetDefault("sources.glob", "*.csv")
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.favicon_lookup_file", "favicon_lookup.json")
	v.SetDefault("output.cover_info_lookup_file", "cover_info_lookup.json")
	v.SetDefault("upload.no_upload", false)
	v.SetDefault("upload.provider", storage.ProviderGCS)
	v.SetDefault("upload.bucket", "")
	v.SetDefault("upload.region", "")
	v.SetDefault("upload.prefix", "")
	v.SetDefault("upload.local_dir", "")
	v.SetDefault("discovery.concurrency", runtime.NumCPU())
	v.SetDefault("discovery.timeout_seconds", 15)
	v.SetDefault("discovery.user_agent", DefaultUserAgent)
	v.SetDefault("discovery.default_scheme", "https")
	v.SetDefault("logging.development", true)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job_name", "pubdir")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Discovery.Concurrency <= 0 {
		return fmt.Errorf("discovery.concurrency must be > 0")
	}
	if c.Discovery.TimeoutSeconds <= 0 {
		return fmt.Errorf("discovery.timeout_seconds must be > 0")
	}
	if strings.TrimSpace(c.Sources.File) == "" {
		return fmt.Errorf("sources.file must be set")
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("output.dir must be set")
	}
	if c.Upload.NoUpload {
		return nil
	}
	switch strings.ToLower(c.Upload.Provider) {
	case storage.ProviderGCS, storage.ProviderS3:
		if c.Upload.Bucket == "" {
			return fmt.Errorf("upload.bucket must be set when uploading to %s", c.Upload.Provider)
		}
	case storage.ProviderLocal:
		if c.Upload.LocalDir == "" {
			return fmt.Errorf("upload.local_dir must be set when uploading locally")
		}
	default:
		return fmt.Errorf("upload.provider %q is not one of gcs, s3, local", c.Upload.Provider)
	}
	return nil
}

// DiscoveryTimeout converts the per-request timeout into a duration.
func (c Config) DiscoveryTimeout() time.Duration {
	return time.Duration(c.Discovery.TimeoutSeconds) * time.Second
}

// SourcesPath is the tabular input read by the sources command.
func (c Config) SourcesPath() string {
	return filepath.Join(c.Sources.Dir, c.Sources.File+".csv")
}

// FaviconLookupPath resolves the favicon lookup file. Relative names live
// in the output directory.
func (c Config) FaviconLookupPath() string {
	return c.outputPath(c.Output.FaviconLookupFile)
}

// CoverInfoLookupPath resolves the cover info lookup file.
func (c Config) CoverInfoLookupPath() string {
	return c.outputPath(c.Output.CoverInfoLookupFile)
}

// StorageConfig maps the upload section onto the storage factory input.
func (c Config) StorageConfig() storage.Config {
	return storage.Config{
		Provider: c.Upload.Provider,
		Bucket:   c.Upload.Bucket,
		Region:   c.Upload.Region,
		Prefix:   c.Upload.Prefix,
		LocalDir: c.Upload.LocalDir,
	}
}

func (c Config) outputPath(name string) string {
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(c.Output.Dir, name)
}
