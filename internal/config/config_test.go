package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PUBDIR_UPLOAD_BUCKET", "directory-bucket")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sources.Dir != "sources" || cfg.Sources.File != "sources" || cfg.Sources.Glob != "*.csv" {
		t.Fatalf("unexpected sources defaults: %+v", cfg.Sources)
	}
	if cfg.Output.Dir != "output" {
		t.Fatalf("expected output dir default, got %q", cfg.Output.Dir)
	}
	if cfg.Upload.Provider != "gcs" || cfg.Upload.Bucket != "directory-bucket" || cfg.Upload.NoUpload {
		t.Fatalf("unexpected upload config: %+v", cfg.Upload)
	}
	if cfg.Discovery.Concurrency != runtime.NumCPU() {
		t.Fatalf("expected concurrency %d, got %d", runtime.NumCPU(), cfg.Discovery.Concurrency)
	}
	if cfg.DiscoveryTimeout() != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %v", cfg.DiscoveryTimeout())
	}
	if cfg.Discovery.UserAgent != DefaultUserAgent {
		t.Fatalf("unexpected user agent %q", cfg.Discovery.UserAgent)
	}
	if !cfg.Logging.Development || cfg.Metrics.JobName != "pubdir" || cfg.Metrics.PushgatewayURL != "" {
		t.Fatalf("unexpected ambient defaults: %+v %+v", cfg.Logging, cfg.Metrics)
	}
	if got := cfg.SourcesPath(); got != filepath.Join("sources", "sources.csv") {
		t.Fatalf("unexpected sources path %q", got)
	}
	if got := cfg.FaviconLookupPath(); got != filepath.Join("output", "favicon_lookup.json") {
		t.Fatalf("unexpected favicon lookup path %q", got)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
sources:
  dir: data
  file: sources.ja_JP
output:
  dir: build
  favicon_lookup_file: /srv/lookups/favicons.json
  cover_info_lookup_file: covers.json
upload:
  provider: s3
  bucket: brave-today
  region: us-west-2
  prefix: directory
discovery:
  concurrency: 12
  timeout_seconds: 5
  user_agent: test-agent
logging:
  development: false
metrics:
  pushgateway_url: http://pushgateway:9091
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.SourcesPath(); got != filepath.Join("data", "sources.ja_JP.csv") {
		t.Fatalf("unexpected sources path %q", got)
	}
	if got := cfg.FaviconLookupPath(); got != "/srv/lookups/favicons.json" {
		t.Fatalf("absolute lookup path must be kept, got %q", got)
	}
	if got := cfg.CoverInfoLookupPath(); got != filepath.Join("build", "covers.json") {
		t.Fatalf("unexpected cover lookup path %q", got)
	}
	sc := cfg.StorageConfig()
	if sc.Provider != "s3" || sc.Bucket != "brave-today" || sc.Region != "us-west-2" || sc.Prefix != "directory" {
		t.Fatalf("unexpected storage config: %+v", sc)
	}
	if cfg.Discovery.Concurrency != 12 || cfg.DiscoveryTimeout() != 5*time.Second || cfg.Discovery.UserAgent != "test-agent" {
		t.Fatalf("expected discovery overrides to apply: %+v", cfg.Discovery)
	}
	if cfg.Logging.Development {
		t.Fatal("expected production logging")
	}
	if cfg.Metrics.PushgatewayURL != "http://pushgateway:9091" {
		t.Fatalf("unexpected pushgateway url %q", cfg.Metrics.PushgatewayURL)
	}
}

func TestLoadOverridesWin(t *testing.T) {
	t.Setenv("PUBDIR_DISCOVERY_CONCURRENCY", "3")

	cfg, err := Load("",
		WithOverride("upload.no_upload", true),
		WithOverride("discovery.concurrency", 7),
	)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Upload.NoUpload {
		t.Fatal("expected no_upload override to apply")
	}
	if cfg.Discovery.Concurrency != 7 {
		t.Fatalf("expected override to beat env, got %d", cfg.Discovery.Concurrency)
	}
}

func TestLoadRejectsUploadWithoutBucket(t *testing.T) {
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "upload.bucket") {
		t.Fatalf("expected upload.bucket error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Sources:   SourcesConfig{File: "sources"},
		Output:    OutputConfig{Dir: "output"},
		Upload:    UploadConfig{Provider: "gcs", Bucket: "bucket"},
		Discovery: DiscoveryConfig{Concurrency: 1, TimeoutSeconds: 15},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config must be valid: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid concurrency",
			cfg: func() Config {
				c := base
				c.Discovery.Concurrency = 0
				return c
			}(),
			want: "discovery.concurrency",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.Discovery.TimeoutSeconds = -1
				return c
			}(),
			want: "discovery.timeout_seconds",
		},
		{
			name: "missing sources file",
			cfg: func() Config {
				c := base
				c.Sources.File = " "
				return c
			}(),
			want: "sources.file",
		},
		{
			name: "missing output dir",
			cfg: func() Config {
				c := base
				c.Output.Dir = ""
				return c
			}(),
			want: "output.dir",
		},
		{
			name: "gcs without bucket",
			cfg: func() Config {
				c := base
				c.Upload.Bucket = ""
				return c
			}(),
			want: "upload.bucket",
		},
		{
			name: "local without dir",
			cfg: func() Config {
				c := base
				c.Upload.Provider = "local"
				return c
			}(),
			want: "upload.local_dir",
		},
		{
			name: "unknown provider",
			cfg: func() Config {
				c := base
				c.Upload.Provider = "ftp"
				return c
			}(),
			want: "upload.provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateSkipsUploadChecksWhenDisabled(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Sources:   SourcesConfig{File: "sources"},
		Output:    OutputConfig{Dir: "output"},
		Upload:    UploadConfig{NoUpload: true, Provider: "gcs"},
		Discovery: DiscoveryConfig{Concurrency: 2, TimeoutSeconds: 15},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
