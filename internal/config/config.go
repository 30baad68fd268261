// Package config loads and validates iconsync configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Storage provider names accepted in storage.provider.
const (
	ProviderS3     = "s3"
	ProviderGCS    = "gcs"
	ProviderMemory = "memory"
)

// Importer source kinds accepted in server.sources.
const (
	SourceDirectory = "directory"
	SourceBucket    = "bucket"
)

// minAttempts is the lowest retry budget accepted for object downloads.
const minAttempts = 3

// Config captures all knobs loaded via Viper. It is built once at startup and
// passed by pointer into the components that need it.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Download DownloadConfig `mapstructure:"download"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Export   ExportConfig   `mapstructure:"export"`
	Server   ServerConfig   `mapstructure:"server"`
	Publish  PublishConfig  `mapstructure:"publish"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StorageConfig selects and configures the object-storage backend.
type StorageConfig struct {
	Provider           string `mapstructure:"provider"`
	Bucket             string `mapstructure:"bucket"`
	Region             string `mapstructure:"region"`
	Endpoint           string `mapstructure:"endpoint"`
	AccessKeyID        string `mapstructure:"access_key_id"`
	SecretAccessKey    string `mapstructure:"secret_access_key"`
	UsePathStyle       bool   `mapstructure:"use_path_style"`
	CallTimeoutSeconds int    `mapstructure:"call_timeout_seconds"`
	PageSize           int    `mapstructure:"page_size"`
}

// DownloadConfig governs the bounded downloader.
type DownloadConfig struct {
	Concurrency      int    `mapstructure:"concurrency"`
	MaxAttempts      int    `mapstructure:"max_attempts"`
	IconSuffix       string `mapstructure:"icon_suffix"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
}

// PathsConfig sets the local filesystem layout.
type PathsConfig struct {
	TempDir   string `mapstructure:"temp_dir"`
	OutputDir string `mapstructure:"output_dir"`
}

// ExportConfig fills the info block written into every artifact.
type ExportConfig struct {
	AuthorName   string `mapstructure:"author_name"`
	AuthorURL    string `mapstructure:"author_url"`
	LicenseTitle string `mapstructure:"license_title"`
	LicenseSPDX  string `mapstructure:"license_spdx"`
	LicenseURL   string `mapstructure:"license_url"`
}

// ServerConfig controls the serving process.
type ServerConfig struct {
	Port             int            `mapstructure:"port"`
	APIKey           string         `mapstructure:"api_key"`
	CacheFile        string         `mapstructure:"cache_file"`
	StorageCacheFile string         `mapstructure:"storage_cache_file"`
	Sources          []SourceConfig `mapstructure:"sources"`
	// StaticFiles are artifact files served on every start and never cached.
	StaticFiles []string `mapstructure:"static_files"`
}

// SourceConfig declares one importer for the serving process.
type SourceConfig struct {
	Kind   string `mapstructure:"kind"`
	Path   string `mapstructure:"path"`
	Prefix string `mapstructure:"prefix"`
}

// PublishConfig holds Pub/Sub settings for artifact notifications.
type PublishConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	Configure(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

// Configure installs defaults and environment bindings on v.
func Configure(v *viper.Viper) {
	v.SetEnvPrefix("ICONSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	bindLegacyEnv(v)
}

// FromViper unmarshals and validates the configuration held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Server.Sources) == 0 {
		cfg.Server.Sources = []SourceConfig{{Kind: SourceDirectory, Path: cfg.Paths.OutputDir}}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv exports the variables in path into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat dotenv: %w", err)
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.provider", ProviderS3)
	v.SetDefault("storage.bucket", "lgtd-icons")
	v.SetDefault("storage.region", "fr-par")
	v.SetDefault("storage.endpoint", "https://s3.fr-par.scw.cloud")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.use_path_style", true)
	v.SetDefault("storage.call_timeout_seconds", 30)
	v.SetDefault("storage.page_size", 1000)
	v.SetDefault("download.concurrency", 20)
	v.SetDefault("download.max_attempts", minAttempts)
	v.SetDefault("download.icon_suffix", ".svg")
	v.SetDefault("download.backoff_initial_ms", 200)
	v.SetDefault("download.backoff_max_ms", 2000)
	v.SetDefault("paths.temp_dir", "./temp")
	v.SetDefault("paths.output_dir", "./icons")
	v.SetDefault("export.author_name", "Logitud")
	v.SetDefault("export.author_url", "https://logitud.fr")
	v.SetDefault("export.license_title", "MIT")
	v.SetDefault("export.license_spdx", "MIT")
	v.SetDefault("export.license_url", "https://github.com/logitud/lgtd-icons/blob/main/LICENSE.md")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.cache_file", "iconify.cache.json")
	v.SetDefault("server.storage_cache_file", "cache/storage.db")
	v.SetDefault("publish.project_id", "")
	v.SetDefault("publish.topic", "")
	v.SetDefault("logging.development", true)
}

// bindLegacyEnv keeps the S3_* variable names used by existing deployments.
func bindLegacyEnv(v *viper.Viper) {
	bindings := map[string]string{
		"storage.bucket":            "S3_BUCKET_NAME",
		"storage.region":            "S3_REGION",
		"storage.endpoint":          "S3_ENDPOINT",
		"storage.access_key_id":     "S3_ACCESS_KEY_ID",
		"storage.secret_access_key": "S3_SECRET_ACCESS_KEY",
	}
	for key, legacy := range bindings {
		envKey := "ICONSYNC_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, envKey, legacy)
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Storage.Provider {
	case ProviderS3, ProviderGCS, ProviderMemory:
	default:
		return fmt.Errorf("storage.provider %q is not supported", c.Storage.Provider)
	}
	if c.Storage.Provider != ProviderMemory && strings.TrimSpace(c.Storage.Bucket) == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if c.Storage.CallTimeoutSeconds <= 0 {
		return fmt.Errorf("storage.call_timeout_seconds must be > 0")
	}
	if c.Download.Concurrency <= 0 {
		return fmt.Errorf("download.concurrency must be > 0")
	}
	if c.Download.MaxAttempts < minAttempts {
		return fmt.Errorf("download.max_attempts must be >= %d", minAttempts)
	}
	if strings.TrimSpace(c.Download.IconSuffix) == "" {
		return fmt.Errorf("download.icon_suffix is required")
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" || strings.TrimSpace(c.Paths.OutputDir) == "" {
		return fmt.Errorf("paths.temp_dir and paths.output_dir are required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	for i, src := range c.Server.Sources {
		switch src.Kind {
		case SourceDirectory, SourceBucket:
		default:
			return fmt.Errorf("server.sources[%d].kind %q is not supported", i, src.Kind)
		}
	}
	return nil
}

// HasCredentials reports whether the selected provider has what it needs to
// authenticate. GCS relies on application default credentials.
func (s StorageConfig) HasCredentials() bool {
	if s.Provider != ProviderS3 {
		return true
	}
	return s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// CallTimeout bounds a single storage network call.
func (s StorageConfig) CallTimeout() time.Duration {
	return time.Duration(s.CallTimeoutSeconds) * time.Second
}

// BackoffInitial converts the configured initial backoff to a duration.
func (d DownloadConfig) BackoffInitial() time.Duration {
	return time.Duration(d.BackoffInitialMs) * time.Millisecond
}

// BackoffMax converts the configured backoff ceiling to a duration.
func (d DownloadConfig) BackoffMax() time.Duration {
	return time.Duration(d.BackoffMaxMs) * time.Millisecond
}
