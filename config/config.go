package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/backend"
	"github.com/sagarc03/docvault/catalog"
	docvaulthttp "github.com/sagarc03/docvault/http"
	"github.com/sagarc03/docvault/keybackend"
	"github.com/sagarc03/docvault/s3"
	"github.com/sagarc03/docvault/telemetry"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for docvault.
type Config struct {
	// Env selects log formatting: "dev" is human readable, "prod" is JSON.
	Env       string                  `mapstructure:"env" validate:"required,oneof=dev prod"`
	Server    ServerConfig            `mapstructure:"server"`
	Storage   StorageConfig           `mapstructure:"storage"`
	Catalog   catalog.Config          `mapstructure:"catalog"`
	Edit      EditConfig              `mapstructure:"edit"`
	Auth      AuthConfig              `mapstructure:"auth"`
	CORS      docvaulthttp.CORSConfig `mapstructure:"cors"`
	Log       LogConfig               `mapstructure:"log"`
	Telemetry telemetry.Config        `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	// BaseURL is the public address clients use to reach the server.
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	MaxUploadSize int64         `mapstructure:"max_upload_size" validate:"min=0"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects and tunes the storage backend.
type StorageConfig struct {
	Kind    string               `mapstructure:"kind" validate:"required"`
	Timeout time.Duration        `mapstructure:"timeout" validate:"min=0"`
	Retry   docvault.RetryConfig `mapstructure:"retry"`
	Local   PathConfig           `mapstructure:"local"`
	Disk    PathConfig           `mapstructure:"disk"`
	S3      S3Config             `mapstructure:"s3"`
}

// PathConfig holds the directory of a filesystem backend.
type PathConfig struct {
	Path string `mapstructure:"path"`
}

// S3Config holds the object store settings.
type S3Config struct {
	// Client picks the driver: "aws" (default) or "minio".
	Client    string `mapstructure:"client" validate:"omitempty,oneof=aws minio"`
	s3.Config `mapstructure:",squash"`
}

// EditConfig tunes the scratch-copy edit workflow.
type EditConfig struct {
	ScratchDir     string `mapstructure:"scratch_dir"`
	ConflictPolicy string `mapstructure:"conflict_policy" validate:"required,oneof=last_writer_wins optimistic"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Read  string                `mapstructure:"read" validate:"required,oneof=public private"`
	Write string                `mapstructure:"write" validate:"required,oneof=public private"`
	AWS   docvault.AuthConfig   `mapstructure:"aws"`
	Keys  keybackend.KeysConfig `mapstructure:"keys"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// Backend returns the parameters for backend.Open.
func (c *Config) Backend() backend.Config {
	return backend.Config{
		Kind:      docvault.Kind(c.Storage.Kind),
		LocalPath: c.Storage.Local.Path,
		DiskPath:  c.Storage.Disk.Path,
		S3Client:  c.Storage.S3.Client,
		S3:        c.Storage.S3.Config,
	}
}

// Service returns the parameters for docvault.NewService.
func (c *Config) Service() docvault.ServiceConfig {
	return docvault.ServiceConfig{
		BaseURL: c.Server.BaseURL,
		Timeout: c.Storage.Timeout,
		Retry:   c.Storage.Retry,
	}
}

// Workspace returns the parameters for docvault.NewWorkspace.
func (c *Config) Workspace() docvault.WorkspaceConfig {
	return docvault.WorkspaceConfig{
		ScratchDir: c.Edit.ScratchDir,
		Policy:     docvault.ConflictPolicy(c.Edit.ConflictPolicy),
	}
}

// Validate checks rules that span several fields and normalizes the storage kind.
func (c *Config) Validate() error {
	kind, err := docvault.ParseKind(c.Storage.Kind)
	if err != nil {
		return err
	}
	c.Storage.Kind = string(kind)

	switch kind {
	case docvault.KindLocal:
		if c.Storage.Local.Path == "" {
			return fmt.Errorf("storage.local.path is required for kind local: %w", docvault.ErrConfiguration)
		}
	case docvault.KindDisk:
		if c.Storage.Disk.Path == "" {
			return fmt.Errorf("storage.disk.path is required for kind disk: %w", docvault.ErrConfiguration)
		}
	case docvault.KindS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for kind s3: %w", docvault.ErrConfiguration)
		}
		if c.Storage.S3.Client == backend.ClientMinio && c.Storage.S3.Endpoint == "" {
			return fmt.Errorf("storage.s3.endpoint is required for the minio client: %w", docvault.ErrConfiguration)
		}
	}

	if _, err := docvault.NewURLBuilder(c.Server.BaseURL); err != nil {
		return err
	}

	if c.Catalog.Enabled() {
		if c.Catalog.DSN == "" {
			return fmt.Errorf("catalog.dsn is required for catalog type %s: %w", c.Catalog.Type, docvault.ErrConfiguration)
		}
		if err := c.Catalog.Tables.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":          "server.port",
	"host":          "server.host",
	"base-url":      "server.base_url",
	"storage":       "storage.kind",
	"documents-dir": "storage.local.path",
	"disk-path":     "storage.disk.path",
	"bucket":        "storage.s3.bucket",
	"catalog":       "catalog.type",
	"catalog-dsn":   "catalog.dsn",
	"log-level":     "log.level",
}

// envAliases binds the variable names of existing deployments next to the
// DOCVAULT_ ones. The first variable that is set wins.
var envAliases = map[string][]string{
	"storage.kind":                 {"STORAGE_TYPE"},
	"server.base_url":              {"BASE_URL", "RENDER_EXTERNAL_URL"},
	"server.port":                  {"PORT"},
	"server.host":                  {"HOST"},
	"storage.s3.bucket":            {"S3_BUCKET_NAME"},
	"storage.s3.region":            {"S3_REGION", "AWS_REGION"},
	"storage.s3.access_key_id":     {"AWS_ACCESS_KEY_ID"},
	"storage.s3.secret_access_key": {"AWS_SECRET_ACCESS_KEY"},
	"storage.s3.session_token":     {"AWS_SESSION_TOKEN"},
	"storage.s3.endpoint":          {"AWS_ENDPOINT_URL"},
	"storage.disk.path":            {"DISK_PATH"},
	"storage.local.path":           {"DOCUMENTS_DIR"},
	"telemetry.endpoint":           {"OTEL_EXPORTER_OTLP_ENDPOINT"},
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

func bindEnv(v *viper.Viper, replacer *strings.Replacer) {
	for key, aliases := range envAliases {
		names := append([]string{"DOCVAULT_" + strings.ToUpper(replacer.Replace(key))}, aliases...)
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.base_url", "http://localhost:8000")
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit
	v.SetDefault("server.presign_expiry", 15*time.Minute)

	v.SetDefault("storage.kind", string(docvault.KindLocal))
	v.SetDefault("storage.timeout", 30*time.Second)
	v.SetDefault("storage.retry.max_attempts", 3)
	v.SetDefault("storage.retry.initial_interval", 200*time.Millisecond)
	v.SetDefault("storage.retry.max_interval", 5*time.Second)
	v.SetDefault("storage.local.path", "./documents")
	v.SetDefault("storage.disk.path", "/mnt/disk/documents")
	v.SetDefault("storage.s3.client", backend.ClientAWS)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", s3.DefaultRegion)
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.session_token", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("storage.s3.prefix", "")

	v.SetDefault("catalog.type", catalog.TypeNone)
	v.SetDefault("catalog.dsn", "docvault.db")
	v.SetDefault("catalog.tables.documents", "docvault_documents")

	v.SetDefault("edit.scratch_dir", "")
	v.SetDefault("edit.conflict_policy", string(docvault.LastWriterWins))

	v.SetDefault("auth.read", "public")
	v.SetDefault("auth.write", "public")
	v.SetDefault("auth.aws.region", "us-east-1")
	v.SetDefault("auth.aws.service", "s3")
	v.SetDefault("auth.keys.pairs", "")
	v.SetDefault("auth.keys.file", "")

	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "HEAD", "PUT", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"*"})
	v.SetDefault("cors.exposed_headers", []string{"ETag", "Content-Disposition"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("log.level", "info")

	v.SetDefault("telemetry.service_name", "docvault")
	v.SetDefault("telemetry.endpoint", "")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// A .env file in the working directory is loaded first; variables already
// set in the environment are never overridden by it.
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
//
// Every failure wraps docvault.ErrConfiguration.
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error reading .env file", "err", err)
	}

	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files. Named files must exist and parse; only the
	// implicit ./config.yaml may be absent.
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w: %w", configFiles[0], docvault.ErrConfiguration, err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merge config %s: %w: %w", cf, docvault.ErrConfiguration, err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				return nil, fmt.Errorf("read config: %w: %w", docvault.ErrConfiguration, err)
			}
		}
	}

	// 3. Bind environment variables
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvPrefix("DOCVAULT")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()
	bindEnv(v, replacer)

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w: %w", docvault.ErrConfiguration, err)
	}

	// 6. Validate using go-playground/validator, then the cross-field rules
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w: %w", docvault.ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
