package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/config"
)

// isolate runs the test in an empty directory with every alias variable unset,
// so neither a stray config.yaml/.env nor the host environment leaks in.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())

	for _, name := range []string{
		"STORAGE_TYPE", "BASE_URL", "RENDER_EXTERNAL_URL", "PORT", "HOST",
		"S3_BUCKET_NAME", "S3_REGION", "AWS_REGION", "AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN", "AWS_ENDPOINT_URL",
		"DISK_PATH", "DOCUMENTS_DIR", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, "http://localhost:8000", cfg.Server.BaseURL)
	assert.Equal(t, 15*time.Minute, cfg.Server.PresignExpiry)
	assert.Equal(t, "local", cfg.Storage.Kind)
	assert.Equal(t, "./documents", cfg.Storage.Local.Path)
	assert.Equal(t, "/mnt/disk/documents", cfg.Storage.Disk.Path)
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region)
	assert.Equal(t, "aws", cfg.Storage.S3.Client)
	assert.Equal(t, 30*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, 3, cfg.Storage.Retry.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Storage.Retry.InitialInterval)
	assert.Equal(t, 5*time.Second, cfg.Storage.Retry.MaxInterval)
	assert.Equal(t, "none", cfg.Catalog.Type)
	assert.False(t, cfg.Catalog.Enabled())
	assert.Equal(t, "docvault_documents", cfg.Catalog.Tables.Documents)
	assert.Equal(t, "last_writer_wins", cfg.Edit.ConflictPolicy)
	assert.Equal(t, "public", cfg.Auth.Read)
	assert.Equal(t, "public", cfg.Auth.Write)
	assert.Equal(t, "us-east-1", cfg.Auth.AWS.Region)
	assert.Equal(t, "s3", cfg.Auth.AWS.Service)
	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "docvault", cfg.Telemetry.ServiceName)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)

	path := writeConfig(t, `
env: prod
server:
  port: 8080
  base_url: https://docs.example.com/
  max_upload_size: 1048576
storage:
  kind: s3
  timeout: 10s
  retry:
    max_attempts: 5
  s3:
    bucket: my-docs
    region: eu-west-1
    endpoint: http://localhost:4566
    prefix: documents/
catalog:
  type: postgres
  dsn: postgres://localhost/docvault
  tables:
    documents: custom_documents
edit:
  conflict_policy: optimistic
auth:
  read: private
  write: private
  aws:
    region: eu-west-1
    service: custom
log:
  level: debug
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(1048576), cfg.Server.MaxUploadSize)
	assert.Equal(t, "s3", cfg.Storage.Kind)
	assert.Equal(t, 10*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, 5, cfg.Storage.Retry.MaxAttempts)
	assert.Equal(t, "my-docs", cfg.Storage.S3.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Storage.S3.Region)
	assert.Equal(t, "http://localhost:4566", cfg.Storage.S3.Endpoint)
	assert.Equal(t, "documents/", cfg.Storage.S3.Prefix)
	assert.Equal(t, "postgres", cfg.Catalog.Type)
	assert.Equal(t, "custom_documents", cfg.Catalog.Tables.Documents)
	assert.Equal(t, "optimistic", cfg.Edit.ConflictPolicy)
	assert.Equal(t, "private", cfg.Auth.Read)
	assert.Equal(t, "custom", cfg.Auth.AWS.Service)
	assert.Equal(t, "debug", cfg.Log.Level)

	b := cfg.Backend()
	assert.Equal(t, docvault.KindS3, b.Kind)
	assert.Equal(t, "my-docs", b.S3.Bucket)

	svc := cfg.Service()
	assert.Equal(t, "https://docs.example.com/", svc.BaseURL)
	assert.Equal(t, 10*time.Second, svc.Timeout)

	assert.Equal(t, docvault.Optimistic, cfg.Workspace().Policy)
}

func TestLoad_ConfigFileMerge(t *testing.T) {
	isolate(t)

	base := writeConfig(t, `
server:
  port: 8000
storage:
  kind: disk
  disk:
    path: /data/documents
auth:
  read: public
  write: public
`)
	override := writeConfig(t, `
server:
  port: 9000
auth:
  write: private
`)

	cfg, err := config.Load([]string{base, override}, nil)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "private", cfg.Auth.Write)
	assert.Equal(t, "disk", cfg.Storage.Kind)
	assert.Equal(t, "/data/documents", cfg.Storage.Disk.Path)
	assert.Equal(t, "public", cfg.Auth.Read)
}

func TestLoad_KindAliases(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"ephemeral-local", "local"},
		{"persistent-mounted", "disk"},
		{"DISK", "disk"},
		{"local", "local"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			isolate(t)
			t.Setenv("STORAGE_TYPE", tt.value)

			cfg, err := config.Load(nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Storage.Kind)
		})
	}
}

func TestLoad_DeploymentEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("STORAGE_TYPE", "s3")
	t.Setenv("S3_BUCKET_NAME", "prod-docs")
	t.Setenv("AWS_REGION", "ap-south-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("RENDER_EXTERNAL_URL", "https://docvault.onrender.com")
	t.Setenv("PORT", "10000")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "s3", cfg.Storage.Kind)
	assert.Equal(t, "prod-docs", cfg.Storage.S3.Bucket)
	assert.Equal(t, "ap-south-1", cfg.Storage.S3.Region)
	assert.Equal(t, "AKIAEXAMPLE", cfg.Storage.S3.AccessKeyID)
	assert.Equal(t, "secret", cfg.Storage.S3.SecretAccessKey)
	assert.Equal(t, "https://docvault.onrender.com", cfg.Server.BaseURL)
	assert.Equal(t, 10000, cfg.Server.Port)
}

func TestLoad_EnvPrecedence(t *testing.T) {
	isolate(t)
	t.Setenv("BASE_URL", "https://from-base-url.example.com")
	t.Setenv("RENDER_EXTERNAL_URL", "https://from-render.example.com")
	t.Setenv("DOCVAULT_SERVER_BASE_URL", "https://from-docvault.example.com")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://from-docvault.example.com", cfg.Server.BaseURL)

	t.Setenv("DOCVAULT_SERVER_BASE_URL", "")
	cfg, err = config.Load(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://from-base-url.example.com", cfg.Server.BaseURL)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	isolate(t)
	t.Setenv("DOCVAULT_SERVER_PORT", "9090")
	t.Setenv("DOCVAULT_CATALOG_TYPE", "sqlite")
	t.Setenv("DOCVAULT_AUTH_READ", "private")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Catalog.Type)
	assert.Equal(t, "docvault.db", cfg.Catalog.DSN)
	assert.Equal(t, "private", cfg.Auth.Read)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("DOCUMENTS_DIR=./from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DOCUMENTS_DIR") })

	// godotenv leaves variables that are already set alone
	require.NoError(t, os.Unsetenv("DOCUMENTS_DIR"))

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "./from-dotenv", cfg.Storage.Local.Path)
}

func TestLoad_Flags(t *testing.T) {
	isolate(t)
	t.Setenv("DOCVAULT_SERVER_PORT", "9090")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 8000, "")
	flags.String("storage", "local", "")
	flags.String("disk-path", "", "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--port=7000", "--storage=disk", "--disk-path=/srv/docs"}))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "disk", cfg.Storage.Kind)
	assert.Equal(t, "/srv/docs", cfg.Storage.Disk.Path)
	// unchanged flags do not override defaults
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid port", "server:\n  port: 99999\n"},
		{"invalid auth mode", "auth:\n  read: invalid\n"},
		{"invalid log level", "log:\n  level: verbose\n"},
		{"invalid env", "env: staging\n"},
		{"unknown kind", "storage:\n  kind: tape\n"},
		{"s3 without bucket", "storage:\n  kind: s3\n"},
		{"minio without endpoint", "storage:\n  kind: s3\n  s3:\n    client: minio\n    bucket: docs\n"},
		{"unknown s3 client", "storage:\n  kind: s3\n  s3:\n    client: gcs\n    bucket: docs\n"},
		{"relative base url", "server:\n  base_url: /documents\n"},
		{"ftp base url", "server:\n  base_url: ftp://example.com\n"},
		{"bad conflict policy", "edit:\n  conflict_policy: merge\n"},
		{"bad catalog type", "catalog:\n  type: mongodb\n"},
		{"bad catalog table", "catalog:\n  type: sqlite\n  tables:\n    documents: Bad-Name\n"},
		{"empty local path", "storage:\n  local:\n    path: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)

			_, err := config.Load([]string{writeConfig(t, tt.content)}, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, docvault.ErrConfiguration)
			assert.Contains(t, err.Error(), "validate config")
		})
	}
}

func TestLoad_ConfigFileErrors(t *testing.T) {
	t.Run("malformed file", func(t *testing.T) {
		isolate(t)

		path := writeConfig(t, "storage:\n  kind: s3\n  s3:\n    bucket: [unterminated\n")
		cfg, err := config.Load([]string{path}, nil)
		require.ErrorIs(t, err, docvault.ErrConfiguration)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), path)
	})

	t.Run("missing file", func(t *testing.T) {
		isolate(t)

		path := filepath.Join(t.TempDir(), "prod.yaml")
		cfg, err := config.Load([]string{path}, nil)
		require.ErrorIs(t, err, docvault.ErrConfiguration)
		assert.Nil(t, cfg)
	})

	t.Run("missing override file", func(t *testing.T) {
		isolate(t)

		base := writeConfig(t, "storage:\n  kind: disk\n")
		_, err := config.Load([]string{base, filepath.Join(t.TempDir(), "override.yaml")}, nil)
		assert.ErrorIs(t, err, docvault.ErrConfiguration)
	})

	t.Run("malformed implicit config.yaml", func(t *testing.T) {
		isolate(t)

		require.NoError(t, os.WriteFile("config.yaml", []byte("server: [unterminated\n"), 0o600))
		_, err := config.Load(nil, nil)
		assert.ErrorIs(t, err, docvault.ErrConfiguration)
	})

	t.Run("absent implicit config.yaml uses defaults", func(t *testing.T) {
		isolate(t)

		cfg, err := config.Load(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "local", cfg.Storage.Kind)
	})
}

func TestLoad_WithInlineKeys(t *testing.T) {
	isolate(t)

	path := writeConfig(t, `
auth:
  read: private
  write: private
  keys:
    inline:
      - access_key: AKIATEST123
        secret_key: secretkey123
      - access_key: AKIATEST456
        secret_key: secretkey456
    pairs: AKIAPAIR:pairsecret
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	require.Len(t, cfg.Auth.Keys.Inline, 2)
	assert.Equal(t, "AKIATEST123", cfg.Auth.Keys.Inline[0].AccessKey)
	assert.Equal(t, "secretkey456", cfg.Auth.Keys.Inline[1].SecretKey)
	assert.Equal(t, "AKIAPAIR:pairsecret", cfg.Auth.Keys.Pairs)
}

func TestLoad_WithCORS(t *testing.T) {
	isolate(t)

	path := writeConfig(t, `
cors:
  enabled: true
  allowed_origins:
    - https://example.com
    - https://app.example.com
  allowed_methods:
    - GET
    - PUT
  allowed_headers:
    - Content-Type
  max_age: 600
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"https://example.com", "https://app.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"GET", "PUT"}, cfg.CORS.AllowedMethods)
	assert.Equal(t, []string{"Content-Type"}, cfg.CORS.AllowedHeaders)
	assert.Equal(t, 600, cfg.CORS.MaxAge)
}

func TestContext(t *testing.T) {
	_, err := config.FromContext(context.Background())
	require.Error(t, err)

	cfg := &config.Config{Env: "dev"}
	got, err := config.FromContext(config.WithContext(context.Background(), cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
