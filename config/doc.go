// Package config provides configuration loading and validation for docvault.
//
// The package handles YAML configuration files, .env files, environment
// variables and CLI flags with automatic merging and validation using
// go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (DOCVAULT_ prefix, plus deployment aliases)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with the DOCVAULT_ prefix:
//   - server.port → DOCVAULT_SERVER_PORT
//   - storage.kind → DOCVAULT_STORAGE_KIND
//   - catalog.type → DOCVAULT_CATALOG_TYPE
//
// Hosted deployments can keep their existing variables instead:
//   - STORAGE_TYPE selects local, disk or s3 (ephemeral-local,
//     persistent-mounted and remote-object-store are accepted too)
//   - BASE_URL, then RENDER_EXTERNAL_URL, set the public base URL
//   - S3_BUCKET_NAME, S3_REGION/AWS_REGION, AWS_ACCESS_KEY_ID,
//     AWS_SECRET_ACCESS_KEY and AWS_ENDPOINT_URL configure the bucket
//   - DISK_PATH and DOCUMENTS_DIR set the filesystem directories
//   - PORT and HOST set the listen address
//
// A DOCVAULT_ variable wins over its alias when both are set.
//
// # Validation
//
// Struct tags cover single fields (port range, enum values, URLs).
// Config.Validate covers the rest: the selected storage kind must have its
// parameters, the base URL must be absolute http(s) and an enabled catalog
// needs a DSN and a valid table name. Every error wraps
// docvault.ErrConfiguration and the process refuses to start.
package config
