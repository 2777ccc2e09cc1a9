package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/docvault/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "docvault",
	Short:   "Document storage for generated .docx files",
	Long: `Docvault stores generated documents on a local directory, a mounted
disk or an S3 bucket and serves them back over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Env, cfg.Log.Level)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSlice("config", nil, "config file path, repeatable; later files override earlier ones (default: ./config.yaml)")
	flags.String("storage", "", "storage kind: local, disk, s3 (env: DOCVAULT_STORAGE_KIND, STORAGE_TYPE)")
	flags.String("documents-dir", "", "directory of the local backend (env: DOCUMENTS_DIR)")
	flags.String("disk-path", "", "directory of the disk backend (env: DISK_PATH)")
	flags.String("bucket", "", "bucket of the s3 backend (env: S3_BUCKET_NAME)")
	flags.String("catalog", "", "catalog type: none, sqlite, postgres (env: DOCVAULT_CATALOG_TYPE)")
	flags.String("catalog-dsn", "", "catalog connection string (env: DOCVAULT_CATALOG_DSN)")
	flags.String("base-url", "", "public base URL of document links (env: BASE_URL)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
