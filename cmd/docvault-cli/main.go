package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/docvault/client"
)

var (
	version = "dev"

	cfgFile    string
	profile    string
	endpoint   string
	accessKey  string
	secretKey  string
	region     string
	jsonOutput bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:          "docvault-cli",
	Version:      version,
	Short:        "Client for docvault servers",
	SilenceUsage: true,
	Long: `docvault-cli talks to a docvault server over HTTP.

Connection settings come from, in increasing precedence: the profile file
(~/.docvault/config.yaml), DOCVAULT_* environment variables and flags.
Requests are presigned with AWS Signature V4 when an access key pair is set.`,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "profile file (default: ~/.docvault/config.yaml, env: DOCVAULT_CLIENT_CONFIG)")
	flags.StringVarP(&profile, "profile", "p", "", "profile name (default: the default profile, env: DOCVAULT_PROFILE)")
	flags.StringVarP(&endpoint, "endpoint", "e", "", "server URL (default: http://localhost:8000, env: DOCVAULT_ENDPOINT)")
	flags.StringVarP(&accessKey, "access-key", "a", "", "access key (env: DOCVAULT_ACCESS_KEY)")
	flags.StringVarP(&secretKey, "secret-key", "k", "", "secret key (env: DOCVAULT_SECRET_KEY)")
	flags.StringVar(&region, "region", "", "signing region (default: us-east-1, env: DOCVAULT_REGION)")
	flags.BoolVar(&jsonOutput, "json", false, "output as JSON")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(uploadCmd, downloadCmd, deleteCmd, listCmd, statCmd, urlCmd, templateCmd, healthCmd, configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// getConfigPath returns the profile file path from the flag, the environment or the default.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := client.ConfigPathFromEnv(); p != "" {
		return p
	}
	return client.DefaultConfigPath()
}

// buildConfig merges config from the profile file, env vars and flags (flags take precedence).
func buildConfig() (*client.Config, error) {
	var configs []*client.Config

	name := profile
	if name == "" {
		name = client.ProfileFromEnv()
	}

	file, err := client.LoadConfigFile(getConfigPath())
	switch {
	case err == nil:
		p, profileErr := file.GetProfile(name)
		if profileErr != nil && (name != "" || !errors.Is(profileErr, client.ErrNoProfiles)) {
			return nil, profileErr
		}
		configs = append(configs, client.ConfigFromProfile(p))
	case name != "" || cfgFile != "":
		// a missing default file is fine; an explicit one is not
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	configs = append(configs,
		client.ConfigFromEnv(),
		&client.Config{Endpoint: endpoint, AccessKey: accessKey, SecretKey: secretKey, Region: region},
	)

	return client.MergeConfig(configs...), nil
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() client.Formatter {
	return client.NewFormatter(jsonOutput, quiet)
}

// getClient creates and returns a configured client.
func getClient() (*client.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	return client.New(cfg)
}

// fail prints err with the active formatter and returns it.
func fail(err error) error {
	_ = getFormatter().FormatError(os.Stderr, err)
	return err
}
