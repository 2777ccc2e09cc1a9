package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <name>",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getClient()
		if err != nil {
			return fail(err)
		}

		info, err := c.Stat(cmd.Context(), args[0])
		if err != nil {
			return fail(err)
		}
		return getFormatter().FormatStat(os.Stdout, info)
	},
}

var urlCmd = &cobra.Command{
	Use:   "url <name>",
	Short: "Print a shareable download URL",
	Long: `Print a download URL for a document. With credentials configured the URL
is presigned and works for anyone until it expires.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getClient()
		if err != nil {
			return fail(err)
		}

		link, err := c.PresignGet(cmd.Context(), args[0])
		if err != nil {
			return fail(err)
		}
		_, _ = fmt.Fprintln(os.Stdout, link)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the server and its storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := getClient()
		if err != nil {
			return fail(err)
		}

		h, err := c.Health(cmd.Context())
		if h.Status != "" {
			_ = getFormatter().FormatHealth(os.Stdout, h)
		}
		if err != nil {
			return fail(err)
		}
		return nil
	},
}
