package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/docvault/client"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage the server's document template",
}

var templateSetCmd = &cobra.Command{
	Use:   "set <local-file>",
	Short: "Upload a .docx file as the template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getClient()
		if err != nil {
			return fail(err)
		}

		info, err := c.SetTemplate(cmd.Context(), args[0])
		if err != nil {
			return fail(err)
		}
		return getFormatter().FormatTemplate(os.Stdout, info)
	},
}

var templateInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show whether a template is stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := getClient()
		if err != nil {
			return fail(err)
		}

		info, err := c.TemplateInfo(cmd.Context())
		if err != nil {
			return fail(err)
		}
		return getFormatter().FormatTemplate(os.Stdout, info)
	},
}

var templateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := getClient()
		if err != nil {
			return fail(err)
		}

		if err := c.ClearTemplate(cmd.Context()); err != nil {
			return fail(err)
		}
		return getFormatter().FormatTemplate(os.Stdout, client.TemplateInfo{})
	},
}

func init() {
	templateCmd.AddCommand(templateSetCmd, templateInfoCmd, templateClearCmd)
}
