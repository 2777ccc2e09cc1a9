package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/config"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage the document template",
	Long: `Manage the single .docx template new documents start from.

The template is stored next to the documents under a reserved name and
never shows up in listings.`,
}

var templateSetCmd = &cobra.Command{
	Use:   "set <local-file>",
	Short: "Upload a .docx file as the template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0]) //#nosec G304 -- path is user-provided input
		if err != nil {
			return fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = file.Close() }()

		return withService(cmd.Context(), func(_ *config.Config, service *docvault.Service) error {
			info, err := service.SetTemplate(cmd.Context(), file)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Template stored (%d bytes)\n", info.Size)
			return nil
		})
	},
}

var templateInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show whether a template is stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(_ *config.Config, service *docvault.Service) error {
			info, err := service.TemplateInfo(cmd.Context())
			if err != nil {
				return err
			}
			if !info.Exists {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No template configured")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Template: %d bytes, modified %s\n",
				info.Size, info.LastModified.Format("2006-01-02 15:04:05"))
			return nil
		})
	},
}

var templateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(_ *config.Config, service *docvault.Service) error {
			if err := service.ClearTemplate(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Template removed")
			return nil
		})
	},
}

func init() {
	templateCmd.AddCommand(templateSetCmd, templateInfoCmd, templateClearCmd)
	rootCmd.AddCommand(templateCmd)
}
