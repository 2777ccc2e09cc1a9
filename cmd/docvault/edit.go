package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/config"
)

var editCmd = &cobra.Command{
	Use:   "edit <name> -- <command> [args...]",
	Short: "Edit a document in place through a scratch copy",
	Long: `Copy a document into a private scratch directory, run a command on the
copy and store the result back under the same name. The command receives the
scratch path in $DOCVAULT_FILE and in place of any "{}" argument. Nothing is
stored when the command fails.

Examples:
  docvault edit report.docx -- docx-fill --data q3.json {}
  docvault edit --create memo.docx -- sh -c 'stamp-footer "$DOCVAULT_FILE"'`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEdit,
}

var editCreate bool

func init() {
	editCmd.Flags().BoolVar(&editCreate, "create", false, "start a missing document from the template")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	name, command := args[0], args[1:]

	return withService(cmd.Context(), func(cfg *config.Config, service *docvault.Service) error {
		ws, err := docvault.NewWorkspace(service, cfg.Workspace())
		if err != nil {
			return err
		}

		doc, err := ws.Edit(cmd.Context(), name, docvault.EditOptions{CreateIfMissing: editCreate},
			func(ctx context.Context, path string) error {
				argv := make([]string, len(command))
				for i, a := range command {
					if a == "{}" {
						a = path
					}
					argv[i] = a
				}

				c := exec.CommandContext(ctx, argv[0], argv[1:]...) //#nosec G204 -- the command is the operator's own
				c.Env = append(os.Environ(), "DOCVAULT_FILE="+path)
				c.Stdout = cmd.OutOrStdout()
				c.Stderr = cmd.ErrOrStderr()
				if err := c.Run(); err != nil {
					return fmt.Errorf("run %s: %w", argv[0], err)
				}
				return nil
			})
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), doc.URL)
		return nil
	})
}
