package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/docvault/client"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <name> [name...]",
	Aliases: []string{"rm"},
	Short:   "Delete documents",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return fail(err)
	}

	results, err := c.Delete(cmd.Context(), client.DeleteOptions{Names: args})
	if err != nil {
		return fail(err)
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	if client.HasDeleteErrors(results) {
		return errors.New("some deletes failed")
	}
	return nil
}
