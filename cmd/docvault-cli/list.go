package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/docvault/client"
)

var (
	listPrefix string
	listLimit  int
	listCursor string
	listAll    bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List documents",
	Long: `List documents, one page at a time or all of them with --all.

Examples:
  docvault-cli list
  docvault-cli list --prefix invoice- --limit 50
  docvault-cli list --all --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listPrefix, "prefix", "", "only list names starting with prefix")
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 100, "page size (1-1000)")
	listCmd.Flags().StringVar(&listCursor, "cursor", "", "resume after a previous page")
	listCmd.Flags().BoolVar(&listAll, "all", false, "fetch every page")
}

func runList(cmd *cobra.Command, _ []string) error {
	c, err := getClient()
	if err != nil {
		return fail(err)
	}

	result, err := c.List(cmd.Context(), client.ListOptions{
		Prefix: listPrefix,
		Limit:  listLimit,
		Cursor: listCursor,
		All:    listAll,
	})
	if err != nil {
		return fail(err)
	}

	return getFormatter().FormatList(os.Stdout, result)
}
