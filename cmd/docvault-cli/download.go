package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/docvault/client"
)

var downloadCmd = &cobra.Command{
	Use:   "download <name> [local-file]",
	Short: "Download a document",
	Long: `Download a document. The local path defaults to the document name in the
working directory; use "-" to write to stdout.

Examples:
  docvault-cli download report.docx
  docvault-cli download report.docx ./out/q3.docx
  docvault-cli download report.docx - > q3.docx`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	opts := client.DownloadOptions{Name: args[0]}
	if len(args) == 2 {
		opts.LocalPath = args[1]
	}

	c, err := getClient()
	if err != nil {
		return fail(err)
	}

	result, body, err := c.Download(cmd.Context(), opts)
	if err != nil {
		return fail(err)
	}

	if body != nil {
		defer func() { _ = body.Close() }()
		written, err := io.Copy(os.Stdout, body)
		if err != nil {
			return fail(err)
		}
		result.Size = written
		// stdout carries the content; the summary goes to stderr
		return getFormatter().FormatDownload(os.Stderr, result)
	}

	return getFormatter().FormatDownload(os.Stdout, result)
}
