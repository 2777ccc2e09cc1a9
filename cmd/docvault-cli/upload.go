package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/docvault/client"
)

var (
	uploadName        string
	uploadContentType string
	uploadIfMatch     string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-file> [local-file...]",
	Short: "Upload documents to the server",
	Long: `Upload one or more local files. Each document is named after the base
name of its file unless --name is given (single file only).

Examples:
  docvault-cli upload ./report.docx
  docvault-cli upload ./draft.docx --name report.docx --if-match 3f2a...
  docvault-cli upload ./out/*.docx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadName, "name", "n", "", "document name (single file only)")
	uploadCmd.Flags().StringVarP(&uploadContentType, "content-type", "t", "", "override content-type")
	uploadCmd.Flags().StringVar(&uploadIfMatch, "if-match", "", "only replace the document if its current ETag matches")
}

func runUpload(cmd *cobra.Command, args []string) error {
	if uploadName != "" && len(args) > 1 {
		return fail(errors.New("--name can only be used with a single file"))
	}

	c, err := getClient()
	if err != nil {
		return fail(err)
	}

	results := make([]client.UploadResult, 0, len(args))
	var failed int
	for _, localPath := range args {
		result, err := c.Upload(cmd.Context(), client.UploadOptions{
			LocalPath:   localPath,
			Name:        uploadName,
			ContentType: uploadContentType,
			IfMatch:     uploadIfMatch,
		})
		if err != nil {
			result = client.UploadResult{LocalPath: localPath, Err: err}
			failed++
		}
		results = append(results, result)
	}

	if err := getFormatter().FormatUpload(os.Stdout, results); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(args))
	}
	return nil
}
