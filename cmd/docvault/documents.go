package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/config"
)

var putCmd = &cobra.Command{
	Use:   "put <local-file> [name]",
	Short: "Store a local file in the configured backend",
	Long: `Store a local file as a document. The document name defaults to the
base name of the file. Use "-" to read the content from stdin; a name is
required then.

Examples:
  docvault put ./report.docx
  docvault put ./draft.docx report.docx
  generate-report | docvault put - report.docx`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPut,
}

var getCmd = &cobra.Command{
	Use:   "get <name> [local-file]",
	Short: "Fetch a document from the configured backend",
	Long: `Fetch a document. The local path defaults to the document name in the
working directory; "-" writes to stdout.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

var rmCmd = &cobra.Command{
	Use:   "rm <name> [name...]",
	Short: "Delete documents from the configured backend",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRm,
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runLs,
}

var urlCmd = &cobra.Command{
	Use:   "url <name>",
	Short: "Print the retrieval URL of a document",
	Long: `Print the public retrieval URL of a document. With --presign, an s3
backend returns a time-limited direct link to the bucket instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runURL,
}

var (
	putContentType string
	putIfMatch     string
	lsPrefix       string
	lsJSON         bool
	urlPresign     bool
)

func init() {
	putCmd.Flags().StringVar(&putContentType, "content-type", "", "content type (default: derived from the name)")
	putCmd.Flags().StringVar(&putIfMatch, "if-match", "", "only replace the document if its current ETag matches")
	lsCmd.Flags().StringVar(&lsPrefix, "prefix", "", "only list names starting with prefix")
	lsCmd.Flags().BoolVar(&lsJSON, "json", false, "print JSON instead of a table")
	urlCmd.Flags().BoolVar(&urlPresign, "presign", false, "print a time-limited direct link when the backend supports it")

	rootCmd.AddCommand(putCmd, getCmd, rmCmd, lsCmd, urlCmd)
}

func runPut(cmd *cobra.Command, args []string) error {
	source := args[0]
	name := filepath.Base(source)
	if len(args) == 2 {
		name = args[1]
	} else if source == "-" {
		return fmt.Errorf("put: a document name is required when reading stdin: %w", docvault.ErrInvalidInput)
	}

	var content io.Reader = cmd.InOrStdin()
	if source != "-" {
		file, err := os.Open(source) //#nosec G304 -- source is user-provided input
		if err != nil {
			return fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = file.Close() }()
		content = file
	}

	return withService(cmd.Context(), func(_ *config.Config, service *docvault.Service) error {
		doc, err := service.Put(cmd.Context(), name, content, docvault.PutOptions{
			ContentType: putContentType,
			IfMatch:     putIfMatch,
		})
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), doc.URL)
		return nil
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	name := args[0]
	target := name
	if len(args) == 2 {
		target = args[1]
	}

	return withService(cmd.Context(), func(_ *config.Config, service *docvault.Service) error {
		rc, _, err := service.Get(cmd.Context(), name)
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()

		if target == "-" {
			_, err = io.Copy(cmd.OutOrStdout(), rc)
			return err
		}

		file, err := os.Create(target) //#nosec G304 -- target is user-provided input
		if err != nil {
			return fmt.Errorf("create file: %w", err)
		}
		if _, err := io.Copy(file, rc); err != nil {
			_ = file.Close()
			return fmt.Errorf("write file: %w", err)
		}
		return file.Close()
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	return withService(cmd.Context(), func(_ *config.Config, service *docvault.Service) error {
		var failed int
		for _, name := range args {
			if err := service.Delete(cmd.Context(), name); err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s - %v\n", name, err)
				failed++
				continue
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", name)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d deletes failed", failed, len(args))
		}
		return nil
	})
}

func runLs(cmd *cobra.Command, args []string) error {
	return withService(cmd.Context(), func(_ *config.Config, service *docvault.Service) error {
		var items []docvault.Info
		cursor := ""
		for {
			page, err := service.ListPage(cmd.Context(), docvault.ListQuery{Prefix: lsPrefix, Limit: 1000, Cursor: cursor})
			if err != nil {
				return err
			}
			items = append(items, page.Items...)
			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}

		out := cmd.OutOrStdout()
		if lsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tETAG")
		for _, item := range items {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", item.Name, item.Size, item.LastModified.Format("2006-01-02 15:04:05"), item.ETag)
		}
		return tw.Flush()
	})
}

func runURL(cmd *cobra.Command, args []string) error {
	name := args[0]
	if !docvault.IsValidName(name) {
		return fmt.Errorf("url: invalid name %q: %w", name, docvault.ErrInvalidInput)
	}

	return withService(cmd.Context(), func(cfg *config.Config, service *docvault.Service) error {
		link := service.URL(name)
		if urlPresign {
			var err error
			link, err = service.DownloadURL(cmd.Context(), name, cfg.Server.PresignExpiry)
			if err != nil {
				return err
			}
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	})
}
