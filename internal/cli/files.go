package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hongminglow/therapy-console/internal/api"
	"github.com/hongminglow/therapy-console/internal/format"
	"github.com/hongminglow/therapy-console/internal/models/dto"
)

func newUploadCmd(a *app) *cobra.Command {
	var (
		chunkMiB int
		resume   string
		note     string
		single   bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file to the file service",
		Long: "Upload a file in checksummed chunks. An interrupted upload prints its id;\n" +
			"run the command again with --resume <id> to continue where it stopped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			name := filepath.Base(args[0])
			out := cmd.OutOrStdout()

			if single {
				entry, err := a.api.Files.Upload(cmd.Context(), name, f, note)
				if err != nil {
					return fmt.Errorf("upload %s: %w", name, err)
				}
				fmt.Fprintf(out, "Uploaded %s as %s (%s)\n", name, entry.PublicName, format.Bytes(entry.Size))
				fmt.Fprintf(out, "Download: %s\n", entry.DownloadURL)
				return nil
			}

			entry, err := a.api.Files.UploadResumable(cmd.Context(), name, f, api.ResumableOptions{
				UploadID:  resume,
				ChunkSize: chunkMiB << 20,
				Note:      note,
				Progress: func(id string, sent int64) {
					a.logger.Debug("chunk acknowledged", "upload_id", id, "received", sent)
				},
			})
			var interrupted *api.ResumeError
			if errors.As(err, &interrupted) {
				fmt.Fprintf(out, "Upload interrupted; continue with --resume %s\n", interrupted.UploadID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Uploaded %s as %s (%s)\n", name, entry.PublicName, format.Bytes(entry.Size))
			fmt.Fprintf(out, "Download: %s\n", entry.DownloadURL)
			return nil
		},
	}

	cmd.Flags().IntVar(&chunkMiB, "chunk-size", api.DefaultChunkSize>>20, "Chunk size in MiB")
	cmd.Flags().StringVar(&resume, "resume", "", "Continue an interrupted upload")
	cmd.Flags().StringVar(&note, "note", "", "Note stored with the file")
	cmd.Flags().BoolVar(&single, "single", false, "Send the file in one request")
	return cmd
}

func newFilesCmd(a *app) *cobra.Command {
	var pageNum, pageSize int

	cmd := &cobra.Command{
		Use:   "files",
		Short: "List stored files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.api.Files.List(cmd.Context(), dto.ListParams{PageNum: pageNum, PageSize: pageSize})
			if err != nil {
				return fmt.Errorf("list files: %w", err)
			}
			out := cmd.OutOrStdout()
			if res.Total == 0 {
				fmt.Fprintln(out, "No files stored.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSIZE\tTYPE\tUPLOADED")
			for _, f := range res.Rows {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", f.ID, f.PublicName, format.Bytes(f.Size),
					format.TableEmpty(f.ContentType), format.Ago(f.CreatedAt))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d files\n", res.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&pageNum, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "size", dto.DefaultPageSize, "Page size")
	return cmd
}
