package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"servefetch/downloader"
	"servefetch/internal"
	"servefetch/utils"
)

var (
	uploadParentID   string
	uploadAllowNoExt bool
	uploadAllowAll   bool
	uploadStream     bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a local file to the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenFlag == "" {
			return internal.NewTransferError(internal.KindAuthorization, "upload", "a bearer token is required: pass --token or set SERVEFETCH_TOKEN", nil)
		}

		mode := internal.Multipart
		if uploadStream {
			mode = internal.RawPut
		}

		job := internal.UploadJob{
			Source:      args[0],
			ParentID:    uploadParentID,
			AllowNoExt:  uploadAllowNoExt,
			AllowAllExt: uploadAllowAll,
			Mode:        mode,
			Token:       tokenFlag,
		}

		result, err := downloader.Upload(context.Background(), client, hostFlag, job, progressSinkFor(), retriesFlag)
		if err != nil {
			return err
		}

		if !quietFlag {
			color.Green("uploaded %s\n", result.Name)
			fmt.Printf("  size:     %s\n", utils.FormatBytes(result.SizeBytes))
			fmt.Printf("  type:     %s\n", result.MimeType)
			fmt.Printf("  id:       %s\n", result.ID)
			fmt.Printf("  created:  %s\n", result.CreatedDate)
			fmt.Printf("  list:     %s\n", result.ListURL)
			fmt.Printf("  download: %s\n", result.DownloadURL)
			if result.PoweredBy != "" {
				fmt.Printf("  server:   %s\n", result.PoweredBy)
			}
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadParentID, "dir", "", "destination parent directory id")
	uploadCmd.Flags().BoolVar(&uploadAllowNoExt, "allow-no-ext", false, "allow uploading a file with no extension")
	uploadCmd.Flags().BoolVar(&uploadAllowAll, "allow-all-ext", false, "allow uploading any file extension, bypassing the server's allowlist")
	uploadCmd.Flags().BoolVar(&uploadStream, "stream", false, "stream via raw PUT instead of a multipart POST")
}
