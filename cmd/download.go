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
	downloadOutput    string
	downloadRecursive bool
	downloadExisting  string
)

var downloadCmd = &cobra.Command{
	Use:   "download <remote-path>",
	Short: "Download a file, or a whole directory with --recursive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote := args[0]

		strategy, err := parseExistingStrategy(downloadExisting)
		if err != nil {
			return err
		}

		opts := downloader.TransferOptions{
			Connections:      connectionsFlag,
			ExistingStrategy: strategy,
			Recursive:        downloadRecursive,
			MaxAttempts:      retriesFlag,
		}

		outcome, err := downloader.DownloadTarget(context.Background(), client, hostFlag, remote, downloadOutput, opts, progressSinkFor())
		if err != nil {
			return err
		}

		if !quietFlag {
			switch {
			case outcome.Skipped:
				color.Yellow("skipped: %s\n", outcome.Path)
			case outcome.Bytes > 0:
				color.Green("downloaded %s to %s\n", utils.FormatBytes(int64(outcome.Bytes)), outcome.Path)
			default:
				color.Green("downloaded to %s\n", outcome.Path)
			}
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "local output path (file, or directory with --recursive)")
	downloadCmd.Flags().BoolVarP(&downloadRecursive, "recursive", "r", false, "download a remote directory recursively")
	downloadCmd.Flags().StringVar(&downloadExisting, "existing", "overwrite", "what to do when the local path already exists: overwrite, skip, duplicate")
}

// parseExistingStrategy maps the --existing flag to an
// internal.ExistingFileStrategy, defaulting to Overwrite.
func parseExistingStrategy(s string) (internal.ExistingFileStrategy, error) {
	switch s {
	case "", "overwrite":
		return internal.Overwrite, nil
	case "skip":
		return internal.Skip, nil
	case "duplicate":
		return internal.Duplicate, nil
	default:
		return internal.Overwrite, internal.NewValidationError("existing", fmt.Sprintf("unknown strategy %q", s)).WithSuggestion("use overwrite, skip, or duplicate")
	}
}

// progressSinkFor returns the bar-rendering sink, or a no-op sink in
// --quiet mode.
func progressSinkFor() internal.ProgressSink {
	if quietFlag {
		return internal.NopProgressSink{}
	}
	return utils.NewPBProgressSink(false)
}
