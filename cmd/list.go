package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"servefetch/downloader"
	"servefetch/internal"
)

var listCmd = &cobra.Command{
	Use:   "list <remote-path>",
	Short: "List entries in a remote directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote := downloader.EnsureTrailingSlash(downloader.EnsureLeadingSlash(args[0]))

		listing, err := downloader.FetchListing(context.Background(), client, hostFlag, remote)
		if err != nil {
			return err
		}
		if listing == nil {
			return internal.NewTransferError(internal.KindInput, "list", fmt.Sprintf("%s is not a directory", remote), nil)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tSIZE")
		for _, entry := range listing.Entries {
			kind := "file"
			if entry.IsDir {
				kind = "dir"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\n", entry.Name, kind, entry.Size)
		}
		w.Flush()

		if !quietFlag && listing.PoweredBy != "" {
			fmt.Printf("\npowered by %s\n", listing.PoweredBy)
		}
		return nil
	},
}
