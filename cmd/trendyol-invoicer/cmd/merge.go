package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rezonia/trendyol-invoicer/internal/download"
	"github.com/rezonia/trendyol-invoicer/internal/pdfmerge"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [folder]",
	Short: "Merge downloaded invoice PDFs into one file",
	Long: `Merge the invoice PDFs of a download folder, in file name order, into
<first>-<last>.pdf inside the same folder. Without an argument the most recent
downloaded_invoices_* folder in the data directory is used.

Examples:
  trendyol-invoicer merge
  trendyol-invoicer merge downloaded_invoices_2026-03-02`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}

	var folder string
	if len(args) == 1 {
		folder = args[0]
	} else {
		folder, err = pdfmerge.LatestFolder(c.Files.DataDir, download.FolderPrefix)
		if err != nil {
			return err
		}
	}
	printVerbose("Merging PDFs in %s\n", folder)

	result, err := pdfmerge.Folder(folder, download.FilePrefix)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), result)
	}
	fmt.Printf("Merged %d files (%d pages) into %s\n", len(result.Inputs), result.Pages, filepath.Base(result.Output))
	return nil
}
