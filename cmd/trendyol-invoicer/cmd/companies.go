package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List the Oblio companies the credentials can issue for",
	Long: `List the companies available to CLIENT_ID / CLIENT_SECRET in Oblio. Useful to check
credentials and the CIF before a run.`,
	Args: cobra.NoArgs,
	RunE: runCompanies,
}

func init() {
	rootCmd.AddCommand(companiesCmd)
}

func runCompanies(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}
	c, err := loadConfig(oblioSection)
	if err != nil {
		return err
	}

	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.close()

	client, err := a.oblioClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	companies, err := client.Companies(ctx)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(os.Stdout, companies)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CIF\tCOMPANY\tCONFIGURED")
	for _, co := range companies {
		mark := ""
		if co.CIF == client.CIF() {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", co.CIF, co.Company, mark)
	}
	return tw.Flush()
}
