package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/trendyol-invoicer/internal/config"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	envFile      string
	dataDir      string

	cfg    *config.Config
	cfgErr error
)

var rootCmd = &cobra.Command{
	Use:   "trendyol-invoicer",
	Short: "Issue Oblio invoices for Trendyol orders",
	Long: `Trendyol Invoicer reads shipped Trendyol orders, issues the matching invoices in Oblio
and attaches the invoice links back to the marketplace.

Every invoice total is reconciled against the marketplace total before and after it is
issued. Issued invoices, cancelled orders and downloads are recorded in JSON logs in the
data directory so runs can be repeated safely.

Settings come from a .env file (SELLER_ID, API_KEY, API_SECRET, CIF, CLIENT_ID,
CLIENT_SECRET, ...) and the environment.

Examples:
  # Preview what a run would do
  trendyol-invoicer run --dry-run

  # Issue invoices for all shipped orders
  trendyol-invoicer run

  # Send invoices 4100 to 4120 to SPV
  trendyol-invoicer spv 4100 4120

  # Download the issued invoices and merge them into one PDF
  trendyol-invoicer download && trendyol-invoicer merge`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Settings file in .env format")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding the JSON logs (env: DATA_DIR)")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	cfg, cfgErr = config.Load(envFile)
	if cfgErr != nil {
		return
	}
	if dataDir != "" {
		cfg.Files.DataDir = dataDir
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
}

// loadConfig returns the configuration after checking the sections a command needs
func loadConfig(sections ...func(*config.Config) interface{}) (*config.Config, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	required := make([]interface{}, 0, len(sections))
	for _, section := range sections {
		required = append(required, section(cfg))
	}
	if err := config.Validate(required...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func trendyolSection(c *config.Config) interface{} { return &c.Trendyol }
func oblioSection(c *config.Config) interface{} { return &c.Oblio }
func serverSection(c *config.Config) interface{} { return &c.Server }

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
