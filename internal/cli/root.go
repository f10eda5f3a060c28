package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/usageledger/ledgerd/internal/config"
)

var (
	// Global flags
	configFile string
	debug      bool
	verbose    bool
	quiet      bool

	// loadedConfig is populated by initConfig once cobra has parsed
	// --conf; subcommands read it instead of loading their own copy.
	loadedConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledgerd",
	Short: "ledgerd - deterministic usage/billing ledger",
	Long: `ledgerd is a deterministic, replayable usage and billing ledger.
It validates and applies metered-usage transactions against an append-only
log, settles usage windows between owners and operators, and lets any
settlement's evidence be independently recomputed from the log by replay.`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable normally suppressed debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output to console after startup")
}

// initConfig loads configuration from --conf (if given), the config
// package's defaults, and the environment. A bad config file is fatal
// since every subcommand depends on loadedConfig being populated.
func initConfig() {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	loadedConfig = cfg
}
