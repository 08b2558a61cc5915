package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codesearch/config"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "codesearch",
	Short: "Code-aware search and batch transformation engine",
	Long: `codesearch ingests a source tree into a ranked lexical index, answers
ranked and literal/regex queries against it, benchmarks retrieval quality,
and performs validated, reversible multi-file text replacement.

Example usage:
  codesearch index .                     # Build the index
  codesearch search -q "TODO"            # Literal search
  codesearch bench --queries bench.json  # Measure retrieval quality
  codesearch replace --ops edits.json    # Apply line-level edits`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./codesearch.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}
