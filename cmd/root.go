// Package cmd implements the artifactresolver CLI surface: extract, list,
// validate and shell subcommands over the resolver core, adapted from the
// teacher's cobra root command.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackvault/artifactresolver/internal/config"
	"github.com/blackvault/artifactresolver/internal/logging"
	"github.com/blackvault/artifactresolver/internal/version"
)

var (
	catalogueDir string
	keysFile     string
	outputDir    string
	evidence     []string
	artifactArgs []string
	verbose      bool
	jsonLogs     bool

	cfg *config.Config
	log *logging.Logger
)

var RootCmd = &cobra.Command{
	Use:   "artifactresolver",
	Short: "Forensic artifact resolver",
	Long: `artifactresolver resolves declarative artifact definitions (file globs and
Windows registry patterns with %variable% substitution) against a mounted
forensic disk image, and exports the matched files and registry data to an
output store.`,
	Version: version.GetVersion(),
	Run: func(cmd *cobra.Command, args []string) {
		banner()
		cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cfg = loaded

		level := logging.LogLevel(cfg.LogLevel)
		if verbose {
			level = logging.LogLevelDebug
		}
		format := logging.LogFormat(cfg.LogFormat)
		if jsonLogs {
			format = logging.LogFormatJSON
		}
		log = logging.NewLoggerWithConfig(level, format, os.Stdout)
		return nil
	},
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	RootCmd.PersistentFlags().StringVarP(&catalogueDir, "catalogue", "a", "./artifacts", "directory of artifact definition YAML files")
	RootCmd.PersistentFlags().StringVarP(&keysFile, "keys", "k", "", "credential keys file (';'-separated credential_type;credential_data rows)")
	RootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "./artifactresolver-output", "output directory for the export store")
	RootCmd.PersistentFlags().StringSliceVarP(&evidence, "evidence", "i", nil, "path(s) to mounted disk image evidence")
	RootCmd.PersistentFlags().StringSliceVarP(&artifactArgs, "artifacts", "e", nil, "artifact name(s) to resolve/extract")
	RootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")

	RootCmd.AddCommand(extractCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(validateCmd)
	RootCmd.AddCommand(shellCmd)

	return RootCmd
}

func banner() {
	redColor := color.New(color.FgRed, color.Bold)
	whiteColor := color.New(color.FgHiWhite, color.Bold)
	redColor.Print("artifact")
	whiteColor.Println("resolver")
}
