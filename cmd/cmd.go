package cmd

import (
	"context"
	"os"

	"github.com/dreamerjackson/bookcrawler/cmd/app"
	"github.com/dreamerjackson/bookcrawler/cmd/read"
	"github.com/dreamerjackson/bookcrawler/cmd/search"
	"github.com/dreamerjackson/bookcrawler/cmd/serve"
	"github.com/dreamerjackson/bookcrawler/cmd/sources"
	"github.com/dreamerjackson/bookcrawler/cmd/tester"
	"github.com/dreamerjackson/bookcrawler/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version.",
	Long:  "print version.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version.Printer()
	},
}

func Execute() {
	var rootCmd = &cobra.Command{
		Use:          "bookcrawler",
		Short:        "rule-driven book search and reading across many sites.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "config file (default ./config.toml when present)")
	rootCmd.AddCommand(
		search.SearchCmd,
		tester.TestCmd,
		sources.SourceCmd,
		read.ReadCmd,
		serve.ServeCmd,
		versionCmd,
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
