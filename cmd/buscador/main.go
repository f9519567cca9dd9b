package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/buscador/internal/cli"
	"github.com/cloo-solutions/buscador/internal/cli/admin"
	"github.com/cloo-solutions/buscador/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "buscador",
		Short: "Buscador - web and LinkedIn search",
		Long: `Buscador runs manual and batch searches against Google Custom Search.

Environment variables:
  GOOGLE_API_KEY                     API key for the search API (required)
  GOOGLE_SEARCH_ENGINE_ID_WEB        engine used for web searches (required)
  GOOGLE_SEARCH_ENGINE_ID_LINKEDIN   engine used for LinkedIn searches (required)

Without a command the web server is started.`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.LogsCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.BatchCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if target, ok := cli.HelpJSONTarget(rootCmd, os.Args[1:]); ok {
		if err := cli.WriteSchema(os.Stdout, target); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
