// Package main provides the stitch CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/stitch/cli"
)

var (
	// Global flags
	provider string
	dbPath   string
	maxIter  int
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "stitch",
		Short: "LLM-driven assistant for storefront theme projects",
		Long: `A tool-calling runtime for working on Liquid theme codebases.

The reasoning backend decides what to do; stitch executes its tool calls:
search with automatic scope widening, tolerant find/replace edits, region
extraction, and parallel read-only workers over a SQLite-backed working set.`,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, gemini)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default .stitch/stitch.db)")
	rootCmd.PersistentFlags().IntVarP(&maxIter, "max-iter", "m", 20, "Maximum agent loop iterations")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show tool calls and worker progress")

	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	opts := cli.DefaultOptions()
	opts.Provider = provider
	opts.MaxIter = maxIter
	opts.Verbose = verbose
	if dbPath != "" {
		opts.DBPath = dbPath
	}
	return opts
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load [directory]",
		Short: "Load a theme directory into the project database",
		Long: `Walk a theme directory and store every file in the project database.

Files are keyed by their path relative to the directory; reloading updates
existing files in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.LoadTheme(context.Background(), args[0], options())
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [task]",
		Short: "Execute a single task against the loaded project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunTask(context.Background(), args[0], options())
		},
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session against the loaded project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), options())
		},
	}
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListCapabilities(verboseTools)
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}
