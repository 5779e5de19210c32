// cmd/casefile
//
// Entry point for the casefile CLI. `serve` runs the JSON API, `play` opens
// the terminal client against the same game engine.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var projectDir string

var rootCmd = &cobra.Command{
	Use:   "casefile",
	Short: "Murder-mystery deduction game with an A* detective",
	Long: "casefile deals a hidden suspect, weapon and location and lets you (or the\n" +
		"built-in detective) gather evidence until only one answer is left.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDir, "dir", "", "project directory holding .casefile (default: working directory)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the casefile version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
