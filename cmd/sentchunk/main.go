package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// SilenceErrors/SilenceUsage keep cobra from printing its own "Error: ..."
// line and the full usage block on a non-nil RunE error; exitCode already
// prints the single-line stderr diagnostic §7 requires, and cobra's default
// output would otherwise stack in front of it.
var rootCmd = &cobra.Command{
	Use:           "sentchunk",
	Short:         "sentchunk - semantic sentence chunker for long-form documents",
	Long:          "sentchunk splits Markdown/plain-text documents into semantically coherent chunks using an embedding and LLM-adjudicated boundary cascade.",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(evalCmd)
}
