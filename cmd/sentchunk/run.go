package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hataya-labs/sentchunk/internal/config"
	"github.com/hataya-labs/sentchunk/internal/errs"
	"github.com/hataya-labs/sentchunk/internal/logging"
	"github.com/hataya-labs/sentchunk/internal/pipeline"
)

var (
	confPath    string
	outPath     string
	forceRemote bool
)

var runCmd = &cobra.Command{
	Use:   "run <input-path>",
	Short: "Chunk a single document into a JSONL stream of semantic chunks",
	Long: `run reads a Markdown or plain-text document, detects semantic boundaries
using the embedding/z-score/LLM cascade, and writes one JSON object per chunk.

Examples:
  sentchunk run report.md
  sentchunk run report.md --conf sentchunk.yaml --out chunks.jsonl
  sentchunk run report.md --force-remote
`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&confPath, "conf", "", "Path to YAML configuration file (defaults built in when omitted)")
	runCmd.Flags().StringVar(&outPath, "out", "", "Output JSONL path (defaults to stdout)")
	runCmd.Flags().BoolVar(&forceRemote, "force-remote", false, "Force the remote LLM backend regardless of llm.provider")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(confPath)
	if err != nil {
		return err
	}

	log := logging.New()
	ctx := context.Background()

	return pipeline.Run(ctx, cfg, pipeline.Options{
		InputPath:   args[0],
		OutputPath:  outPath,
		ForceRemote: forceRemote,
	}, log)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(path)
}

// exitCode maps a run error to the process exit status from spec §7:
// 0 success, 2 config error, 1 any other unrecoverable failure. It also
// prints the single-line stderr diagnostic naming the error kind and the
// last successfully processed sentence's line number.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var cfgErr *errs.ConfigError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(os.Stderr, "sentchunk: config error: %v\n", err)
		return 2
	}

	var failure *pipeline.Failure
	if errors.As(err, &failure) {
		fmt.Fprintf(os.Stderr, "sentchunk: %s: last processed line %d\n", errorKind(failure.Err), failure.LastLine)
		return 1
	}

	fmt.Fprintf(os.Stderr, "sentchunk: %v\n", err)
	return 1
}

func errorKind(err error) string {
	var embErr *errs.EmbeddingError
	var structErr *errs.StructuralError
	var writerErr *errs.WriterError
	var llmErr *errs.LLMCallError
	switch {
	case errors.As(err, &embErr):
		return "embedding error"
	case errors.As(err, &structErr):
		return "structural error"
	case errors.As(err, &writerErr):
		return "writer error"
	case errors.As(err, &llmErr):
		return fmt.Sprintf("llm call error [%s]", llmErr.Kind)
	default:
		return err.Error()
	}
}
