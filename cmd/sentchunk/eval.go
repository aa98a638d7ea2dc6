package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hataya-labs/sentchunk/internal/eval"
)

var goldDir string

var evalCmd = &cobra.Command{
	Use:   "eval <pred-dir>",
	Short: "Compute boundary F1 of predicted chunks against a gold JSONL directory",
	Long: `eval compares chunk boundaries in <pred-dir> against a directory of gold
JSONL files with the same basenames, and prints the micro-averaged
precision/recall/F1.

Example:
  sentchunk eval out/ --gold testdata/gold/
`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&goldDir, "gold", "", "Path to the directory of gold JSONL files")
	evalCmd.MarkFlagRequired("gold")
}

// runEval always exits 0 regardless of the computed score; only an
// inability to read the input directories is an error (spec §6).
func runEval(cmd *cobra.Command, args []string) error {
	counts, err := eval.Evaluate(goldDir, args[0])
	if err != nil {
		return err
	}
	f1, precision, recall := counts.F1()
	fmt.Printf("precision=%.4f recall=%.4f f1=%.4f (tp=%d fp=%d fn=%d)\n",
		precision, recall, f1, counts.TP, counts.FP, counts.FN)
	return nil
}
