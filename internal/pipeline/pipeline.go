// Package pipeline wires the components (C1-C8) into the single run the
// CLI exposes, per spec §2's data-flow: text → C1 → (C2 ∥ C6) → C7 → C8.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/hataya-labs/sentchunk/internal/chunk"
	"github.com/hataya-labs/sentchunk/internal/config"
	"github.com/hataya-labs/sentchunk/internal/detect"
	"github.com/hataya-labs/sentchunk/internal/embed"
	"github.com/hataya-labs/sentchunk/internal/llm"
	"github.com/hataya-labs/sentchunk/internal/logging"
	"github.com/hataya-labs/sentchunk/internal/ner"
	"github.com/hataya-labs/sentchunk/internal/preprocess"
	"github.com/hataya-labs/sentchunk/internal/router"
	"github.com/hataya-labs/sentchunk/internal/sentence"
	"github.com/hataya-labs/sentchunk/internal/writer"
)

// Options controls one run beyond what's in the YAML config.
type Options struct {
	InputPath   string
	OutputPath  string
	ForceRemote bool
}

// Failure wraps a pipeline error with the line number of the last sentence
// the pre-processor handed to the rest of the pipeline before the failure
// (recorded by trackLine, ahead of the embedder and detector buffers), so
// the CLI can print the single-line diagnostic §7 requires.
type Failure struct {
	Err      error
	LastLine int
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%v (last processed line: %d)", f.Err, f.LastLine)
}

func (f *Failure) Unwrap() error { return f.Err }

// Run executes the full pipeline against a single input file, per spec §6's
// `run` subcommand.
func Run(ctx context.Context, cfg *config.Config, opts Options, log *logging.Logger) error {
	in, openErr := os.Open(opts.InputPath)
	if openErr != nil {
		return fmt.Errorf("open input: %w", openErr)
	}
	defer in.Close()

	var lastLine int64

	var out io.Writer = os.Stdout
	if opts.OutputPath != "" {
		f, err := os.Create(opts.OutputPath)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer f.Close()
		out = f
	}

	model, err := embed.NewFastEmbedder(ctx, &embed.FastEmbedOptions{BatchSize: cfg.Runtime.BatchSize})
	if err != nil {
		return fmt.Errorf("load embedding model: %w", err)
	}
	defer model.Close()

	mode := router.Mode(cfg.LLM.Provider)
	if opts.ForceRemote {
		mode = router.ModeRemote
	}
	localClient, remoteClient, err := buildClients(ctx, cfg, mode)
	if err != nil {
		return err
	}
	rtr := router.New(mode, localClient, remoteClient, cfg.Runtime.LLMConcurrency, 0, cfg.Failover.F1DropThreshold, log)

	sentences, preErrc := preprocess.Stream(in, preprocess.Options{
		DetectMarkdown:      cfg.DocumentStructure.DetectMarkdown,
		DetectHTML:          cfg.DocumentStructure.DetectHTML,
		DetectIndentation:   cfg.DocumentStructure.DetectIndentation,
		MinHeaderLevel:      cfg.DocumentStructure.MinHeaderLevel,
		MaxHeaderLevel:      cfg.DocumentStructure.MaxHeaderLevel,
		ListIndentThreshold: cfg.DocumentStructure.ListIndentThreshold,
		TabWidth:            cfg.DocumentStructure.TabWidth,
	})

	tracked := trackLine(sentences, &lastLine)
	forEmbed, forDetect := tee(tracked)

	embeddings, embedErrc := embed.Stream(ctx, model, forEmbed, embed.Options{
		BatchSize:    cfg.Runtime.BatchSize,
		ReleaseEvery: cfg.Runtime.ReleaseEvery,
	})

	detector := detect.New(cfg.Detector, cfg.DocumentStructure.ListIndentThreshold, rtr, ner.New(), log, detect.WithEpochObserver(rtr))
	decisions, detectErrc := detector.Stream(ctx, forDetect, embeddings)

	chunks := chunk.Stream(decisions, chunk.Options{
		MinChars:  cfg.Builder.MinChars,
		MaxChars:  cfg.Builder.MaxChars,
		MinTokens: cfg.Builder.MinTokens,
		MaxTokens: cfg.Builder.MaxTokens,
	})

	w := writer.New(opts.OutputPath, out)
	drainErr := writer.Drain(w, chunks)

	if stageErr := firstError(preErrc, embedErrc, detectErrc); stageErr != nil {
		return &Failure{Err: stageErr, LastLine: int(atomic.LoadInt64(&lastLine))}
	}
	if drainErr != nil {
		return &Failure{Err: drainErr, LastLine: int(atomic.LoadInt64(&lastLine))}
	}
	return nil
}

// trackLine passes sentences through unchanged while recording the highest
// line number seen so far, so a failure elsewhere in the pipeline can be
// reported against the last sentence that made it this far.
func trackLine(in <-chan sentence.Sentence, lastLine *int64) <-chan sentence.Sentence {
	out := make(chan sentence.Sentence, 64)
	go func() {
		defer close(out)
		for s := range in {
			atomic.StoreInt64(lastLine, int64(s.LineNumber))
			out <- s
		}
	}()
	return out
}

// tee duplicates a sentence stream so the embedder and the detector can
// each independently consume every sentence in the same order.
func tee(in <-chan sentence.Sentence) (<-chan sentence.Sentence, <-chan sentence.Sentence) {
	a := make(chan sentence.Sentence, 64)
	b := make(chan sentence.Sentence, 64)
	go func() {
		defer close(a)
		defer close(b)
		for s := range in {
			a <- s
			b <- s
		}
	}()
	return a, b
}

// firstError drains already-closed-or-closing error channels and returns
// the first non-nil error found, without blocking indefinitely on any
// channel that a stage never writes to.
func firstError(chans ...<-chan error) error {
	for _, c := range chans {
		select {
		case err := <-c:
			if err != nil {
				return err
			}
		default:
		}
	}
	return nil
}

func buildClients(ctx context.Context, cfg *config.Config, mode router.Mode) (local, remote llm.Client, err error) {
	timeout := time.Duration(cfg.LLM.CallTimeoutSeconds) * time.Second

	if mode == router.ModeLocal || mode == router.ModeAuto {
		local, err = llm.NewOllamaClient(cfg.LLM.Local.ServerURL, cfg.LLM.Local.Model, timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("build local llm client: %w", err)
		}
	}

	if mode == router.ModeRemote {
		switch cfg.LLM.Remote.Provider {
		case "openai", "":
			remote = llm.NewOpenAIClient(os.Getenv("OPENAI_API_KEY"), cfg.LLM.Remote.Endpoint, cfg.LLM.Remote.Model, timeout)
		case "anthropic":
			remote = llm.NewAnthropicClient(os.Getenv("ANTHROPIC_API_KEY"), cfg.LLM.Remote.Model, timeout)
		case "gemini":
			apiKey := os.Getenv("GOOGLE_API_KEY")
			if apiKey == "" {
				apiKey = os.Getenv("GEMINI_API_KEY")
			}
			remote, err = llm.NewGeminiClient(ctx, apiKey, cfg.LLM.Remote.Model, timeout)
			if err != nil {
				return nil, nil, fmt.Errorf("build remote llm client: %w", err)
			}
		default:
			return nil, nil, fmt.Errorf("unknown llm.remote.provider %q", cfg.LLM.Remote.Provider)
		}
	}

	return local, remote, nil
}
