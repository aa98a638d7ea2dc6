// Package config loads and validates the pipeline's YAML configuration.
// The key names mirror spec §6 and the shape mirrors
// sentence_based_chunker/config.py from the original implementation; the
// loading mechanics are grounded on evalaf/eval/config.go's typed
// gopkg.in/yaml.v3 document.
package config

import (
	"fmt"
	"os"

	"github.com/hataya-labs/sentchunk/internal/errs"
	"gopkg.in/yaml.v3"
)

// RuntimeConfig controls the embedder and the LLM concurrency budget.
type RuntimeConfig struct {
	Device        string `yaml:"device"`
	BatchSize     int    `yaml:"batch_size"`
	LLMConcurrency int   `yaml:"llm_concurrency"`
	ReleaseEvery  int    `yaml:"release_every"` // K in §4.2, default 16
}

// LocalLLMConfig configures the locally hosted chat-completions endpoint (C4).
type LocalLLMConfig struct {
	ServerURL string `yaml:"server_url"`
	ModelPath string `yaml:"model_path"` // informational; the server may ignore it
	Model     string `yaml:"model"`
}

// RemoteLLMConfig configures the OpenAI-compatible remote endpoint (C5).
type RemoteLLMConfig struct {
	Provider string `yaml:"provider"` // openai | anthropic | gemini
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// LLMConfig selects and configures the provider router (C3).
type LLMConfig struct {
	Provider string          `yaml:"provider"` // local | remote | auto
	Local    LocalLLMConfig  `yaml:"local"`
	Remote   RemoteLLMConfig `yaml:"remote"`
	CallTimeoutSeconds int   `yaml:"call_timeout_seconds"`
	NVote    int             `yaml:"n_vote"`
}

// FailoverConfig configures the auto-mode warning threshold (§4.3).
type FailoverConfig struct {
	F1DropThreshold float64 `yaml:"f1_drop_threshold"`
}

// DetectorConfig configures the four-stage boundary cascade (§4.4).
type DetectorConfig struct {
	ThresholdHigh   float64 `yaml:"theta_high"`
	ThresholdLow    float64 `yaml:"theta_low"`
	WindowSize      int     `yaml:"k"`
	ZScoreThreshold float64 `yaml:"tau"`
	NVote           int     `yaml:"n_vote"`
	UseLLMReview    *bool   `yaml:"use_llm_review"`
	ConnectiveWords []string `yaml:"connective_words"`
	ShortConnectiveMaxRunes int `yaml:"short_connective_max_runes"`
	NERJaccardThreshold float64 `yaml:"ner_jaccard_threshold"`
}

// DocumentStructureConfig toggles the pre-processor's structural rules (§4.1).
type DocumentStructureConfig struct {
	DetectMarkdown      bool `yaml:"detect_markdown"`
	DetectHTML          bool `yaml:"detect_html"`
	DetectIndentation   bool `yaml:"detect_indentation"`
	MinHeaderLevel      int  `yaml:"min_header_level"`
	MaxHeaderLevel      int  `yaml:"max_header_level"`
	ListIndentThreshold int  `yaml:"list_indent_threshold"`
	TabWidth            int  `yaml:"tab_width"`
}

// BuilderConfig configures the chunk-size bounds honored by the builder (C7).
type BuilderConfig struct {
	MinChars  int `yaml:"min_chars"`
	MaxChars  int `yaml:"max_chars"`
	MinTokens int `yaml:"min_tokens"`
	MaxTokens int `yaml:"max_tokens"`
}

// Config is the root document recognized by §6.
type Config struct {
	Runtime            RuntimeConfig           `yaml:"runtime"`
	LLM                LLMConfig               `yaml:"llm"`
	Failover           FailoverConfig          `yaml:"failover"`
	Detector           DetectorConfig          `yaml:"detector"`
	DocumentStructure  DocumentStructureConfig `yaml:"document_structure"`
	Builder            BuilderConfig           `yaml:"builder"`
}

// Default returns a Config populated with the defaults spec.md names
// throughout §4, mirroring sentence_based_chunker/config.py's pydantic
// field defaults.
func Default() Config {
	useLLM := true
	return Config{
		Runtime: RuntimeConfig{
			Device:         "cpu",
			BatchSize:      32,
			LLMConcurrency: 2,
			ReleaseEvery:   16,
		},
		LLM: LLMConfig{
			Provider: "local",
			Local: LocalLLMConfig{
				ServerURL: "http://127.0.0.1:11434",
			},
			CallTimeoutSeconds: 30,
			NVote:              3,
		},
		Failover: FailoverConfig{
			F1DropThreshold: 0.03,
		},
		Detector: DetectorConfig{
			ThresholdHigh:           0.85,
			ThresholdLow:            0.55,
			WindowSize:              5,
			ZScoreThreshold:         3.5,
			NVote:                   3,
			UseLLMReview:            &useLLM,
			ConnectiveWords:         []string{"しかし", "また", "そして", "however", "also"},
			ShortConnectiveMaxRunes: 12,
			NERJaccardThreshold:     0.8,
		},
		DocumentStructure: DocumentStructureConfig{
			DetectMarkdown:      true,
			DetectHTML:          false,
			DetectIndentation:   true,
			MinHeaderLevel:      1,
			MaxHeaderLevel:      6,
			ListIndentThreshold: 2,
			TabWidth:            4,
		},
		Builder: BuilderConfig{
			MinChars: 200,
			MaxChars: 1200,
		},
	}
}

// Load reads and validates a YAML config file at path, filling unset fields
// with the values from Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.ConfigError{Path: path, Err: err}
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &errs.ConfigError{Path: path, Err: fmt.Errorf("parse yaml: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &errs.ConfigError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Validate checks the invariants the pipeline depends on.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "local", "remote", "auto":
	default:
		return fmt.Errorf("llm.provider must be local, remote, or auto, got %q", c.LLM.Provider)
	}
	if c.LLM.Provider != "local" {
		if c.LLM.Remote.Endpoint == "" && c.LLM.Remote.Provider != "" {
			return fmt.Errorf("llm.remote.endpoint is required when llm.provider is %q", c.LLM.Provider)
		}
	}
	if c.Runtime.LLMConcurrency <= 0 {
		return fmt.Errorf("runtime.llm_concurrency must be positive")
	}
	if c.Builder.MinChars < 0 || c.Builder.MaxChars <= 0 || c.Builder.MinChars > c.Builder.MaxChars {
		return fmt.Errorf("builder.min_chars/max_chars are inconsistent: %d/%d", c.Builder.MinChars, c.Builder.MaxChars)
	}
	if c.Detector.ThresholdLow > c.Detector.ThresholdHigh {
		return fmt.Errorf("detector theta_low must not exceed theta_high")
	}
	return nil
}

// LLMReviewEnabled reports whether Stage C LLM adjudication is enabled,
// defaulting to true when unset (see SPEC_FULL.md Part D §1).
func (d DetectorConfig) LLMReviewEnabled() bool {
	if d.UseLLMReview == nil {
		return true
	}
	return *d.UseLLMReview
}
