/*
PURPOSE:
  Defines the configuration structure and loading logic for Council Runner.
  Effective config is resolved from three immutable layers:
  defaults < yaml file < COUNCIL_* environment variables.

REQUIREMENTS:
  User-specified:
  - Configure council members, chairman, synthesis mode, self-vote
    exclusion, style normalization, reviewer sampling cap.
  - Environment variables must win over the file, the file over defaults.

  Implementation-discovered:
  - Needs YAML parsing (gopkg.in/yaml.v3).
  - The merge has to be a single pure function, not per-field
    conditionals scattered through the code.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine, internal/verify
  - Dependencies: gopkg.in/yaml.v3

ERROR HANDLING:
  - Returns explicit error if a named config file is unreadable or invalid.
  - A missing default-search file falls back to defaults silently.
  - Validate rejects unknown synthesis modes so a typo can never silently
    fall back to the other mode.

USAGE:
  cfg, err := config.Load("council.yaml")

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - New fields go in Config, Overlay, DefaultConfig, envOverlay and merge.
*/

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Synthesis modes. Anything else is a configuration error.
const (
	ModeConsensus = "consensus"
	ModeDebate    = "debate"
)

// Config is the effective configuration for Council Runner.
type Config struct {
	// CouncilModels are the backend identifiers that answer and review.
	CouncilModels []string `yaml:"council_models"`
	// ChairmanModel synthesizes the final response.
	ChairmanModel string `yaml:"chairman_model"`
	// SynthesisMode is "consensus" or "debate".
	SynthesisMode string `yaml:"synthesis_mode"`
	// ExcludeSelfVotes drops ranking observations where reviewer == author.
	ExcludeSelfVotes bool `yaml:"exclude_self_votes"`
	// StyleNormalization rewrites candidate responses in a neutral style
	// before peer review to reduce stylistic fingerprinting.
	StyleNormalization bool   `yaml:"style_normalization"`
	NormalizerModel    string `yaml:"normalizer_model"`
	// MaxReviewers caps the reviewer set via random sampling. 0 = no cap.
	MaxReviewers int `yaml:"max_reviewers"`

	APIKey         string        `yaml:"api_key"`
	APIURL         string        `yaml:"api_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`

	// ConfidenceThreshold is the minimum agreement for a PASS verdict.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	OutputDir string `yaml:"output_dir"`
	LogLevel  string `yaml:"log_level"`
}

// Overlay is one partial configuration layer. Nil fields mean
// "not set at this layer"; merge applies set fields over a base.
type Overlay struct {
	CouncilModels       []string       `yaml:"council_models"`
	ChairmanModel       *string        `yaml:"chairman_model"`
	SynthesisMode       *string        `yaml:"synthesis_mode"`
	ExcludeSelfVotes    *bool          `yaml:"exclude_self_votes"`
	StyleNormalization  *bool          `yaml:"style_normalization"`
	NormalizerModel     *string        `yaml:"normalizer_model"`
	MaxReviewers        *int           `yaml:"max_reviewers"`
	APIKey              *string        `yaml:"api_key"`
	APIURL              *string        `yaml:"api_url"`
	RequestTimeout      *time.Duration `yaml:"request_timeout"`
	MaxRetries          *int           `yaml:"max_retries"`
	RetryDelay          *time.Duration `yaml:"retry_delay"`
	ConfidenceThreshold *float64       `yaml:"confidence_threshold"`
	OutputDir           *string        `yaml:"output_dir"`
	LogLevel            *string        `yaml:"log_level"`
}

// DefaultConfig returns the defaults layer.
func DefaultConfig() Config {
	return Config{
		CouncilModels: []string{
			"openai/gpt-5.1",
			"google/gemini-3-pro-preview",
			"anthropic/claude-opus-4.5",
			"x-ai/grok-4",
		},
		ChairmanModel:       "google/gemini-3-pro-preview",
		SynthesisMode:       ModeConsensus,
		ExcludeSelfVotes:    true,
		StyleNormalization:  false,
		NormalizerModel:     "google/gemini-2.0-flash-001",
		MaxReviewers:        0,
		APIURL:              "https://openrouter.ai/api/v1/chat/completions",
		RequestTimeout:      120 * time.Second,
		MaxRetries:          3,
		RetryDelay:          2 * time.Second,
		ConfidenceThreshold: 0.7,
		OutputDir:           ".",
		LogLevel:            "info",
	}
}

// Merge applies each set field of the overlay over base and returns the
// result. Pure: neither input is mutated.
func Merge(base Config, o Overlay) Config {
	out := base
	if o.CouncilModels != nil {
		out.CouncilModels = o.CouncilModels
	}
	if o.ChairmanModel != nil {
		out.ChairmanModel = *o.ChairmanModel
	}
	if o.SynthesisMode != nil {
		out.SynthesisMode = *o.SynthesisMode
	}
	if o.ExcludeSelfVotes != nil {
		out.ExcludeSelfVotes = *o.ExcludeSelfVotes
	}
	if o.StyleNormalization != nil {
		out.StyleNormalization = *o.StyleNormalization
	}
	if o.NormalizerModel != nil {
		out.NormalizerModel = *o.NormalizerModel
	}
	if o.MaxReviewers != nil {
		out.MaxReviewers = *o.MaxReviewers
	}
	if o.APIKey != nil {
		out.APIKey = *o.APIKey
	}
	if o.APIURL != nil {
		out.APIURL = *o.APIURL
	}
	if o.RequestTimeout != nil {
		out.RequestTimeout = *o.RequestTimeout
	}
	if o.MaxRetries != nil {
		out.MaxRetries = *o.MaxRetries
	}
	if o.RetryDelay != nil {
		out.RetryDelay = *o.RetryDelay
	}
	if o.ConfidenceThreshold != nil {
		out.ConfidenceThreshold = *o.ConfidenceThreshold
	}
	if o.OutputDir != nil {
		out.OutputDir = *o.OutputDir
	}
	if o.LogLevel != nil {
		out.LogLevel = *o.LogLevel
	}
	return out
}

// Load resolves the effective configuration.
// If path is specified, that file must load. If path is empty, default
// locations are searched; no file found means file layer is empty.
// Environment variables are applied last.
func Load(path string) (Config, error) {
	fileLayer, err := loadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Merge(Merge(DefaultConfig(), fileLayer), envOverlay())

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot honor.
func (c Config) Validate() error {
	if c.SynthesisMode != ModeConsensus && c.SynthesisMode != ModeDebate {
		return fmt.Errorf("invalid synthesis_mode %q (must be %q or %q)",
			c.SynthesisMode, ModeConsensus, ModeDebate)
	}
	if len(c.CouncilModels) == 0 {
		return fmt.Errorf("council_models must not be empty")
	}
	if c.ChairmanModel == "" {
		return fmt.Errorf("chairman_model must not be empty")
	}
	if c.MaxReviewers < 0 {
		return fmt.Errorf("max_reviewers must be >= 0, got %d", c.MaxReviewers)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be >= 1, got %d", c.MaxRetries)
	}
	return nil
}

func loadFile(path string) (Overlay, error) {
	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return Overlay{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		for _, name := range searchPaths() {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				break
			}
		}
		if path == "" {
			return Overlay{}, nil
		}
	}

	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Overlay{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return o, nil
}

func searchPaths() []string {
	paths := []string{"council.yaml", "council_runner.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "council-runner", "config.yaml"))
	}
	return paths
}

// envOverlay builds the environment layer from COUNCIL_* variables.
// Unparseable numeric/duration values are ignored rather than fatal.
func envOverlay() Overlay {
	var o Overlay

	if v := os.Getenv("COUNCIL_MODELS"); v != "" {
		var models []string
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		o.CouncilModels = models
	}
	o.ChairmanModel = envString("COUNCIL_CHAIRMAN")
	o.SynthesisMode = envString("COUNCIL_MODE")
	o.ExcludeSelfVotes = envBool("COUNCIL_EXCLUDE_SELF_VOTES")
	o.StyleNormalization = envBool("COUNCIL_STYLE_NORMALIZATION")
	o.NormalizerModel = envString("COUNCIL_NORMALIZER_MODEL")
	o.MaxReviewers = envInt("COUNCIL_MAX_REVIEWERS")
	o.APIURL = envString("COUNCIL_API_URL")
	o.OutputDir = envString("COUNCIL_OUTPUT_DIR")
	o.LogLevel = envString("COUNCIL_LOG_LEVEL")
	o.RequestTimeout = envDuration("COUNCIL_REQUEST_TIMEOUT")
	o.ConfidenceThreshold = envFloat("COUNCIL_CONFIDENCE_THRESHOLD")

	// COUNCIL_API_KEY wins; OPENROUTER_API_KEY is accepted for
	// compatibility with plain OpenRouter setups.
	if k := envString("COUNCIL_API_KEY"); k != nil {
		o.APIKey = k
	} else if k := envString("OPENROUTER_API_KEY"); k != nil {
		o.APIKey = k
	}

	return o
}

func envString(key string) *string {
	if v := os.Getenv(key); v != "" {
		return &v
	}
	return nil
}

func envBool(key string) *bool {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b := false
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		b = true
	}
	return &b
}

func envInt(key string) *int {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func envFloat(key string) *float64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func envDuration(key string) *time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return nil
	}
	return &d
}
