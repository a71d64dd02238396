package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/leoprotocol/leoscore/internal/alert"
)

// LevelThresholds are the average-impact boundaries for risk levels.
type LevelThresholds struct {
	Critical float64 `yaml:"critical"`
	High     float64 `yaml:"high"`
	Medium   float64 `yaml:"medium"`
}

// ScoringConfig tunes venture risk scoring.
type ScoringConfig struct {
	ConfidenceFloor    int             `yaml:"confidence_floor"`
	CriticalConfidence int             `yaml:"critical_confidence"`
	Levels             LevelThresholds `yaml:"levels"`
	MaxRecommendations int             `yaml:"max_recommendations"`
}

// MappingConfig tunes post-mortem to pattern mapping.
type MappingConfig struct {
	ConfidenceFloor int     `yaml:"confidence_floor"`
	SignalWeight    float64 `yaml:"signal_weight"`
	WhyBonus        float64 `yaml:"why_bonus"`
	MaxSuggestions  int     `yaml:"max_suggestions"`
}

// Stats failure policies for the bypass classifier.
const (
	StatsDegrade = "degrade"
	StatsFail    = "fail"
)

// HistoryConfig adjusts quick-fix confidence from past outcomes.
type HistoryConfig struct {
	MinSamples int     `yaml:"min_samples"`
	HighRate   float64 `yaml:"high_rate"`
	HighBonus  int     `yaml:"high_bonus"`
	LowRate    float64 `yaml:"low_rate"`
	LowPenalty int     `yaml:"low_penalty"`
}

// BypassConfig holds the bypass decision table limits.
type BypassConfig struct {
	MicroMaxLOC         int           `yaml:"micro_max_loc"`
	MicroMaxFiles       int           `yaml:"micro_max_files"`
	MicroConfidence     int           `yaml:"micro_confidence"`
	QuickMaxLOC         int           `yaml:"quick_max_loc"`
	QuickMaxFiles       int           `yaml:"quick_max_files"`
	QuickBase           int           `yaml:"quick_base"`
	QuickSpan           int           `yaml:"quick_span"`
	QuickThreshold      int           `yaml:"quick_threshold"`
	CriticalPathPenalty int           `yaml:"critical_path_penalty"`
	ExtraFilePenalty    int           `yaml:"extra_file_penalty"`
	History             HistoryConfig `yaml:"history"`
	StatsFailure        string        `yaml:"stats_failure"`
}

// PolicyConfig holds all configurable scoring and bypass parameters.
type PolicyConfig struct {
	Scoring ScoringConfig       `yaml:"scoring"`
	Mapping MappingConfig       `yaml:"mapping"`
	Bypass  BypassConfig        `yaml:"bypass"`
	Alerts  []alert.AlertConfig `yaml:"alerts,omitempty"`
}

// DefaultConfig returns the built-in policy.
func DefaultConfig() *PolicyConfig {
	return &PolicyConfig{
		Scoring: ScoringConfig{
			ConfidenceFloor:    30,
			CriticalConfidence: 70,
			Levels: LevelThresholds{
				Critical: 80,
				High:     60,
				Medium:   40,
			},
			MaxRecommendations: 5,
		},
		Mapping: MappingConfig{
			ConfidenceFloor: 30,
			SignalWeight:    80,
			WhyBonus:        5,
			MaxSuggestions:  5,
		},
		Bypass: BypassConfig{
			MicroMaxLOC:         10,
			MicroMaxFiles:       1,
			MicroConfidence:     95,
			QuickMaxLOC:         50,
			QuickMaxFiles:       3,
			QuickBase:           70,
			QuickSpan:           30,
			QuickThreshold:      70,
			CriticalPathPenalty: 20,
			ExtraFilePenalty:    5,
			History: HistoryConfig{
				MinSamples: 5,
				HighRate:   0.9,
				HighBonus:  5,
				LowRate:    0.7,
				LowPenalty: 10,
			},
			StatsFailure: StatsDegrade,
		},
	}
}

// Validate rejects configurations that would make classification inconsistent.
func (c *PolicyConfig) Validate() error {
	var errs []error

	l := c.Scoring.Levels
	if !(l.Critical >= l.High && l.High >= l.Medium && l.Medium >= 0) {
		errs = append(errs, fmt.Errorf("scoring.levels must satisfy critical >= high >= medium >= 0 (got %v/%v/%v)", l.Critical, l.High, l.Medium))
	}
	if !inPercent(c.Scoring.ConfidenceFloor) || !inPercent(c.Scoring.CriticalConfidence) {
		errs = append(errs, errors.New("scoring confidences must be within 0..100"))
	}
	if c.Scoring.MaxRecommendations < 0 {
		errs = append(errs, errors.New("scoring.max_recommendations must not be negative"))
	}
	if !inPercent(c.Mapping.ConfidenceFloor) {
		errs = append(errs, errors.New("mapping.confidence_floor must be within 0..100"))
	}
	if c.Mapping.SignalWeight < 0 || c.Mapping.WhyBonus < 0 || c.Mapping.MaxSuggestions < 0 {
		errs = append(errs, errors.New("mapping weights and limits must not be negative"))
	}

	b := c.Bypass
	if b.MicroMaxLOC > b.QuickMaxLOC {
		errs = append(errs, fmt.Errorf("bypass.micro_max_loc (%d) exceeds quick_max_loc (%d)", b.MicroMaxLOC, b.QuickMaxLOC))
	}
	if b.QuickMaxLOC <= 0 {
		errs = append(errs, errors.New("bypass.quick_max_loc must be positive"))
	}
	if !inPercent(b.MicroConfidence) || !inPercent(b.QuickThreshold) {
		errs = append(errs, errors.New("bypass confidences must be within 0..100"))
	}
	switch b.StatsFailure {
	case StatsDegrade, StatsFail:
	default:
		errs = append(errs, fmt.Errorf("bypass.stats_failure must be %q or %q, got %q", StatsDegrade, StatsFail, b.StatsFailure))
	}

	return errors.Join(errs...)
}

func inPercent(v int) bool {
	return v >= 0 && v <= 100
}

// DefaultPath returns ~/.leoscore/<name>, or "" if the home dir is unknown.
func DefaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".leoscore", name)
}

// LoadConfig loads policy configuration from a YAML file.
// Empty path falls back to ~/.leoscore/policy.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func LoadConfig(path string) (*PolicyConfig, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads policy configuration and returns its SHA-256 hash.
// The hash is computed over the raw YAML bytes on disk.
// When no file exists (defaults used), the hash is the SHA-256 of empty input.
func LoadConfigWithHash(path string) (*PolicyConfig, string, error) {
	if path == "" {
		path = DefaultPath("policy.yaml")
		if path == "" {
			return DefaultConfig(), hashBytes(nil), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), hashBytes(nil), nil
		}
		return nil, "", fmt.Errorf("failed to read policy config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse policy config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid policy config: %w", err)
	}

	return cfg, hashBytes(data), nil
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}

// DefaultConfigYAML returns a commented YAML string for init-policy.
func DefaultConfigYAML() string {
	return `# leoscore policy configuration
# Generated by: leoscore init-policy

# Venture risk scoring.
# A pattern matches when round(matched/total*100) >= confidence_floor.
# Level order (first match wins):
#   1. any critical-severity match with confidence > critical_confidence -> critical
#   2. no matches -> none
#   3. average impact >= levels.critical / levels.high / levels.medium, else low
scoring:
  confidence_floor: 30
  critical_confidence: 70
  levels:
    critical: 80
    high: 60
    medium: 40
  max_recommendations: 5

# Post-mortem mapping.
# confidence = min(100, round(ratio * signal_weight + why_bonus * matched_whys))
mapping:
  confidence_floor: 30
  signal_weight: 80
  why_bonus: 5
  max_suggestions: 5

# Governance bypass decision table.
# Blockers (schema/auth change, critical severity, sensitive keyword) always
# require the full process and are not configurable here.
bypass:
  micro_max_loc: 10
  micro_max_files: 1
  micro_confidence: 95
  quick_max_loc: 50
  quick_max_files: 3
  # confidence = quick_base + round(quick_span * (quick_max_loc - loc) / quick_max_loc)
  quick_base: 70
  quick_span: 30
  quick_threshold: 70
  critical_path_penalty: 20
  extra_file_penalty: 5
  history:
    min_samples: 5
    high_rate: 0.9
    high_bonus: 5
    low_rate: 0.7
    low_penalty: 10
  # degrade: continue without history when stats cannot be loaded
  # fail: surface the error to the caller
  stats_failure: degrade

# Webhook alerts. Events: critical, high, full_sd, blocked
# alerts:
#   - url: https://hooks.slack.com/services/...
#     format: slack
#     events: [critical, blocked]
`
}
