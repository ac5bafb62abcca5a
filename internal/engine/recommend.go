package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/netpulse/internal/models"
)

// RuleEngine attaches operator recommendations to anomalies from a YAML rule pack.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule represents a single recommendation rule.
type Rule struct {
	ID              string    `yaml:"id"`
	Match           RuleMatch `yaml:"match"`
	Recommendations []string  `yaml:"recommendations"`
}

// RuleMatch defines optional attributes for rule matching. Empty fields match anything.
type RuleMatch struct {
	Tier     string   `yaml:"tier"`
	Breaches []string `yaml:"breaches"`
	Networks []int    `yaml:"networks"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRuleEngine loads rules from the provided path. A blank path or missing file yields a nil engine.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("loaded anomaly rule pack", slog.String("path", path), slog.Int("rules", len(cfg.Rules)))
	return &RuleEngine{rules: cfg.Rules, logger: logger}, nil
}

// Recommend returns the deduplicated recommendations of every rule matching the anomaly.
func (e *RuleEngine) Recommend(anomaly models.Anomaly) []string {
	if e == nil {
		return nil
	}

	var matched []string
	for _, rule := range e.rules {
		if rule.Match.Tier != "" && !strings.EqualFold(rule.Match.Tier, string(anomaly.Tier)) {
			continue
		}
		if len(rule.Match.Breaches) > 0 && !breachMatches(rule.Match.Breaches, anomaly.Breaches) {
			continue
		}
		if len(rule.Match.Networks) > 0 && !networkMatches(rule.Match.Networks, anomaly.Sample.NetworkID) {
			continue
		}
		e.logger.Debug("rule matched", slog.String("rule", rule.ID), slog.Int("node_id", anomaly.Sample.NodeID))
		matched = appendUnique(matched, rule.Recommendations...)
	}
	return matched
}

func breachMatches(wanted []string, breaches []models.Breach) bool {
	for _, b := range breaches {
		for _, w := range wanted {
			if strings.EqualFold(w, string(b)) {
				return true
			}
		}
	}
	return false
}

func networkMatches(networks []int, networkID int) bool {
	for _, n := range networks {
		if n == networkID {
			return true
		}
	}
	return false
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
