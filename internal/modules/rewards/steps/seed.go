package steps

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/vaccilearn-backend/internal/data/repos"
	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/domain/rewards"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

type SeedDeps struct {
	Log   *logger.Logger
	Rules repos.RewardRuleRepo
}

type seedFile struct {
	Rules []seedRule `yaml:"rules"`
}

type seedRule struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Context         string `yaml:"context"`
	ContextEntityID string `yaml:"context_entity_id"`
	ConditionField  string `yaml:"condition_field"`
	Operator        string `yaml:"operator"`
	ThresholdValue  *int64 `yaml:"threshold_value"`
	ThresholdMin    *int64 `yaml:"threshold_min"`
	ThresholdMax    *int64 `yaml:"threshold_max"`
	XPValue         *int   `yaml:"xp_value"`
	XPPercent       *int   `yaml:"xp_percent"`
	RuleKind        string `yaml:"rule_kind"`
	BadgeID         string `yaml:"badge_id"`
	CertificateID   string `yaml:"certificate_id"`
	Priority        int    `yaml:"priority"`
	IsActive        *bool  `yaml:"is_active"`
}

// ParseRuleSeed decodes and validates a YAML rule file. Rules default to active.
func ParseRuleSeed(raw []byte) ([]*types.RewardRule, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rule seed: %w", err)
	}
	out := make([]*types.RewardRule, 0, len(f.Rules))
	for i, sr := range f.Rules {
		rule, err := sr.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule seed #%d: %w", i, err)
		}
		if _, err := CompileRule(rule); err != nil {
			return nil, fmt.Errorf("rule seed #%d: %w", i, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

func (sr seedRule) toRule() (*types.RewardRule, error) {
	rule := &types.RewardRule{
		Name:           sr.Name,
		Context:        rewards.Context(strings.ToUpper(strings.TrimSpace(sr.Context))),
		ConditionField: strings.TrimSpace(sr.ConditionField),
		Operator:       rewards.Operator(strings.ToUpper(strings.TrimSpace(sr.Operator))),
		ThresholdValue: sr.ThresholdValue,
		ThresholdMin:   sr.ThresholdMin,
		ThresholdMax:   sr.ThresholdMax,
		XPValue:        sr.XPValue,
		XPPercent:      sr.XPPercent,
		RuleKind:       rewards.RuleKind(strings.ToUpper(strings.TrimSpace(sr.RuleKind))),
		Priority:       sr.Priority,
		IsActive:       sr.IsActive == nil || *sr.IsActive,
	}
	if rule.RuleKind == "" {
		rule.RuleKind = rewards.RuleKindBonus
	}
	var err error
	if rule.ID, err = parseOptionalID(sr.ID); err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	if rule.ContextEntityID, err = parseOptionalPtr(sr.ContextEntityID); err != nil {
		return nil, fmt.Errorf("context_entity_id: %w", err)
	}
	if rule.BadgeID, err = parseOptionalPtr(sr.BadgeID); err != nil {
		return nil, fmt.Errorf("badge_id: %w", err)
	}
	if rule.CertificateID, err = parseOptionalPtr(sr.CertificateID); err != nil {
		return nil, fmt.Errorf("certificate_id: %w", err)
	}
	return rule, nil
}

func parseOptionalID(s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func parseOptionalPtr(s string) (*uuid.UUID, error) {
	id, err := parseOptionalID(s)
	if err != nil || id == uuid.Nil {
		return nil, err
	}
	return &id, nil
}

// SeedRules inserts the rules from raw when the rule table is empty. It returns how many
// rules were written.
func SeedRules(dbc dbctx.Context, deps SeedDeps, raw []byte) (int, error) {
	n, err := deps.Rules.Count(dbc)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if deps.Log != nil {
			deps.Log.Debug("reward rules already present, skipping seed", "count", n)
		}
		return 0, nil
	}
	rules, err := ParseRuleSeed(raw)
	if err != nil {
		return 0, err
	}
	if len(rules) == 0 {
		return 0, nil
	}
	if _, err := deps.Rules.Create(dbc, rules); err != nil {
		return 0, err
	}
	if deps.Log != nil {
		deps.Log.Info("seeded reward rules", "count", len(rules))
	}
	return len(rules), nil
}
