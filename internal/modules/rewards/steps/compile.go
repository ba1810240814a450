package steps

import (
	"fmt"
	"math"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/domain/rewards"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

// CompiledRule is a rule whose field lookup and operator were resolved ahead of evaluation.
type CompiledRule struct {
	Rule *types.RewardRule
	get  accessor
	test func(int64) bool
}

// Fires reports whether the rule's condition holds for facts.
func (c CompiledRule) Fires(f Facts) bool {
	v, ok := c.get(f)
	return ok && c.test(v)
}

// XP is the rule's contribution: the fixed value if set, else floor(base*percent/100).
func (c CompiledRule) XP(baseXP int) int {
	switch {
	case c.Rule.XPValue != nil:
		return *c.Rule.XPValue
	case c.Rule.XPPercent != nil:
		return int(math.Floor(float64(baseXP) * float64(*c.Rule.XPPercent) / 100))
	default:
		return 0
	}
}

// CompileRule validates one rule row.
func CompileRule(rule *types.RewardRule) (CompiledRule, error) {
	if rule == nil {
		return CompiledRule{}, fmt.Errorf("nil rule")
	}
	get, ok := resolveField(rule.Context, rule.ConditionField)
	if !ok {
		return CompiledRule{}, fmt.Errorf("rule %s: field %q is not valid for context %s", rule.ID, rule.ConditionField, rule.Context)
	}
	test, err := compileOperator(rule)
	if err != nil {
		return CompiledRule{}, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	if rule.XPValue != nil && rule.XPPercent != nil {
		return CompiledRule{}, fmt.Errorf("rule %s: xp_value and xp_percent are mutually exclusive", rule.ID)
	}
	switch rule.RuleKind {
	case rewards.RuleKindBase:
		if rule.XPPercent != nil {
			return CompiledRule{}, fmt.Errorf("rule %s: BASE rules pay a fixed xp_value, not xp_percent", rule.ID)
		}
	case rewards.RuleKindBonus, "":
	default:
		return CompiledRule{}, fmt.Errorf("rule %s: unknown rule_kind %q", rule.ID, rule.RuleKind)
	}
	return CompiledRule{Rule: rule, get: get, test: test}, nil
}

func compileOperator(rule *types.RewardRule) (func(int64) bool, error) {
	switch rule.Operator {
	case rewards.OpEqual, rewards.OpGTE, rewards.OpLTE:
		if rule.ThresholdValue == nil {
			return nil, fmt.Errorf("operator %s needs threshold_value", rule.Operator)
		}
		t := *rule.ThresholdValue
		switch rule.Operator {
		case rewards.OpEqual:
			return func(v int64) bool { return v == t }, nil
		case rewards.OpGTE:
			return func(v int64) bool { return v >= t }, nil
		default:
			return func(v int64) bool { return v <= t }, nil
		}
	case rewards.OpBetween:
		if rule.ThresholdMin == nil || rule.ThresholdMax == nil {
			return nil, fmt.Errorf("BETWEEN needs threshold_min and threshold_max")
		}
		lo, hi := *rule.ThresholdMin, *rule.ThresholdMax
		if lo > hi {
			return nil, fmt.Errorf("BETWEEN range [%d,%d] is empty", lo, hi)
		}
		return func(v int64) bool { return v >= lo && v <= hi }, nil
	}
	return nil, fmt.Errorf("unknown operator %q", rule.Operator)
}

// CompileRules keeps the input order and drops rules that fail to compile.
func CompileRules(log *logger.Logger, rules []*types.RewardRule) []CompiledRule {
	out := make([]CompiledRule, 0, len(rules))
	for _, r := range rules {
		c, err := CompileRule(r)
		if err != nil {
			if log != nil {
				log.Warn("skipping invalid reward rule", "error", err)
			}
			continue
		}
		out = append(out, c)
	}
	return out
}
