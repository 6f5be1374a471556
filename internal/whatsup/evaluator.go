package whatsup

import (
	"fmt"
	"regexp"

	"whatsup-go/internal/model"
)

// Evaluation is the verdict of a rule set against fetched content.
type Evaluation struct {
	Status  int
	Failing *model.Rule // last rule that failed, nil if all passed
}

// RuleError reports a stored pattern that no longer compiles.
type RuleError struct {
	Pattern string
	Err     error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("compiling pattern %q: %v", e.Pattern, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// Evaluate checks content against every rule in order.
//
// All rules are evaluated even after one fails; when several fail, the last
// one in rule order is reported. An empty rule set always passes.
func Evaluate(content []byte, rules []model.Rule) (Evaluation, error) {
	result := Evaluation{Status: model.StatusOK}

	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return Evaluation{Status: model.StatusFailed}, &RuleError{Pattern: rule.Pattern, Err: err}
		}

		if !satisfied(rule.Kind, re.Match(content)) {
			failing := rule
			result.Status = model.StatusFailed
			result.Failing = &failing
		}
	}

	return result, nil
}

func satisfied(kind model.RuleKind, matched bool) bool {
	switch kind {
	case model.MustNotMatch:
		return !matched
	default:
		return matched
	}
}
