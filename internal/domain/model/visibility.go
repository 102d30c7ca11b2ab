package model

import "strings"

// ConditionOperator enumerates the comparison operators a conditional rule
// can use against an earlier answer.
type ConditionOperator string

const (
	OperatorEquals    ConditionOperator = "equals"
	OperatorNotEquals ConditionOperator = "notEquals"
	OperatorContains  ConditionOperator = "contains"
)

// Condition compares the answer to one question against a target value.
type Condition struct {
	QuestionKey string            `json:"questionKey"`
	Operator    ConditionOperator `json:"operator"`
	Value       string            `json:"value"`
}

// ConditionalRules gates a question's visibility on earlier answers.
// Logic is "AND" (all conditions must hold) or "OR" (any condition).
type ConditionalRules struct {
	Logic      string      `json:"logic"`
	Conditions []Condition `json:"conditions"`
}

// ShouldShowQuestion decides whether a question gated by rules is visible
// given the answers submitted so far. A nil or empty rule set means always
// visible. Comparisons are case-insensitive; an unanswered trigger question
// fails its condition. Multi-select answers match equals/notEquals by
// membership and contains by substring over any selected option.
func ShouldShowQuestion(rules *ConditionalRules, answers map[string]Answer) bool {
	if rules == nil || len(rules.Conditions) == 0 {
		return true
	}

	anyMet := false
	allMet := true
	for _, cond := range rules.Conditions {
		met := evaluateCondition(cond, answers)
		anyMet = anyMet || met
		allMet = allMet && met
	}

	if strings.EqualFold(rules.Logic, "OR") {
		return anyMet
	}
	return allMet
}

func evaluateCondition(cond Condition, answers map[string]Answer) bool {
	answer, ok := answers[cond.QuestionKey]
	if !ok || answer.IsEmpty() {
		return false
	}

	target := strings.ToLower(cond.Value)

	if answer.IsList {
		switch cond.Operator {
		case OperatorEquals:
			return listContainsFold(answer.List, target)
		case OperatorNotEquals:
			return !listContainsFold(answer.List, target)
		case OperatorContains:
			for _, item := range answer.List {
				if strings.Contains(strings.ToLower(item), target) {
					return true
				}
			}
			return false
		}
		return false
	}

	value := strings.ToLower(answer.Text)
	switch cond.Operator {
	case OperatorEquals:
		return value == target
	case OperatorNotEquals:
		return value != target
	case OperatorContains:
		return strings.Contains(value, target)
	}
	return false
}

func listContainsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.ToLower(item) == target {
			return true
		}
	}
	return false
}
