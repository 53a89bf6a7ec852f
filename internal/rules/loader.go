package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ruleSetLoadErrorTemplateConstant          = "failed to load rule set file: %w"
	ruleSetParseErrorTemplateConstant         = "failed to parse rule set file: %w"
	ruleSetPathRequiredMessageConstant        = "rule set path must be provided"
	ruleSetEmptyMessageTemplateConstant       = "%s rule set must define at least one rule"
	ruleNameRequiredMessageTemplateConstant   = "%s rule set defines a rule without a name"
	ruleNameDuplicateMessageTemplateConstant  = "%s rule set defines duplicate rule name %s"
	ruleUnknownCheckMessageTemplateConstant   = "rule %s uses unknown check %s"
	ruleUnknownActionMessageTemplateConstant  = "rule %s uses unknown action %s"
	ruleFieldRequiredMessageTemplateConstant  = "rule %s requires a field for its check or action"
	ruleLimitRequiredMessageTemplateConstant  = "rule %s requires a positive minute_limit"
	ruleDefaultRequiredMessageTemplateConstant = "rule %s requires a default_value for set-default"
	dailyRuleSetNameConstant                  = "daily"
	weeklyRuleSetNameConstant                 = "weekly"
)

var knownChecks = map[CheckType]struct{}{
	CheckMissingExit: {},
	CheckOverMinutes: {},
	CheckBlankField:  {},
}

var knownActions = map[ActionType]struct{}{
	ActionManualReview: {},
	ActionSetDefault:   {},
}

var knownFields = map[FieldName]struct{}{
	FieldFirstName: {},
	FieldLastName:  {},
	FieldConsole:   {},
	FieldAnyName:   {},
}

// RuleSets bundles the rules applied per run kind.
type RuleSets struct {
	Daily  []Rule `yaml:"daily"`
	Weekly []Rule `yaml:"weekly"`
}

// DefaultRuleSets returns the built-in daily and weekly rules.
func DefaultRuleSets() RuleSets {
	return RuleSets{
		Daily:  BuiltinDailyRules(),
		Weekly: BuiltinWeeklyRules(),
	}
}

// LoadRuleSets reads and validates a rule set definition from disk.
func LoadRuleSets(filePath string) (RuleSets, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return RuleSets{}, errors.New(ruleSetPathRequiredMessageConstant)
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return RuleSets{}, fmt.Errorf(ruleSetLoadErrorTemplateConstant, readError)
	}

	var ruleSets RuleSets
	if unmarshalError := yaml.Unmarshal(contentBytes, &ruleSets); unmarshalError != nil {
		return RuleSets{}, fmt.Errorf(ruleSetParseErrorTemplateConstant, unmarshalError)
	}

	if validationError := ruleSets.Validate(); validationError != nil {
		return RuleSets{}, validationError
	}

	return ruleSets, nil
}

// Validate checks both rule sets for structural errors.
func (ruleSets RuleSets) Validate() error {
	if validationError := validateRuleSet(dailyRuleSetNameConstant, ruleSets.Daily); validationError != nil {
		return validationError
	}
	return validateRuleSet(weeklyRuleSetNameConstant, ruleSets.Weekly)
}

func validateRuleSet(ruleSetName string, ruleSet []Rule) error {
	if len(ruleSet) == 0 {
		return fmt.Errorf(ruleSetEmptyMessageTemplateConstant, ruleSetName)
	}

	seenNames := make(map[string]struct{}, len(ruleSet))
	for _, rule := range ruleSet {
		ruleName := strings.TrimSpace(rule.Name)
		if len(ruleName) == 0 {
			return fmt.Errorf(ruleNameRequiredMessageTemplateConstant, ruleSetName)
		}
		if _, duplicate := seenNames[ruleName]; duplicate {
			return fmt.Errorf(ruleNameDuplicateMessageTemplateConstant, ruleSetName, ruleName)
		}
		seenNames[ruleName] = struct{}{}

		if validationError := validateRule(rule); validationError != nil {
			return validationError
		}
	}
	return nil
}

func validateRule(rule Rule) error {
	if _, checkKnown := knownChecks[rule.Check]; !checkKnown {
		return fmt.Errorf(ruleUnknownCheckMessageTemplateConstant, rule.Name, rule.Check)
	}
	if _, actionKnown := knownActions[rule.Action]; !actionKnown {
		return fmt.Errorf(ruleUnknownActionMessageTemplateConstant, rule.Name, rule.Action)
	}

	if rule.Check == CheckBlankField {
		if _, fieldKnown := knownFields[rule.Field]; !fieldKnown {
			return fmt.Errorf(ruleFieldRequiredMessageTemplateConstant, rule.Name)
		}
	}

	if rule.Check == CheckOverMinutes && rule.MinuteLimit <= 0 {
		return fmt.Errorf(ruleLimitRequiredMessageTemplateConstant, rule.Name)
	}

	if rule.Action == ActionSetDefault {
		if len(strings.TrimSpace(rule.DefaultValue)) == 0 {
			return fmt.Errorf(ruleDefaultRequiredMessageTemplateConstant, rule.Name)
		}
		if _, fieldKnown := knownFields[rule.Field]; !fieldKnown || rule.Field == FieldAnyName {
			return fmt.Errorf(ruleFieldRequiredMessageTemplateConstant, rule.Name)
		}
	}

	return nil
}
