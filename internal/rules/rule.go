package rules

import (
	"fmt"
	"strings"
	"time"
)

// ActionType selects what a violated rule asks the run to do.
type ActionType string

// Supported rule actions.
const (
	ActionManualReview ActionType = "manual-review"
	ActionSetDefault   ActionType = "set-default"
)

// CheckType identifies a predicate over a session record.
type CheckType string

// Supported rule checks.
const (
	CheckMissingExit  CheckType = "missing-exit"
	CheckOverMinutes  CheckType = "over-minutes"
	CheckBlankField   CheckType = "blank-field"
)

// FieldName identifies a session field referenced by blank-field checks and corrective defaults.
type FieldName string

// Session fields addressable by rules.
const (
	FieldFirstName FieldName = "first_name"
	FieldLastName  FieldName = "last_name"
	FieldConsole   FieldName = "console"
	FieldAnyName   FieldName = "name"
)

const (
	missingExitDetailConstant       = "exit time missing"
	overMinutesDetailTemplate       = "session lasted %d minutes (limit %d)"
	blankFieldDetailTemplateConstant = "%s blank"
)

// SessionRecord is the rule-facing view of one sign-in session.
type SessionRecord struct {
	Identifier string
	FirstName  string
	LastName   string
	Console    string
	EntryTime  time.Time
	ExitTime   time.Time
}

// Completed reports whether the session has an exit time.
func (record SessionRecord) Completed() bool {
	return !record.ExitTime.IsZero()
}

// Minutes returns the floored, non-negative session length; zero while the session is open.
func (record SessionRecord) Minutes() int {
	if !record.Completed() || record.EntryTime.IsZero() {
		return 0
	}
	elapsedMinutes := int(record.ExitTime.Sub(record.EntryTime).Minutes())
	if elapsedMinutes < 0 {
		return 0
	}
	return elapsedMinutes
}

// Rule is one named check with an optional corrective default.
type Rule struct {
	Name         string     `yaml:"name"`
	Check        CheckType  `yaml:"check"`
	Field        FieldName  `yaml:"field,omitempty"`
	MinuteLimit  int        `yaml:"minute_limit,omitempty"`
	Action       ActionType `yaml:"action"`
	DefaultValue string     `yaml:"default_value,omitempty"`
}

// Evaluate reports whether the record violates the rule, with a human-readable detail.
func (rule Rule) Evaluate(record SessionRecord) (bool, string) {
	switch rule.Check {
	case CheckMissingExit:
		if !record.Completed() {
			return true, missingExitDetailConstant
		}
	case CheckOverMinutes:
		if record.Completed() && record.Minutes() > rule.MinuteLimit {
			return true, fmt.Sprintf(overMinutesDetailTemplate, record.Minutes(), rule.MinuteLimit)
		}
	case CheckBlankField:
		if blankFieldName, isBlank := blankField(record, rule.Field); isBlank {
			return true, fmt.Sprintf(blankFieldDetailTemplateConstant, blankFieldName)
		}
	}
	return false, ""
}

func blankField(record SessionRecord, field FieldName) (string, bool) {
	isBlank := func(value string) bool { return len(strings.TrimSpace(value)) == 0 }

	switch field {
	case FieldFirstName:
		return "first name", isBlank(record.FirstName)
	case FieldLastName:
		return "last name", isBlank(record.LastName)
	case FieldConsole:
		return "console number", isBlank(record.Console)
	case FieldAnyName:
		return "first or last name", isBlank(record.FirstName) || isBlank(record.LastName)
	}
	return "", false
}

// OverMinuteLimitDefault is the session length ceiling of the builtin
// over-minutes rules.
const OverMinuteLimitDefault = 30

// BuiltinDailyRules returns the default daily rule set.
func BuiltinDailyRules() []Rule {
	return []Rule{
		{Name: "open-session", Check: CheckMissingExit, Action: ActionManualReview},
		{Name: "over-30-minutes", Check: CheckOverMinutes, MinuteLimit: OverMinuteLimitDefault, Action: ActionManualReview},
		{Name: "missing-console", Check: CheckBlankField, Field: FieldConsole, Action: ActionSetDefault, DefaultValue: "UNASSIGNED"},
		{Name: "missing-name", Check: CheckBlankField, Field: FieldAnyName, Action: ActionManualReview},
	}
}

// BuiltinWeeklyRules returns the default weekly rule set; weekly runs never write.
func BuiltinWeeklyRules() []Rule {
	return []Rule{
		{Name: "open-session", Check: CheckMissingExit, Action: ActionManualReview},
		{Name: "over-30-minutes", Check: CheckOverMinutes, MinuteLimit: OverMinuteLimitDefault, Action: ActionManualReview},
		{Name: "missing-name", Check: CheckBlankField, Field: FieldAnyName, Action: ActionManualReview},
	}
}
