package rules_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/techlabops/labaudit/internal/rules"
)

var (
	testEntryTime = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	testExitTime  = testEntryTime.Add(45 * time.Minute)
)

func completedSession() rules.SessionRecord {
	return rules.SessionRecord{
		Identifier: "record-0",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Console:    "PS5-2",
		EntryTime:  testEntryTime,
		ExitTime:   testExitTime,
	}
}

func TestSessionRecordMinutes(testInstance *testing.T) {
	testCases := []struct {
		name            string
		record          rules.SessionRecord
		expectedMinutes int
	}{
		{name: "forty_five_minute_session", record: completedSession(), expectedMinutes: 45},
		{
			name: "open_session_has_zero_minutes",
			record: rules.SessionRecord{EntryTime: testEntryTime},
			expectedMinutes: 0,
		},
		{
			name: "exit_before_entry_floors_at_zero",
			record: rules.SessionRecord{EntryTime: testEntryTime, ExitTime: testEntryTime.Add(-10 * time.Minute)},
			expectedMinutes: 0,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedMinutes, testCase.record.Minutes())
		})
	}
}

func TestRuleEvaluate(testInstance *testing.T) {
	openSession := completedSession()
	openSession.ExitTime = time.Time{}

	blankConsoleSession := completedSession()
	blankConsoleSession.Console = "  "

	blankNameSession := completedSession()
	blankNameSession.LastName = ""

	shortSession := completedSession()
	shortSession.ExitTime = testEntryTime.Add(20 * time.Minute)

	testCases := []struct {
		name           string
		rule           rules.Rule
		record         rules.SessionRecord
		expectViolated bool
		expectedDetail string
	}{
		{
			name:           "missing_exit_flags_open_session",
			rule:           rules.Rule{Name: "open-session", Check: rules.CheckMissingExit, Action: rules.ActionManualReview},
			record:         openSession,
			expectViolated: true,
			expectedDetail: "exit time missing",
		},
		{
			name:           "missing_exit_passes_completed_session",
			rule:           rules.Rule{Name: "open-session", Check: rules.CheckMissingExit, Action: rules.ActionManualReview},
			record:         completedSession(),
			expectViolated: false,
		},
		{
			name:           "over_minutes_flags_long_session",
			rule:           rules.Rule{Name: "over-30-minutes", Check: rules.CheckOverMinutes, MinuteLimit: 30, Action: rules.ActionManualReview},
			record:         completedSession(),
			expectViolated: true,
			expectedDetail: "session lasted 45 minutes (limit 30)",
		},
		{
			name:           "over_minutes_passes_short_session",
			rule:           rules.Rule{Name: "over-30-minutes", Check: rules.CheckOverMinutes, MinuteLimit: 30, Action: rules.ActionManualReview},
			record:         shortSession,
			expectViolated: false,
		},
		{
			name:           "over_minutes_ignores_open_session",
			rule:           rules.Rule{Name: "over-30-minutes", Check: rules.CheckOverMinutes, MinuteLimit: 30, Action: rules.ActionManualReview},
			record:         openSession,
			expectViolated: false,
		},
		{
			name:           "blank_console_detected",
			rule:           rules.Rule{Name: "missing-console", Check: rules.CheckBlankField, Field: rules.FieldConsole, Action: rules.ActionSetDefault, DefaultValue: "UNASSIGNED"},
			record:         blankConsoleSession,
			expectViolated: true,
			expectedDetail: "console number blank",
		},
		{
			name:           "blank_any_name_detected",
			rule:           rules.Rule{Name: "missing-name", Check: rules.CheckBlankField, Field: rules.FieldAnyName, Action: rules.ActionManualReview},
			record:         blankNameSession,
			expectViolated: true,
			expectedDetail: "first or last name blank",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			violated, detail := testCase.rule.Evaluate(testCase.record)
			require.Equal(testInstance, testCase.expectViolated, violated)
			if testCase.expectViolated {
				require.Equal(testInstance, testCase.expectedDetail, detail)
			} else {
				require.Empty(testInstance, detail)
			}
		})
	}
}

func TestBuiltinRuleSetsAreValid(testInstance *testing.T) {
	require.NoError(testInstance, rules.DefaultRuleSets().Validate())
	require.Len(testInstance, rules.BuiltinDailyRules(), 4)
	require.Len(testInstance, rules.BuiltinWeeklyRules(), 3)
}
