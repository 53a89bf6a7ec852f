package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/techlabops/labaudit/internal/notion"
	"github.com/techlabops/labaudit/internal/rules"
)

type stubClock struct {
	currentTime time.Time
}

func (clock stubClock) Now() time.Time {
	return clock.currentTime
}

type stubRecordSource struct {
	queryPages     []notion.Page
	queryError     error
	refreshedPages map[string]notion.Page
	refreshError   error
	updateError    error
	refreshedCalls []string
	updatedCalls   []string
	updatedChanges []notion.PropertyChanges
}

func (source *stubRecordSource) QueryDatabase(_ context.Context, _ string, _ notion.QueryFilter) ([]notion.Page, error) {
	if source.queryError != nil {
		return nil, source.queryError
	}
	return source.queryPages, nil
}

func (source *stubRecordSource) GetPage(_ context.Context, pageIdentifier string) (notion.Page, error) {
	source.refreshedCalls = append(source.refreshedCalls, pageIdentifier)
	if source.refreshError != nil {
		return notion.Page{}, source.refreshError
	}
	return source.refreshedPages[pageIdentifier], nil
}

func (source *stubRecordSource) UpdatePageProperties(_ context.Context, pageIdentifier string, changes notion.PropertyChanges) error {
	source.updatedCalls = append(source.updatedCalls, pageIdentifier)
	source.updatedChanges = append(source.updatedChanges, changes)
	return source.updateError
}

type stubReportWriter struct {
	writtenReports []Report
	writeError     error
}

func (writer *stubReportWriter) WriteReport(report Report) ([]string, error) {
	if writer.writeError != nil {
		return nil, writer.writeError
	}
	writer.writtenReports = append(writer.writtenReports, report)
	return []string{"daily/2026-03-02.report"}, nil
}

func buildSessionPage(pageIdentifier string, firstName string, lastName string, consoleNumber string, entryTimestamp string, exitTimestamp string, lastEditedTime time.Time) notion.Page {
	properties := map[string]notion.PropertyValue{
		PropertyFirstName: notion.NewTitleProperty(firstName),
		PropertyLastName:  notion.NewRichTextProperty(lastName),
	}
	if len(consoleNumber) > 0 {
		properties[PropertyConsole] = notion.NewSelectProperty(consoleNumber)
	}
	if len(entryTimestamp) > 0 {
		properties[PropertyEntryDate] = notion.PropertyValue{Date: &notion.DateValue{Start: entryTimestamp}}
	}
	if len(exitTimestamp) > 0 {
		properties[PropertyExitDate] = notion.PropertyValue{Date: &notion.DateValue{Start: exitTimestamp}}
	}
	return notion.Page{Identifier: pageIdentifier, LastEditedTime: lastEditedTime, Properties: properties}
}

func dailyRunOptions(applyChanges bool, dryRun bool) CommandOptions {
	auditDay := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	return CommandOptions{
		Kind:               RunKindDaily,
		DatabaseIdentifier: "database-identifier",
		StartDay:           auditDay,
		EndDay:             auditDay,
		Rules:              rules.BuiltinDailyRules(),
		ApplyChanges:       applyChanges,
		DryRun:             dryRun,
	}
}

func TestServiceRunDailyReport(testInstance *testing.T) {
	recordEditTime := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)
	recordSource := &stubRecordSource{
		queryPages: []notion.Page{
			buildSessionPage("page-1", "Ada", "Lovelace", "7", "2026-03-02T14:00:00Z", "2026-03-02T14:45:00Z", recordEditTime),
			buildSessionPage("page-2", "Grace", "Hopper", "3", "2026-03-02T16:00:00Z", "", recordEditTime),
			buildSessionPage("page-3", "", "", "", "", "", recordEditTime),
		},
	}
	reportWriter := &stubReportWriter{}
	generatedAt := time.Date(2026, time.March, 2, 18, 0, 0, 0, time.UTC)
	service := NewService(recordSource, reportWriter, nil, stubClock{currentTime: generatedAt}, time.UTC)

	report, runError := service.Run(context.Background(), dailyRunOptions(false, false))
	require.NoError(testInstance, runError)

	require.Equal(testInstance, RunKindDaily, report.Kind)
	require.Equal(testInstance, "2026-03-02", report.StartDate)
	require.Equal(testInstance, "2026-03-02", report.EndDate)
	require.Equal(testInstance, generatedAt, report.GeneratedAt)
	require.Equal(testInstance, 2, report.SessionCount)
	require.Equal(testInstance, 1, report.OpenSessionCount)
	require.Equal(testInstance, 1, report.OverLimitCount)

	require.Len(testInstance, report.Sessions, 2)
	require.Equal(testInstance, SessionRow{FirstName: "Ada", LastName: "Lovelace", Console: "7", TimeIn: "2:00 PM", TimeOut: "2:45 PM", Minutes: "45"}, report.Sessions[0])
	require.Equal(testInstance, SessionRow{FirstName: "Grace", LastName: "Hopper", Console: "3", TimeIn: "4:00 PM", TimeOut: "", Minutes: ""}, report.Sessions[1])

	require.Len(testInstance, report.Findings, 2)
	require.Equal(testInstance, "over-30-minutes", report.Findings[0].RuleName)
	require.Equal(testInstance, "page-1", report.Findings[0].RecordIdentifier)
	require.Equal(testInstance, FindingActionManualReview, report.Findings[0].Action)
	require.Equal(testInstance, "open-session", report.Findings[1].RuleName)
	require.Equal(testInstance, "page-2", report.Findings[1].RecordIdentifier)

	require.Len(testInstance, reportWriter.writtenReports, 1)
	require.Empty(testInstance, recordSource.updatedCalls)
}

func TestServiceRunFindingOrderFollowsRuleDeclaration(testInstance *testing.T) {
	recordEditTime := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)
	recordSource := &stubRecordSource{
		queryPages: []notion.Page{
			buildSessionPage("page-1", "Ada", "", "", "2026-03-02T14:00:00Z", "", recordEditTime),
		},
	}
	reportWriter := &stubReportWriter{}
	service := NewService(recordSource, reportWriter, nil, stubClock{}, time.UTC)

	report, runError := service.Run(context.Background(), dailyRunOptions(false, false))
	require.NoError(testInstance, runError)

	ruleNames := make([]string, 0, len(report.Findings))
	for _, finding := range report.Findings {
		ruleNames = append(ruleNames, finding.RuleName)
	}
	require.Equal(testInstance, []string{"open-session", "missing-console", "missing-name"}, ruleNames)
}

func TestServiceRunApplyDefault(testInstance *testing.T) {
	recordEditTime := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)
	violatingPage := buildSessionPage("page-1", "Ada", "Lovelace", "", "2026-03-02T14:00:00Z", "2026-03-02T14:10:00Z", recordEditTime)
	recordSource := &stubRecordSource{
		queryPages:     []notion.Page{violatingPage},
		refreshedPages: map[string]notion.Page{"page-1": violatingPage},
	}
	reportWriter := &stubReportWriter{}
	service := NewService(recordSource, reportWriter, nil, stubClock{}, time.UTC)

	report, runError := service.Run(context.Background(), dailyRunOptions(true, false))
	require.NoError(testInstance, runError)

	require.Len(testInstance, report.Findings, 1)
	require.Equal(testInstance, FindingActionSetDefault, report.Findings[0].Action)
	require.Equal(testInstance, `console number blank; applied default "UNASSIGNED"`, report.Findings[0].Detail)

	require.Equal(testInstance, []string{"page-1"}, recordSource.refreshedCalls)
	require.Equal(testInstance, []string{"page-1"}, recordSource.updatedCalls)
	require.Len(testInstance, recordSource.updatedChanges, 1)
	require.Contains(testInstance, recordSource.updatedChanges[0], PropertyConsole)
}

func TestServiceRunConcurrentEditDowngradesFinding(testInstance *testing.T) {
	fetchEditTime := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)
	violatingPage := buildSessionPage("page-1", "Ada", "Lovelace", "", "2026-03-02T14:00:00Z", "2026-03-02T14:10:00Z", fetchEditTime)
	refreshedPage := violatingPage
	refreshedPage.LastEditedTime = fetchEditTime.Add(time.Minute)
	recordSource := &stubRecordSource{
		queryPages:     []notion.Page{violatingPage},
		refreshedPages: map[string]notion.Page{"page-1": refreshedPage},
	}
	reportWriter := &stubReportWriter{}
	service := NewService(recordSource, reportWriter, nil, stubClock{}, time.UTC)

	report, runError := service.Run(context.Background(), dailyRunOptions(true, false))
	require.NoError(testInstance, runError)

	require.Len(testInstance, report.Findings, 1)
	require.Equal(testInstance, FindingActionManualReview, report.Findings[0].Action)
	require.Contains(testInstance, report.Findings[0].Detail, "record modified since fetch")
	require.Empty(testInstance, recordSource.updatedCalls)
}

func TestServiceRunApplyFailureKeepsRunAlive(testInstance *testing.T) {
	recordEditTime := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)
	violatingPage := buildSessionPage("page-1", "Ada", "Lovelace", "", "2026-03-02T14:00:00Z", "2026-03-02T14:10:00Z", recordEditTime)
	recordSource := &stubRecordSource{
		queryPages:     []notion.Page{violatingPage},
		refreshedPages: map[string]notion.Page{"page-1": violatingPage},
		updateError:    notion.RemoteError{StatusCode: 500, Detail: "server error"},
	}
	reportWriter := &stubReportWriter{}
	service := NewService(recordSource, reportWriter, nil, stubClock{}, time.UTC)

	report, runError := service.Run(context.Background(), dailyRunOptions(true, false))
	require.NoError(testInstance, runError)

	require.Len(testInstance, report.Findings, 1)
	require.Equal(testInstance, FindingActionManualReview, report.Findings[0].Action)
	require.Contains(testInstance, report.Findings[0].Detail, "corrective update failed")
	require.Len(testInstance, reportWriter.writtenReports, 1)
}

func TestServiceRunDryRunPlansWithoutWriting(testInstance *testing.T) {
	recordEditTime := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)
	recordSource := &stubRecordSource{
		queryPages: []notion.Page{
			buildSessionPage("page-1", "Ada", "Lovelace", "", "2026-03-02T14:00:00Z", "2026-03-02T14:10:00Z", recordEditTime),
		},
	}
	reportWriter := &stubReportWriter{}
	service := NewService(recordSource, reportWriter, nil, stubClock{}, time.UTC)

	report, runError := service.Run(context.Background(), dailyRunOptions(true, true))
	require.NoError(testInstance, runError)

	require.Len(testInstance, report.Findings, 1)
	require.Equal(testInstance, FindingActionSetDefault, report.Findings[0].Action)
	require.Contains(testInstance, report.Findings[0].Detail, `would apply default "UNASSIGNED"`)
	require.Empty(testInstance, recordSource.refreshedCalls)
	require.Empty(testInstance, recordSource.updatedCalls)
}

func TestServiceRunApplyDisabledSuggestsDefault(testInstance *testing.T) {
	recordEditTime := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)
	recordSource := &stubRecordSource{
		queryPages: []notion.Page{
			buildSessionPage("page-1", "Ada", "Lovelace", "", "2026-03-02T14:00:00Z", "2026-03-02T14:10:00Z", recordEditTime),
		},
	}
	reportWriter := &stubReportWriter{}
	service := NewService(recordSource, reportWriter, nil, stubClock{}, time.UTC)

	report, runError := service.Run(context.Background(), dailyRunOptions(false, false))
	require.NoError(testInstance, runError)

	require.Len(testInstance, report.Findings, 1)
	require.Equal(testInstance, FindingActionManualReview, report.Findings[0].Action)
	require.Contains(testInstance, report.Findings[0].Detail, `suggested default "UNASSIGNED"`)
	require.Empty(testInstance, recordSource.refreshedCalls)
}

func TestServiceRunFetchFailureSkipsExport(testInstance *testing.T) {
	recordSource := &stubRecordSource{queryError: notion.TransientServiceError{StatusCode: 429, Attempts: 3}}
	reportWriter := &stubReportWriter{}
	service := NewService(recordSource, reportWriter, nil, stubClock{}, time.UTC)

	_, runError := service.Run(context.Background(), dailyRunOptions(false, false))

	var transientError notion.TransientServiceError
	require.ErrorAs(testInstance, runError, &transientError)
	require.Empty(testInstance, reportWriter.writtenReports)
}

func TestServiceRunWriterFailureFailsRun(testInstance *testing.T) {
	recordEditTime := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)
	recordSource := &stubRecordSource{
		queryPages: []notion.Page{
			buildSessionPage("page-1", "Ada", "Lovelace", "7", "2026-03-02T14:00:00Z", "2026-03-02T14:10:00Z", recordEditTime),
		},
	}
	reportWriter := &stubReportWriter{writeError: errors.New("disk full")}
	service := NewService(recordSource, reportWriter, nil, stubClock{}, time.UTC)

	_, runError := service.Run(context.Background(), dailyRunOptions(false, false))
	require.ErrorContains(testInstance, runError, "disk full")
}

func TestServiceRunWeeklyAggregation(testInstance *testing.T) {
	recordEditTime := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)
	recordSource := &stubRecordSource{
		queryPages: []notion.Page{
			buildSessionPage("page-1", "Ada", "Lovelace", "7", "2026-03-02T14:00:00Z", "2026-03-02T14:45:00Z", recordEditTime),
			buildSessionPage("page-2", "Grace", "Hopper", "3", "2026-03-02T16:00:00Z", "2026-03-02T16:20:00Z", recordEditTime),
			buildSessionPage("page-3", "Alan", "Turing", "1", "2026-03-04T10:00:00Z", "", recordEditTime),
			buildSessionPage("page-4", "Edsger", "Dijkstra", "2", "2026-03-15T10:00:00Z", "2026-03-15T10:05:00Z", recordEditTime),
		},
	}
	reportWriter := &stubReportWriter{}
	service := NewService(recordSource, reportWriter, nil, stubClock{}, time.UTC)

	options := CommandOptions{
		Kind:               RunKindWeekly,
		DatabaseIdentifier: "database-identifier",
		StartDay:           time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		EndDay:             time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC),
		Rules:              rules.BuiltinWeeklyRules(),
	}

	report, runError := service.Run(context.Background(), options)
	require.NoError(testInstance, runError)

	require.Equal(testInstance, 4, report.SessionCount)
	require.Empty(testInstance, report.Sessions)
	require.Len(testInstance, report.DaySummaries, 7)

	mondaySummary := report.DaySummaries[0]
	require.Equal(testInstance, DaySummary{Date: "2026-03-02", Sessions: 2, Completed: 2, Open: 0, OverLimit: 1, TotalMinutes: 65}, mondaySummary)

	wednesdaySummary := report.DaySummaries[2]
	require.Equal(testInstance, DaySummary{Date: "2026-03-04", Sessions: 1, Completed: 0, Open: 1, OverLimit: 0, TotalMinutes: 0}, wednesdaySummary)

	for _, daySummary := range report.DaySummaries[3:] {
		require.Equal(testInstance, 0, daySummary.Sessions, fmt.Sprintf("unexpected sessions on %s", daySummary.Date))
	}
}

func TestServiceRunWeeklyNeverWrites(testInstance *testing.T) {
	recordEditTime := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)
	recordSource := &stubRecordSource{
		queryPages: []notion.Page{
			buildSessionPage("page-1", "Ada", "Lovelace", "", "2026-03-02T14:00:00Z", "2026-03-02T14:10:00Z", recordEditTime),
		},
	}
	reportWriter := &stubReportWriter{}
	service := NewService(recordSource, reportWriter, nil, stubClock{}, time.UTC)

	options := CommandOptions{
		Kind:               RunKindWeekly,
		DatabaseIdentifier: "database-identifier",
		StartDay:           time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		EndDay:             time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC),
		Rules:              rules.BuiltinDailyRules(),
		ApplyChanges:       true,
	}

	report, runError := service.Run(context.Background(), options)
	require.NoError(testInstance, runError)

	require.Empty(testInstance, recordSource.refreshedCalls)
	require.Empty(testInstance, recordSource.updatedCalls)
	for _, finding := range report.Findings {
		require.Equal(testInstance, FindingActionManualReview, finding.Action)
	}
}
