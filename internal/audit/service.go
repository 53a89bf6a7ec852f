package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/techlabops/labaudit/internal/notion"
	"github.com/techlabops/labaudit/internal/rules"
)

const (
	stateTransitionMessageConstant   = "audit run state changed"
	recordsFetchedMessageConstant    = "session records fetched"
	findingRecordedMessageConstant   = "rule finding recorded"
	defaultAppliedMessageConstant    = "default value applied"
	applySkippedMessageConstant      = "corrective update skipped"
	artifactsWrittenMessageConstant  = "report artifacts written"
	runFailedMessageConstant         = "audit run failed"
	concurrentEditDetailConstant     = "record modified since fetch; left for manual review"
	applyFailureDetailTemplate       = "corrective update failed: %v; left for manual review"
	appliedDetailTemplate            = "%s; applied default %q"
	plannedDetailTemplate            = "%s; would apply default %q"
	suggestedDetailTemplate          = "%s; suggested default %q"
	unmappedFieldDetailTemplate      = "%s; no writable property for field %q"
)

// CommandOptions captures the behavior requested for one audit run.
type CommandOptions struct {
	Kind               RunKind
	DatabaseIdentifier string
	StartDay           time.Time
	EndDay             time.Time
	Rules              []rules.Rule
	ApplyChanges       bool
	DryRun             bool
}

// Service executes audit runs against a record source and hands the
// outcome to a report writer.
type Service struct {
	recordSource RecordSource
	reportWriter ReportWriter
	logger       *zap.Logger
	clock        Clock
	location     *time.Location
}

// NewService constructs a Service using the provided dependencies.
func NewService(recordSource RecordSource, reportWriter ReportWriter, logger *zap.Logger, clock Clock, location *time.Location) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if location == nil {
		location = time.Local
	}
	return &Service{
		recordSource: recordSource,
		reportWriter: reportWriter,
		logger:       logger,
		clock:        clock,
		location:     location,
	}
}

// Run executes one audit run and returns its report. The returned
// report is valid only when the error is nil.
func (service *Service) Run(executionContext context.Context, options CommandOptions) (Report, error) {
	currentState := RunStateIdle
	currentState = service.transition(currentState, RunStateFetching)

	pages, fetchError := service.recordSource.QueryDatabase(executionContext, options.DatabaseIdentifier, service.buildFilter(options))
	if fetchError != nil {
		service.fail(currentState, fetchError)
		return Report{}, fetchError
	}
	service.logger.Debug(recordsFetchedMessageConstant, zap.Int("record_count", len(pages)))

	currentState = service.transition(currentState, RunStateEvaluating)
	report := Report{
		Kind:        options.Kind,
		StartDate:   options.StartDay.Format(civilDateLayoutConstant),
		EndDate:     options.EndDay.Format(civilDateLayoutConstant),
		GeneratedAt: service.clock.Now(),
	}

	sessionRecords := make([]rules.SessionRecord, 0, len(pages))
	pagesByIdentifier := make(map[string]notion.Page, len(pages))
	for _, page := range pages {
		sessionRecord, usable := sessionFromPage(page, service.location)
		if !usable {
			continue
		}
		sessionRecords = append(sessionRecords, sessionRecord)
		pagesByIdentifier[sessionRecord.Identifier] = page
	}

	service.summarizeSessions(&report, options, sessionRecords)

	type pendingDefault struct {
		findingIndex int
		rule         rules.Rule
		record       rules.SessionRecord
	}
	pendingDefaults := make([]pendingDefault, 0)

	for _, sessionRecord := range sessionRecords {
		for _, evaluatedRule := range options.Rules {
			violated, detail := evaluatedRule.Evaluate(sessionRecord)
			if !violated {
				continue
			}
			finding := Finding{
				RecordIdentifier: sessionRecord.Identifier,
				RuleName:         evaluatedRule.Name,
				Action:           FindingActionManualReview,
				Detail:           detail,
			}
			if evaluatedRule.Action == rules.ActionSetDefault {
				finding.Action = FindingActionSetDefault
				pendingDefaults = append(pendingDefaults, pendingDefault{
					findingIndex: len(report.Findings),
					rule:         evaluatedRule,
					record:       sessionRecord,
				})
			}
			service.logger.Debug(findingRecordedMessageConstant,
				zap.String("record_identifier", finding.RecordIdentifier),
				zap.String("rule_name", finding.RuleName),
				zap.String("action", string(finding.Action)))
			report.Findings = append(report.Findings, finding)
		}
	}

	currentState = service.transition(currentState, RunStateApplying)
	for _, pending := range pendingDefaults {
		service.resolvePendingDefault(executionContext, options, pending.rule, pending.record, &report.Findings[pending.findingIndex], pagesByIdentifier[pending.record.Identifier])
	}

	currentState = service.transition(currentState, RunStateReporting)
	artifactPaths, writeError := service.reportWriter.WriteReport(report)
	if writeError != nil {
		service.fail(currentState, writeError)
		return Report{}, writeError
	}
	service.logger.Info(artifactsWrittenMessageConstant, zap.Strings("artifact_paths", artifactPaths))

	service.transition(currentState, RunStateDone)
	return report, nil
}

// buildFilter constructs the entry date filter matching the run window.
func (service *Service) buildFilter(options CommandOptions) notion.QueryFilter {
	startDate := options.StartDay.Format(civilDateLayoutConstant)
	if options.Kind == RunKindDaily {
		return notion.DateEqualsFilter(PropertyEntryDate, startDate)
	}
	return notion.DateBetweenFilter(PropertyEntryDate, startDate, options.EndDay.Format(civilDateLayoutConstant))
}

// summarizeSessions fills the session rows, counters, and weekly day
// summaries of the report.
func (service *Service) summarizeSessions(report *Report, options CommandOptions, sessionRecords []rules.SessionRecord) {
	report.SessionCount = len(sessionRecords)

	daySummaryIndexes := make(map[string]int)
	if options.Kind == RunKindWeekly {
		for day := options.StartDay; !day.After(options.EndDay); day = day.AddDate(0, 0, 1) {
			dayKey := day.Format(civilDateLayoutConstant)
			daySummaryIndexes[dayKey] = len(report.DaySummaries)
			report.DaySummaries = append(report.DaySummaries, DaySummary{Date: dayKey})
		}
	}

	for _, sessionRecord := range sessionRecords {
		overLimit := sessionRecord.Completed() && sessionRecord.Minutes() > rules.OverMinuteLimitDefault
		if !sessionRecord.Completed() {
			report.OpenSessionCount++
		}
		if overLimit {
			report.OverLimitCount++
		}
		if options.Kind == RunKindDaily {
			report.Sessions = append(report.Sessions, sessionRowFromRecord(sessionRecord))
			continue
		}
		summaryIndex, dayInWindow := daySummaryIndexes[sessionRecord.EntryTime.Format(civilDateLayoutConstant)]
		if !dayInWindow {
			continue
		}
		daySummary := &report.DaySummaries[summaryIndex]
		daySummary.Sessions++
		if sessionRecord.Completed() {
			daySummary.Completed++
			daySummary.TotalMinutes += sessionRecord.Minutes()
		} else {
			daySummary.Open++
		}
		if overLimit {
			daySummary.OverLimit++
		}
	}
}

// resolvePendingDefault applies one set-default finding to the remote
// record under optimistic concurrency. Failures never abort the run;
// the finding is downgraded to manual review instead.
func (service *Service) resolvePendingDefault(executionContext context.Context, options CommandOptions, evaluatedRule rules.Rule, sessionRecord rules.SessionRecord, finding *Finding, fetchedPage notion.Page) {
	if !options.ApplyChanges || options.Kind == RunKindWeekly {
		finding.Action = FindingActionManualReview
		finding.Detail = fmt.Sprintf(suggestedDetailTemplate, finding.Detail, evaluatedRule.DefaultValue)
		return
	}

	propertyChanges, fieldMapped := propertyChangesForField(evaluatedRule.Field, evaluatedRule.DefaultValue)
	if !fieldMapped {
		finding.Action = FindingActionManualReview
		finding.Detail = fmt.Sprintf(unmappedFieldDetailTemplate, finding.Detail, evaluatedRule.Field)
		return
	}

	if options.DryRun {
		finding.Detail = fmt.Sprintf(plannedDetailTemplate, finding.Detail, evaluatedRule.DefaultValue)
		return
	}

	currentPage, refreshError := service.recordSource.GetPage(executionContext, sessionRecord.Identifier)
	if refreshError != nil {
		service.downgradeFinding(finding, fmt.Sprintf(applyFailureDetailTemplate, refreshError))
		return
	}
	if !currentPage.LastEditedTime.Equal(fetchedPage.LastEditedTime) {
		service.downgradeFinding(finding, concurrentEditDetailConstant)
		return
	}

	updateError := service.recordSource.UpdatePageProperties(executionContext, sessionRecord.Identifier, propertyChanges)
	if updateError != nil {
		service.downgradeFinding(finding, fmt.Sprintf(applyFailureDetailTemplate, updateError))
		return
	}

	finding.Detail = fmt.Sprintf(appliedDetailTemplate, finding.Detail, evaluatedRule.DefaultValue)
	service.logger.Info(defaultAppliedMessageConstant,
		zap.String("record_identifier", sessionRecord.Identifier),
		zap.String("rule_name", evaluatedRule.Name))
}

// downgradeFinding converts a set-default finding into a manual review
// finding with the given detail suffix.
func (service *Service) downgradeFinding(finding *Finding, detailSuffix string) {
	finding.Action = FindingActionManualReview
	finding.Detail = finding.Detail + "; " + detailSuffix
	service.logger.Warn(applySkippedMessageConstant,
		zap.String("record_identifier", finding.RecordIdentifier),
		zap.String("rule_name", finding.RuleName))
}

// transition logs a state change and returns the new state.
func (service *Service) transition(fromState RunState, toState RunState) RunState {
	service.logger.Debug(stateTransitionMessageConstant,
		zap.String("from_state", string(fromState)),
		zap.String("to_state", string(toState)))
	return toState
}

// fail logs the transition into the failed terminal state.
func (service *Service) fail(fromState RunState, causeError error) {
	service.transition(fromState, RunStateFailed)
	service.logger.Error(runFailedMessageConstant, zap.Error(causeError))
}
