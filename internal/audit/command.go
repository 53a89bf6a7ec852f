package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/techlabops/labaudit/internal/notion"
	"github.com/techlabops/labaudit/internal/rules"
	"github.com/techlabops/labaudit/internal/secrets"
	"github.com/techlabops/labaudit/internal/utils"
)

const (
	dailyCommandUseConstant               = "daily"
	dailyCommandShortDescriptionConstant  = "Audit the lab sessions of one calendar day"
	dailyCommandLongDescriptionConstant   = "daily fetches the session records of a single day, evaluates the daily rule set, optionally applies configured defaults, and writes the daily report artifacts."
	weeklyCommandUseConstant              = "weekly"
	weeklyCommandShortDescriptionConstant = "Audit the lab sessions of a seven day window"
	weeklyCommandLongDescriptionConstant  = "weekly fetches the session records of a week, evaluates the weekly rule set, and writes the weekly report artifacts. Weekly runs never modify records."
	commandExecutionErrorTemplateConstant = "%s audit failed: %w"
	unexpectedArgumentsTemplateConstant   = "%s does not accept positional arguments"
	flagDateNameConstant                  = "date"
	flagDateDescriptionConstant           = "Calendar day to audit (YYYY-MM-DD, defaults to today)"
	flagWeekStartNameConstant             = "week-start"
	flagWeekStartDescriptionConstant      = "First day of the audited week (YYYY-MM-DD, defaults to Monday of the current week)"
	flagWeekEndNameConstant               = "week-end"
	flagWeekEndDescriptionConstant        = "Last day of the audited week (YYYY-MM-DD, defaults to six days after the start)"
	flagApplyNameConstant                 = "apply"
	flagApplyDescriptionConstant          = "Apply configured default values to violating records"
	flagDryRunNameConstant                = "dry-run"
	flagDryRunDescriptionConstant         = "Report corrective updates without writing them"
	flagRulesNameConstant                 = "rules"
	flagRulesDescriptionConstant          = "Path to a YAML rule set file overriding the builtin rules"
	runIdentifierFieldConstant            = "run_identifier"
	runKindFieldConstant                  = "run_kind"
	runStartedMessageConstant             = "audit run started"
	runCompletedMessageConstant           = "audit run completed"
	invalidDateTemplateConstant           = "invalid %s value %q: expected YYYY-MM-DD"
	windowOrderMessageConstant            = "week-end precedes week-start"
	missingWriterFactoryMessageConstant   = "report writer factory not configured"
	weekLengthDays                        = 7
)

var errMissingWriterFactory = errors.New(missingWriterFactoryMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the effective audit configuration.
type ConfigurationProvider func() CommandConfiguration

// RecordSourceFactory builds a record source from resolved credentials.
type RecordSourceFactory func(credentials secrets.Credentials) RecordSource

// ReportWriterFactory builds a report writer rooted at the export
// directory.
type ReportWriterFactory func(exportRoot string) ReportWriter

// CommandBuilder assembles the Cobra commands for audit runs.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	RecordSourceFactory   RecordSourceFactory
	ReportWriterFactory   ReportWriterFactory
	Clock                 Clock
	contextAccessor       utils.CommandContextAccessor
}

// BuildDaily constructs the daily audit command.
func (builder *CommandBuilder) BuildDaily() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   dailyCommandUseConstant,
		Short: dailyCommandShortDescriptionConstant,
		Long:  dailyCommandLongDescriptionConstant,
	}

	command.Flags().String(flagDateNameConstant, "", flagDateDescriptionConstant)
	command.Flags().Bool(flagApplyNameConstant, false, flagApplyDescriptionConstant)
	command.Flags().Bool(flagDryRunNameConstant, false, flagDryRunDescriptionConstant)
	command.Flags().String(flagRulesNameConstant, "", flagRulesDescriptionConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		if len(arguments) > 0 {
			return fmt.Errorf(unexpectedArgumentsTemplateConstant, dailyCommandUseConstant)
		}
		return builder.runDaily(command)
	}

	return command, nil
}

// BuildWeekly constructs the weekly audit command.
func (builder *CommandBuilder) BuildWeekly() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   weeklyCommandUseConstant,
		Short: weeklyCommandShortDescriptionConstant,
		Long:  weeklyCommandLongDescriptionConstant,
	}

	command.Flags().String(flagWeekStartNameConstant, "", flagWeekStartDescriptionConstant)
	command.Flags().String(flagWeekEndNameConstant, "", flagWeekEndDescriptionConstant)
	command.Flags().String(flagRulesNameConstant, "", flagRulesDescriptionConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		if len(arguments) > 0 {
			return fmt.Errorf(unexpectedArgumentsTemplateConstant, weeklyCommandUseConstant)
		}
		return builder.runWeekly(command)
	}

	return command, nil
}

// Run executes an audit of the given kind with default options. The
// scheduler triggers runs through this entry point.
func (builder *CommandBuilder) Run(executionContext context.Context, kind RunKind) error {
	configuration := builder.resolveConfiguration()
	location, locationError := builder.resolveLocation(configuration)
	if locationError != nil {
		return locationError
	}

	options := CommandOptions{
		Kind:         kind,
		ApplyChanges: configuration.ApplyChanges,
	}
	referenceDay := builder.resolveClock().Now().In(location)
	if kind == RunKindDaily {
		options.StartDay = time.Date(referenceDay.Year(), referenceDay.Month(), referenceDay.Day(), 0, 0, 0, 0, location)
		options.EndDay = options.StartDay
	} else {
		options.StartDay = mondayOfWeek(referenceDay)
		options.EndDay = options.StartDay.AddDate(0, 0, weekLengthDays-1)
	}

	return builder.execute(executionContext, configuration, location, options, "")
}

func (builder *CommandBuilder) runDaily(command *cobra.Command) error {
	configuration := builder.resolveConfiguration()
	location, locationError := builder.resolveLocation(configuration)
	if locationError != nil {
		return locationError
	}

	auditDay := builder.resolveClock().Now().In(location)
	dateValue, _ := command.Flags().GetString(flagDateNameConstant)
	if len(strings.TrimSpace(dateValue)) > 0 {
		parsedDay, parseError := parseCivilDate(flagDateNameConstant, dateValue, location)
		if parseError != nil {
			return parseError
		}
		auditDay = parsedDay
	}

	applyValue, _ := command.Flags().GetBool(flagApplyNameConstant)
	dryRunValue, _ := command.Flags().GetBool(flagDryRunNameConstant)
	rulesPathValue, _ := command.Flags().GetString(flagRulesNameConstant)

	startDay := time.Date(auditDay.Year(), auditDay.Month(), auditDay.Day(), 0, 0, 0, 0, location)
	options := CommandOptions{
		Kind:         RunKindDaily,
		StartDay:     startDay,
		EndDay:       startDay,
		ApplyChanges: applyValue || configuration.ApplyChanges,
		DryRun:       dryRunValue,
	}

	return builder.execute(command.Context(), configuration, location, options, rulesPathValue)
}

func (builder *CommandBuilder) runWeekly(command *cobra.Command) error {
	configuration := builder.resolveConfiguration()
	location, locationError := builder.resolveLocation(configuration)
	if locationError != nil {
		return locationError
	}

	weekStart := mondayOfWeek(builder.resolveClock().Now().In(location))
	weekStartValue, _ := command.Flags().GetString(flagWeekStartNameConstant)
	if len(strings.TrimSpace(weekStartValue)) > 0 {
		parsedStart, parseError := parseCivilDate(flagWeekStartNameConstant, weekStartValue, location)
		if parseError != nil {
			return parseError
		}
		weekStart = parsedStart
	}

	weekEnd := weekStart.AddDate(0, 0, weekLengthDays-1)
	weekEndValue, _ := command.Flags().GetString(flagWeekEndNameConstant)
	if len(strings.TrimSpace(weekEndValue)) > 0 {
		parsedEnd, parseError := parseCivilDate(flagWeekEndNameConstant, weekEndValue, location)
		if parseError != nil {
			return parseError
		}
		weekEnd = parsedEnd
	}
	if weekEnd.Before(weekStart) {
		return errors.New(windowOrderMessageConstant)
	}

	rulesPathValue, _ := command.Flags().GetString(flagRulesNameConstant)

	options := CommandOptions{
		Kind:     RunKindWeekly,
		StartDay: weekStart,
		EndDay:   weekEnd,
	}

	return builder.execute(command.Context(), configuration, location, options, rulesPathValue)
}

func (builder *CommandBuilder) execute(executionContext context.Context, configuration CommandConfiguration, location *time.Location, options CommandOptions, rulesPathOverride string) error {
	runRules, rulesError := builder.resolveRules(configuration, options.Kind, rulesPathOverride)
	if rulesError != nil {
		return rulesError
	}
	options.Rules = runRules

	credentials, credentialsError := secrets.NewStore(expandHomePath(configuration.SecretFile)).Load()
	if credentialsError != nil {
		return credentialsError
	}
	options.DatabaseIdentifier = credentials.DatabaseIdentifier

	if builder.ReportWriterFactory == nil {
		return errMissingWriterFactory
	}

	runIdentifier := uuid.NewString()
	if executionContext == nil {
		executionContext = context.Background()
	}
	executionContext = builder.contextAccessor.WithRunIdentifier(executionContext, runIdentifier)

	logger := builder.resolveLogger().With(
		zap.String(runIdentifierFieldConstant, runIdentifier),
		zap.String(runKindFieldConstant, string(options.Kind)))
	logger.Info(runStartedMessageConstant,
		zap.String("start_date", options.StartDay.Format(civilDateLayoutConstant)),
		zap.String("end_date", options.EndDay.Format(civilDateLayoutConstant)),
		zap.Bool("apply_changes", options.ApplyChanges),
		zap.Bool("dry_run", options.DryRun))

	recordSource := builder.resolveRecordSource(credentials)
	reportWriter := builder.ReportWriterFactory(expandHomePath(configuration.ExportRoot))
	service := NewService(recordSource, reportWriter, logger, builder.resolveClock(), location)

	report, runError := service.Run(executionContext, options)
	if runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, string(options.Kind), runError)
	}

	logger.Info(runCompletedMessageConstant,
		zap.Int("session_count", report.SessionCount),
		zap.Int("finding_count", len(report.Findings)))
	return nil
}

func (builder *CommandBuilder) resolveRules(configuration CommandConfiguration, kind RunKind, rulesPathOverride string) ([]rules.Rule, error) {
	rulesPath := strings.TrimSpace(rulesPathOverride)
	if len(rulesPath) == 0 {
		rulesPath = configuration.RuleSetFile
	}

	ruleSets := rules.DefaultRuleSets()
	if len(rulesPath) > 0 {
		loadedRuleSets, loadError := rules.LoadRuleSets(expandHomePath(rulesPath))
		if loadError != nil {
			return nil, loadError
		}
		ruleSets = loadedRuleSets
	}

	if kind == RunKindDaily {
		return ruleSets.Daily, nil
	}
	return ruleSets.Weekly, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration().sanitize()
	}
	return builder.ConfigurationProvider().sanitize()
}

func (builder *CommandBuilder) resolveLocation(configuration CommandConfiguration) (*time.Location, error) {
	if len(configuration.Timezone) == 0 {
		return time.Local, nil
	}
	return time.LoadLocation(configuration.Timezone)
}

func (builder *CommandBuilder) resolveRecordSource(credentials secrets.Credentials) RecordSource {
	if builder.RecordSourceFactory != nil {
		return builder.RecordSourceFactory(credentials)
	}
	return notion.NewClient(credentials.Token, notion.DefaultClientConfiguration())
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveClock() Clock {
	if builder.Clock == nil {
		return SystemClock{}
	}
	return builder.Clock
}

func parseCivilDate(flagName string, rawValue string, location *time.Location) (time.Time, error) {
	parsedDay, parseError := time.ParseInLocation(civilDateLayoutConstant, strings.TrimSpace(rawValue), location)
	if parseError != nil {
		return time.Time{}, fmt.Errorf(invalidDateTemplateConstant, flagName, rawValue)
	}
	return parsedDay, nil
}
