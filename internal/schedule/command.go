package schedule

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	commandUseConstant              = "schedule"
	commandShortDescriptionConstant = "Run daily and weekly audits on a cron schedule"
	commandLongDescriptionConstant  = "schedule keeps the process running and triggers the daily and weekly audits at the configured cron times. The scheduler stops cleanly on SIGINT or SIGTERM."
	dailyJobNameConstant            = "daily"
	weeklyJobNameConstant           = "weekly"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the effective scheduler configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the Cobra command for the audit scheduler.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	DailyJob              JobRunner
	WeeklyJob             JobRunner
}

// Build constructs the schedule command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	scheduler := NewScheduler(builder.resolveLogger())

	if registrationError := scheduler.Register(dailyJobNameConstant, configuration.DailyCron, builder.DailyJob); registrationError != nil {
		return registrationError
	}
	if registrationError := scheduler.Register(weeklyJobNameConstant, configuration.WeeklyCron, builder.WeeklyJob); registrationError != nil {
		return registrationError
	}

	signalContext, stopNotifications := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopNotifications()

	scheduler.Start()
	<-signalContext.Done()
	scheduler.Stop()
	return nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration().sanitize()
	}
	return builder.ConfigurationProvider().sanitize()
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
