package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	invalidCronTemplateConstant     = "invalid cron expression %q for %s job: %w"
	schedulerStartedMessageConstant = "audit scheduler started"
	schedulerStoppedMessageConstant = "audit scheduler stopped"
	jobRegisteredMessageConstant    = "audit job registered"
	jobCompletedMessageConstant     = "scheduled audit completed"
	jobFailedMessageConstant        = "scheduled audit failed"
	jobNameFieldConstant            = "job_name"
	cronExpressionFieldConstant     = "cron_expression"
)

// JobRunner executes one scheduled audit.
type JobRunner func(executionContext context.Context) error

// Scheduler triggers registered audit jobs on cron expressions.
type Scheduler struct {
	cronRunner *cron.Cron
	logger     *zap.Logger
	jobCount   int
}

// NewScheduler constructs a Scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cronRunner: cron.New(),
		logger:     logger,
	}
}

// Register adds a job under the given cron expression.
func (scheduler *Scheduler) Register(jobName string, cronExpression string, runJob JobRunner) error {
	_, addError := scheduler.cronRunner.AddFunc(cronExpression, func() {
		scheduler.runJob(jobName, runJob)
	})
	if addError != nil {
		return fmt.Errorf(invalidCronTemplateConstant, cronExpression, jobName, addError)
	}
	scheduler.jobCount++
	scheduler.logger.Info(jobRegisteredMessageConstant,
		zap.String(jobNameFieldConstant, jobName),
		zap.String(cronExpressionFieldConstant, cronExpression))
	return nil
}

// JobCount reports how many jobs are registered.
func (scheduler *Scheduler) JobCount() int {
	return scheduler.jobCount
}

// Start begins triggering registered jobs.
func (scheduler *Scheduler) Start() {
	scheduler.cronRunner.Start()
	scheduler.logger.Info(schedulerStartedMessageConstant)
}

// Stop halts triggering and waits for running jobs to finish.
func (scheduler *Scheduler) Stop() {
	<-scheduler.cronRunner.Stop().Done()
	scheduler.logger.Info(schedulerStoppedMessageConstant)
}

// runJob executes one triggered job. Job failures never stop the
// scheduler.
func (scheduler *Scheduler) runJob(jobName string, runJob JobRunner) {
	jobError := runJob(context.Background())
	if jobError != nil {
		scheduler.logger.Warn(jobFailedMessageConstant,
			zap.String(jobNameFieldConstant, jobName),
			zap.Error(jobError))
		return
	}
	scheduler.logger.Info(jobCompletedMessageConstant, zap.String(jobNameFieldConstant, jobName))
}
