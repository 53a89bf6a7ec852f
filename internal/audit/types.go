package audit

import "time"

// RunKind identifies which audit variant a run executes.
type RunKind string

const (
	// RunKindDaily audits the sessions of a single calendar day.
	RunKindDaily RunKind = "daily"
	// RunKindWeekly audits the sessions of a seven day window.
	RunKindWeekly RunKind = "weekly"
)

// RunState names a stage of the audit run lifecycle.
type RunState string

const (
	// RunStateIdle is the state before a run starts.
	RunStateIdle RunState = "idle"
	// RunStateFetching covers retrieval of session records.
	RunStateFetching RunState = "fetching"
	// RunStateEvaluating covers rule evaluation over fetched records.
	RunStateEvaluating RunState = "evaluating"
	// RunStateApplying covers corrective updates to the remote database.
	RunStateApplying RunState = "applying"
	// RunStateReporting covers export artifact generation.
	RunStateReporting RunState = "reporting"
	// RunStateDone is the terminal state of a successful run.
	RunStateDone RunState = "done"
	// RunStateFailed is the terminal state of an aborted run.
	RunStateFailed RunState = "failed"
)

// FindingAction names the action a finding carries in the report.
type FindingAction string

const (
	// FindingActionManualReview marks a finding for operator follow-up.
	FindingActionManualReview FindingAction = "manual-review"
	// FindingActionSetDefault marks a finding whose rule configures an
	// automatic default value.
	FindingActionSetDefault FindingAction = "set-default"
)

// Finding is one rule violation recorded against a session record.
type Finding struct {
	RecordIdentifier string
	RuleName         string
	Action           FindingAction
	Detail           string
}

// SessionRow is one audited session rendered for export artifacts.
type SessionRow struct {
	FirstName string
	LastName  string
	Console   string
	TimeIn    string
	TimeOut   string
	Minutes   string
}

// DaySummary aggregates the sessions of one calendar day inside a
// weekly run.
type DaySummary struct {
	Date         string
	Sessions     int
	Completed    int
	Open         int
	OverLimit    int
	TotalMinutes int
}

// Report is the complete outcome of one audit run.
type Report struct {
	Kind             RunKind
	StartDate        string
	EndDate          string
	GeneratedAt      time.Time
	Sessions         []SessionRow
	DaySummaries     []DaySummary
	Findings         []Finding
	SessionCount     int
	OpenSessionCount int
	OverLimitCount   int
}

// Clock abstracts wall clock access for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the operating system clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
