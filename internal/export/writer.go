package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/techlabops/labaudit/internal/audit"
)

const (
	reportFileNameTemplateConstant    = "%s.report"
	dailyCSVNameTemplateConstant      = "daily_%s.csv"
	dailyHTMLNameTemplateConstant     = "daily_%s_dashboard.html"
	weeklyCSVNameTemplateConstant     = "weekly_%s_to_%s.csv"
	weeklyHTMLNameTemplateConstant    = "weekly_%s_to_%s_dashboard.html"
	temporaryFilePatternConstant      = ".labaudit-*.tmp"
	exportDirectoryPermissions        = 0o755
	exportFilePermissions             = 0o644
	mkdirOperationConstant            = "mkdir"
	createOperationConstant           = "create"
	writeOperationConstant            = "write"
	closeOperationConstant            = "close"
	renameOperationConstant           = "rename"
	reportHeaderTemplateConstant      = "# labaudit %s report\n"
	reportWindowTemplateConstant      = "window: %s..%s\n"
	reportSessionsTemplateConstant    = "sessions: %d\n"
	reportOpenTemplateConstant        = "open-sessions: %d\n"
	reportOverLimitTemplateConstant   = "over-limit: %d\n"
	reportFindingsTemplateConstant    = "findings: %d\n"
	reportGeneratedTemplateConstant   = "generated-at: %s\n"
	reportSeparatorConstant           = "---\n"
	reportFindingLineTemplateConstant = "%s\t%s\t%s\t%s\n"
)

var dailyCSVHeader = []string{"First Name", "Last Name", "Console #", "Time In", "Time Out", "Minutes"}

var weeklyCSVHeader = []string{"Date", "Sessions", "Completed", "Open", "Over 30 min", "Total Minutes"}

// Writer persists report artifacts beneath an export root directory.
type Writer struct {
	exportRoot string
}

// NewWriter constructs a Writer rooted at exportRoot.
func NewWriter(exportRoot string) *Writer {
	return &Writer{exportRoot: strings.TrimSpace(exportRoot)}
}

// WriteReport renders all artifacts of the report and returns the
// paths it wrote. Artifacts land under {export-root}/{run-kind}/.
func (writer *Writer) WriteReport(report audit.Report) ([]string, error) {
	kindDirectory := filepath.Join(writer.exportRoot, string(report.Kind))
	if mkdirError := os.MkdirAll(kindDirectory, exportDirectoryPermissions); mkdirError != nil {
		return nil, IOError{Operation: mkdirOperationConstant, Path: kindDirectory, Cause: mkdirError}
	}

	artifacts := []artifact{
		{fileName: fmt.Sprintf(reportFileNameTemplateConstant, report.StartDate), contents: renderFindingsReport(report)},
	}
	switch report.Kind {
	case audit.RunKindWeekly:
		weeklyCSV, csvError := renderWeeklyCSV(report)
		if csvError != nil {
			return nil, csvError
		}
		artifacts = append(artifacts,
			artifact{fileName: fmt.Sprintf(weeklyCSVNameTemplateConstant, report.StartDate, report.EndDate), contents: weeklyCSV},
			artifact{fileName: fmt.Sprintf(weeklyHTMLNameTemplateConstant, report.StartDate, report.EndDate), contents: renderWeeklyDashboard(report)},
		)
	default:
		dailyCSV, csvError := renderDailyCSV(report)
		if csvError != nil {
			return nil, csvError
		}
		artifacts = append(artifacts,
			artifact{fileName: fmt.Sprintf(dailyCSVNameTemplateConstant, report.StartDate), contents: dailyCSV},
			artifact{fileName: fmt.Sprintf(dailyHTMLNameTemplateConstant, report.StartDate), contents: renderDailyDashboard(report)},
		)
	}

	writtenPaths := make([]string, 0, len(artifacts))
	for _, pendingArtifact := range artifacts {
		artifactPath := filepath.Join(kindDirectory, pendingArtifact.fileName)
		if writeError := writeFileAtomically(artifactPath, pendingArtifact.contents); writeError != nil {
			return nil, writeError
		}
		writtenPaths = append(writtenPaths, artifactPath)
	}
	return writtenPaths, nil
}

type artifact struct {
	fileName string
	contents []byte
}

// writeFileAtomically writes contents to a temporary file in the target
// directory and renames it over the final path.
func writeFileAtomically(targetPath string, contents []byte) error {
	targetDirectory := filepath.Dir(targetPath)
	temporaryFile, createError := os.CreateTemp(targetDirectory, temporaryFilePatternConstant)
	if createError != nil {
		return IOError{Operation: createOperationConstant, Path: targetPath, Cause: createError}
	}
	temporaryPath := temporaryFile.Name()

	if _, writeError := temporaryFile.Write(contents); writeError != nil {
		temporaryFile.Close()
		os.Remove(temporaryPath)
		return IOError{Operation: writeOperationConstant, Path: targetPath, Cause: writeError}
	}
	if chmodError := temporaryFile.Chmod(exportFilePermissions); chmodError != nil {
		temporaryFile.Close()
		os.Remove(temporaryPath)
		return IOError{Operation: writeOperationConstant, Path: targetPath, Cause: chmodError}
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		os.Remove(temporaryPath)
		return IOError{Operation: closeOperationConstant, Path: targetPath, Cause: closeError}
	}
	if renameError := os.Rename(temporaryPath, targetPath); renameError != nil {
		os.Remove(temporaryPath)
		return IOError{Operation: renameOperationConstant, Path: targetPath, Cause: renameError}
	}
	return nil
}

// renderFindingsReport renders the canonical findings artifact. The
// output is deterministic for a given report except the generated-at
// line.
func renderFindingsReport(report audit.Report) []byte {
	var reportBuffer bytes.Buffer
	fmt.Fprintf(&reportBuffer, reportHeaderTemplateConstant, report.Kind)
	fmt.Fprintf(&reportBuffer, reportWindowTemplateConstant, report.StartDate, report.EndDate)
	fmt.Fprintf(&reportBuffer, reportSessionsTemplateConstant, report.SessionCount)
	fmt.Fprintf(&reportBuffer, reportOpenTemplateConstant, report.OpenSessionCount)
	fmt.Fprintf(&reportBuffer, reportOverLimitTemplateConstant, report.OverLimitCount)
	fmt.Fprintf(&reportBuffer, reportFindingsTemplateConstant, len(report.Findings))
	fmt.Fprintf(&reportBuffer, reportGeneratedTemplateConstant, report.GeneratedAt.UTC().Format(time.RFC3339))
	reportBuffer.WriteString(reportSeparatorConstant)
	for _, finding := range report.Findings {
		fmt.Fprintf(&reportBuffer, reportFindingLineTemplateConstant, finding.RecordIdentifier, finding.RuleName, finding.Action, finding.Detail)
	}
	return reportBuffer.Bytes()
}

func renderDailyCSV(report audit.Report) ([]byte, error) {
	rows := make([][]string, 0, len(report.Sessions)+1)
	rows = append(rows, dailyCSVHeader)
	for _, sessionRow := range report.Sessions {
		rows = append(rows, []string{sessionRow.FirstName, sessionRow.LastName, sessionRow.Console, sessionRow.TimeIn, sessionRow.TimeOut, sessionRow.Minutes})
	}
	return renderCSV(rows)
}

func renderWeeklyCSV(report audit.Report) ([]byte, error) {
	rows := make([][]string, 0, len(report.DaySummaries)+1)
	rows = append(rows, weeklyCSVHeader)
	for _, daySummary := range report.DaySummaries {
		rows = append(rows, []string{
			daySummary.Date,
			strconv.Itoa(daySummary.Sessions),
			strconv.Itoa(daySummary.Completed),
			strconv.Itoa(daySummary.Open),
			strconv.Itoa(daySummary.OverLimit),
			strconv.Itoa(daySummary.TotalMinutes),
		})
	}
	return renderCSV(rows)
}

func renderCSV(rows [][]string) ([]byte, error) {
	var csvBuffer bytes.Buffer
	csvWriter := csv.NewWriter(&csvBuffer)
	if writeError := csvWriter.WriteAll(rows); writeError != nil {
		return nil, writeError
	}
	csvWriter.Flush()
	if flushError := csvWriter.Error(); flushError != nil {
		return nil, flushError
	}
	return csvBuffer.Bytes(), nil
}
