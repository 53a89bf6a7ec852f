package audit

import (
	"context"

	"github.com/techlabops/labaudit/internal/notion"
)

// RecordSource retrieves and updates session records in the remote
// database.
type RecordSource interface {
	QueryDatabase(executionContext context.Context, databaseIdentifier string, filter notion.QueryFilter) ([]notion.Page, error)
	GetPage(executionContext context.Context, pageIdentifier string) (notion.Page, error)
	UpdatePageProperties(executionContext context.Context, pageIdentifier string, changes notion.PropertyChanges) error
}

// ReportWriter persists the artifacts of a completed run and returns
// the paths it wrote.
type ReportWriter interface {
	WriteReport(report Report) ([]string, error)
}
