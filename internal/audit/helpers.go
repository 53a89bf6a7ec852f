package audit

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/techlabops/labaudit/internal/notion"
	"github.com/techlabops/labaudit/internal/rules"
)

// Property names of the lab session database schema.
const (
	PropertyFirstName = "FIRST NAME"
	PropertyLastName  = "LAST NAME"
	PropertyConsole   = "CONSOLE #"
	PropertyEntryDate = "DATE OF ENTRY"
	PropertyExitDate  = "DATE OF EXIT"
)

const (
	civilDateLayoutConstant     = "2006-01-02"
	clockTimeLayoutConstant     = "3:04 PM"
	homeDirectoryPrefixConstant = "~"
	openSessionDisplayConstant  = ""
)

// parseRecordTimestamp parses a date property start value. Notion emits
// either a full RFC 3339 timestamp or a bare calendar date.
func parseRecordTimestamp(rawValue string, location *time.Location) (time.Time, bool) {
	trimmedValue := strings.TrimSpace(rawValue)
	if len(trimmedValue) == 0 {
		return time.Time{}, false
	}
	parsedTimestamp, parseError := time.Parse(time.RFC3339, trimmedValue)
	if parseError == nil {
		return parsedTimestamp.In(location), true
	}
	parsedDate, dateParseError := time.ParseInLocation(civilDateLayoutConstant, trimmedValue, location)
	if dateParseError == nil {
		return parsedDate, true
	}
	return time.Time{}, false
}

// sessionFromPage extracts a session record from a database page. The
// second return value is false when the page carries no entry time and
// should be excluded from the audit.
func sessionFromPage(page notion.Page, location *time.Location) (rules.SessionRecord, bool) {
	entryTime, entryPresent := parseRecordTimestamp(notion.DateStart(page.Properties, PropertyEntryDate), location)
	if !entryPresent {
		return rules.SessionRecord{}, false
	}
	sessionRecord := rules.SessionRecord{
		Identifier: page.Identifier,
		FirstName:  notion.AnyText(page.Properties, PropertyFirstName),
		LastName:   notion.AnyText(page.Properties, PropertyLastName),
		Console:    notion.ConsoleValue(page.Properties, PropertyConsole),
		EntryTime:  entryTime,
	}
	exitTime, exitPresent := parseRecordTimestamp(notion.DateStart(page.Properties, PropertyExitDate), location)
	if exitPresent {
		sessionRecord.ExitTime = exitTime
	}
	return sessionRecord, true
}

// sessionRowFromRecord renders a session record for export artifacts.
func sessionRowFromRecord(sessionRecord rules.SessionRecord) SessionRow {
	sessionRow := SessionRow{
		FirstName: sessionRecord.FirstName,
		LastName:  sessionRecord.LastName,
		Console:   sessionRecord.Console,
		TimeIn:    sessionRecord.EntryTime.Format(clockTimeLayoutConstant),
		TimeOut:   openSessionDisplayConstant,
		Minutes:   openSessionDisplayConstant,
	}
	if sessionRecord.Completed() {
		sessionRow.TimeOut = sessionRecord.ExitTime.Format(clockTimeLayoutConstant)
		sessionRow.Minutes = strconv.Itoa(sessionRecord.Minutes())
	}
	return sessionRow
}

// propertyChangesForField builds the remote property update applying a
// rule default to the given field.
func propertyChangesForField(fieldName rules.FieldName, defaultValue string) (notion.PropertyChanges, bool) {
	switch fieldName {
	case rules.FieldFirstName:
		return notion.PropertyChanges{PropertyFirstName: notion.NewTitleProperty(defaultValue)}, true
	case rules.FieldLastName:
		return notion.PropertyChanges{PropertyLastName: notion.NewRichTextProperty(defaultValue)}, true
	case rules.FieldConsole:
		return notion.PropertyChanges{PropertyConsole: notion.NewSelectProperty(defaultValue)}, true
	default:
		return nil, false
	}
}

// mondayOfWeek returns the Monday of the week containing the reference
// day, at midnight in the reference location.
func mondayOfWeek(referenceDay time.Time) time.Time {
	dayOffset := (int(referenceDay.Weekday()) + 6) % 7
	truncatedDay := time.Date(referenceDay.Year(), referenceDay.Month(), referenceDay.Day(), 0, 0, 0, 0, referenceDay.Location())
	return truncatedDay.AddDate(0, 0, -dayOffset)
}

// expandHomePath resolves a leading tilde against the user home
// directory.
func expandHomePath(rawPath string) string {
	if rawPath != homeDirectoryPrefixConstant && !strings.HasPrefix(rawPath, homeDirectoryPrefixConstant+string(os.PathSeparator)) {
		return rawPath
	}
	homeDirectory, homeError := os.UserHomeDir()
	if homeError != nil {
		return rawPath
	}
	return filepath.Join(homeDirectory, strings.TrimPrefix(rawPath, homeDirectoryPrefixConstant))
}
