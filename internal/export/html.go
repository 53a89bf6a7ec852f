package export

import (
	"bytes"
	"fmt"
	"strconv"

	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"

	"github.com/techlabops/labaudit/internal/audit"
)

const (
	dashboardStyleConstant = `body{font-family:sans-serif;margin:2rem;color:#222}
table{border-collapse:collapse;margin-top:1rem}
th,td{border:1px solid #ccc;padding:0.4rem 0.8rem;text-align:left}
th{background:#f2f2f2}
.summary{color:#555}
.bar{display:inline-block;height:0.8rem;background:#4a90d9}`
	dailyTitleTemplateConstant    = "Daily Audit %s"
	weeklyTitleTemplateConstant   = "Weekly Audit %s to %s"
	summaryLineTemplateConstant   = "Sessions: %d | Open sessions: %d | Over 30 min: %d"
	barWidthStyleTemplateConstant = "width:%dpx"
	barPixelsPerSessionConstant   = 18
)

// renderDailyDashboard renders the daily HTML dashboard listing every
// audited session.
func renderDailyDashboard(report audit.Report) []byte {
	tableRows := make([]gomponents.Node, 0, len(report.Sessions))
	for _, sessionRow := range report.Sessions {
		tableRows = append(tableRows, html.Tr(
			html.Td(gomponents.Text(sessionRow.FirstName)),
			html.Td(gomponents.Text(sessionRow.LastName)),
			html.Td(gomponents.Text(sessionRow.Console)),
			html.Td(gomponents.Text(sessionRow.TimeIn)),
			html.Td(gomponents.Text(sessionRow.TimeOut)),
			html.Td(gomponents.Text(sessionRow.Minutes)),
		))
	}

	pageTitle := fmt.Sprintf(dailyTitleTemplateConstant, report.StartDate)
	return renderPage(pageTitle,
		html.P(html.Class("summary"), gomponents.Text(fmt.Sprintf(summaryLineTemplateConstant, report.SessionCount, report.OpenSessionCount, report.OverLimitCount))),
		html.Table(
			html.THead(html.Tr(headerCells(dailyCSVHeader)...)),
			html.TBody(tableRows...),
		),
	)
}

// renderWeeklyDashboard renders the weekly HTML dashboard with one row
// per day and a proportional session bar.
func renderWeeklyDashboard(report audit.Report) []byte {
	tableRows := make([]gomponents.Node, 0, len(report.DaySummaries))
	for _, daySummary := range report.DaySummaries {
		tableRows = append(tableRows, html.Tr(
			html.Td(gomponents.Text(daySummary.Date)),
			html.Td(gomponents.Text(strconv.Itoa(daySummary.Sessions))),
			html.Td(gomponents.Text(strconv.Itoa(daySummary.Completed))),
			html.Td(gomponents.Text(strconv.Itoa(daySummary.Open))),
			html.Td(gomponents.Text(strconv.Itoa(daySummary.OverLimit))),
			html.Td(gomponents.Text(strconv.Itoa(daySummary.TotalMinutes))),
			html.Td(html.Span(
				html.Class("bar"),
				html.Style(fmt.Sprintf(barWidthStyleTemplateConstant, daySummary.Sessions*barPixelsPerSessionConstant)),
			)),
		))
	}

	pageTitle := fmt.Sprintf(weeklyTitleTemplateConstant, report.StartDate, report.EndDate)
	return renderPage(pageTitle,
		html.P(html.Class("summary"), gomponents.Text(fmt.Sprintf(summaryLineTemplateConstant, report.SessionCount, report.OpenSessionCount, report.OverLimitCount))),
		html.Table(
			html.THead(html.Tr(append(headerCells(weeklyCSVHeader), html.Th(gomponents.Text("Load")))...)),
			html.TBody(tableRows...),
		),
	)
}

func renderPage(pageTitle string, body ...gomponents.Node) []byte {
	bodyNodes := append([]gomponents.Node{html.H1(gomponents.Text(pageTitle))}, body...)
	page := html.HTML(
		html.Lang("en"),
		html.Head(
			html.Meta(html.Charset("utf-8")),
			html.TitleEl(gomponents.Text(pageTitle)),
			html.StyleEl(gomponents.Raw(dashboardStyleConstant)),
		),
		html.Body(bodyNodes...),
	)

	var pageBuffer bytes.Buffer
	// Rendering into a memory buffer cannot fail.
	_ = page.Render(&pageBuffer)
	return pageBuffer.Bytes()
}

func headerCells(headerValues []string) []gomponents.Node {
	cells := make([]gomponents.Node, 0, len(headerValues))
	for _, headerValue := range headerValues {
		cells = append(cells, html.Th(gomponents.Text(headerValue)))
	}
	return cells
}
