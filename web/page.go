package web

import (
	"embed"
	"html/template"
	"io"

	"mmtips-service/services"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// pageView is the data handed to templates/index.html.
type pageView struct {
	Title   string
	Columns []string
	Rows    []services.DailyResultRow
	Since   string
	Chart   template.HTML
}

func newPageView(title string, page *services.Page) pageView {
	view := pageView{
		Title:   title,
		Columns: services.ResultColumns,
		Rows:    page.Rows,
		Chart:   LineChart(900, 420, SeriesFromHistory(page.History)),
	}
	if len(page.History) > 0 {
		view.Since = page.History[0].ExecutionDate.Format("02/01/2006")
	}
	return view
}

// RenderPage writes the dashboard HTML for page.
func RenderPage(w io.Writer, title string, page *services.Page) error {
	return pageTemplate.Execute(w, newPageView(title, page))
}
