// Package renderer turns completed runs into markdown reports. It only
// formats data prepared by the backtest package; it never computes metrics
// itself.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed *.md
var templates embed.FS

// ReportRenderOptions holds configuration for rendering a run report.
type ReportRenderOptions struct {
	SkipDays      bool // Do not render the day-by-day section.
	SkipPositions bool // Do not render the final positions section.
}

// RenderReport renders the Report struct to a markdown string.
func RenderReport(r *Report, opts ReportRenderOptions) string {
	partials := map[string]string{
		"report_title":   "report_title.md",
		"report_summary": "report_summary.md",
	}

	if r.HasBenchmark {
		partials["report_benchmark"] = "report_benchmark.md"
	} else {
		partials["report_benchmark"] = ""
	}
	if opts.SkipPositions {
		partials["report_positions"] = ""
	} else {
		partials["report_positions"] = "report_positions.md"
	}
	if opts.SkipDays {
		partials["report_days"] = ""
	} else {
		partials["report_days"] = "report_days.md"
	}

	return renderTemplate("report", "report.md", partials, r)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name is a valid case, resulting in an empty template.
		if file != "" {
			var readErr error
			content, readErr = fs.ReadFile(templates, file)
			if readErr != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, readErr)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
