package report

import (
	"qcalab/adapters/excel"
	"qcalab/domain/qca"
	"qcalab/ports"
)

// ForFormat returns the renderer for a configured output format
func ForFormat(format string) (ports.ReportRenderer, error) {
	switch format {
	case "", qca.OutputStandard:
		return JSONRenderer{Indent: true}, nil
	case qca.OutputMarkdown:
		return MarkdownRenderer{}, nil
	case qca.OutputHTML:
		return HTMLRenderer{}, nil
	case qca.OutputXLSX:
		return excel.NewWorkbookRenderer(), nil
	}
	return nil, qca.NewConfigurationError("output_format", "unknown format "+format)
}

var (
	_ ports.ReportRenderer = MarkdownRenderer{}
	_ ports.ReportRenderer = HTMLRenderer{}
	_ ports.ReportRenderer = JSONRenderer{}
)
