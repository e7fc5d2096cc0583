package report

import (
	"bytes"
	"io"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"qcalab/domain/qca"
)

// HTMLRenderer converts the markdown report into a standalone HTML page
type HTMLRenderer struct {
	Title string
}

func (HTMLRenderer) Format() string      { return qca.OutputHTML }
func (HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }

func (h HTMLRenderer) Render(w io.Writer, results *qca.Results) error {
	var md bytes.Buffer
	if err := (MarkdownRenderer{}).Render(&md, results); err != nil {
		return err
	}

	title := h.Title
	if title == "" {
		title = "QCA Analysis Report"
	}
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	_, err := w.Write(markdown.ToHTML(md.Bytes(), p, renderer))
	return err
}
