package ports

import (
	"io"

	"qcalab/domain/qca"
)

// ReportRenderer writes analysis results in one output format
type ReportRenderer interface {
	Format() string
	ContentType() string
	Render(w io.Writer, results *qca.Results) error
}

// RendererLookup resolves a renderer by output format name
type RendererLookup func(format string) (ReportRenderer, error)
