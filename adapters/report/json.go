package report

import (
	"encoding/json"
	"io"

	"qcalab/domain/qca"
)

// JSONRenderer writes the results object itself
type JSONRenderer struct {
	Indent bool
}

func (JSONRenderer) Format() string      { return qca.OutputStandard }
func (JSONRenderer) ContentType() string { return "application/json" }

func (j JSONRenderer) Render(w io.Writer, results *qca.Results) error {
	enc := json.NewEncoder(w)
	if j.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(results)
}
