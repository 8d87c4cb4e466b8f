package render

import (
	"encoding/csv"
	"io"

	"github.com/komsit37/mf/pkg/mf/columns"
	"github.com/komsit37/mf/pkg/mf/types"
)

// CSVRenderer writes one header row of column keys and one row per result
// with machine-readable values.
type CSVRenderer struct{}

func NewCSVRenderer() *CSVRenderer { return &CSVRenderer{} }

func (r *CSVRenderer) Render(w io.Writer, rep *types.Report, opts RenderOptions) error {
	cols := opts.Columns
	if len(cols) == 0 {
		cols = columns.Sets["csv"]
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	rec := make([]string, len(cols))
	for _, res := range rep.Results {
		for i, c := range cols {
			rec[i] = columns.Raw(c, res)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
