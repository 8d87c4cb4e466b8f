package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/komsit37/mf/pkg/mf/columns"
	"github.com/komsit37/mf/pkg/mf/types"
)

type TableRenderer struct{}

func NewTableRenderer() *TableRenderer { return &TableRenderer{} }

func (r *TableRenderer) Render(w io.Writer, rep *types.Report, opts RenderOptions) error {
	cols := opts.Columns
	if len(cols) == 0 {
		cols = columns.Compute(nil, hasQuotes(rep.Results))
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleColoredDark)
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateColumns = false
	if !opts.Color {
		tw.SetStyle(table.StyleLight)
		tw.Style().Options.DrawBorder = false
		tw.Style().Options.SeparateColumns = false
	}
	if opts.Width > 0 {
		tw.SetAllowedRowLength(opts.Width)
	}

	hdr := make(table.Row, len(cols))
	for i, c := range cols {
		hdr[i] = columns.Header(c)
	}
	tw.AppendHeader(hdr)

	// Column configs: wrap text to MaxColWidth (default 40), no truncation
	maxWidth := opts.MaxColWidth
	if maxWidth <= 0 {
		maxWidth = 40
	}
	cfgs := make([]table.ColumnConfig, 0, len(cols))
	for i, c := range cols {
		cfg := table.ColumnConfig{Number: i + 1, WidthMax: maxWidth}
		if d, ok := columns.Registry[c]; ok && d.Numeric {
			cfg.Align = text.AlignRight
			cfg.AlignHeader = text.AlignRight
		}
		cfgs = append(cfgs, cfg)
	}
	tw.SetColumnConfigs(cfgs)

	for _, res := range rep.Results {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			val := columns.Value(c, res)
			// Colorize price and chg% by direction
			if opts.Color && res.Quote != nil && (c == "price" || c == "chg%") {
				if res.Quote.ChgRaw > 0 {
					val = text.Colors{text.FgGreen}.Sprintf("%s", val)
				} else if res.Quote.ChgRaw < 0 {
					val = text.Colors{text.FgRed}.Sprintf("%s", val)
				}
			}
			row[i] = val
		}
		tw.AppendRow(row)
	}
	tw.Render()

	if opts.Summary {
		line := rep.Summary()
		if opts.Color {
			line = text.Faint.Sprint(line)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func hasQuotes(results []types.RankedResult) bool {
	for _, r := range results {
		if r.Quote != nil {
			return true
		}
	}
	return false
}
