package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/komsit37/mf/pkg/mf/types"
)

// Renderer renders a scan report to an output writer.
type Renderer interface {
	Render(w io.Writer, rep *types.Report, opts RenderOptions) error
}

type RenderOptions struct {
	Columns    []string
	Color      bool
	PrettyJSON bool
	// MaxColWidth wraps table cells; 0 means 40.
	MaxColWidth int
	// Width caps the table row length; 0 leaves it unbounded.
	Width int
	// Summary prints the failure summary under the table.
	Summary bool
}

// Formats lists the names accepted by New.
var Formats = []string{"table", "json", "csv", "syms"}

// New returns the renderer for a format name.
func New(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "table":
		return NewTableRenderer(), nil
	case "json":
		return NewJSONRenderer(), nil
	case "csv":
		return NewCSVRenderer(), nil
	case "syms":
		return NewSymsRenderer(), nil
	}
	return nil, fmt.Errorf("unknown format %q (want %s)", format, strings.Join(Formats, "|"))
}
