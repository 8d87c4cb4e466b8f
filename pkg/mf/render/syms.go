package render

import (
	"io"
	"strings"

	"github.com/komsit37/mf/pkg/mf/types"
)

// symsRenderer writes the ranked tickers on one comma-separated line, in
// rank order, ready to feed back into --match.
type symsRenderer struct{}

func NewSymsRenderer() Renderer { return symsRenderer{} }

func (symsRenderer) Render(w io.Writer, rep *types.Report, _ RenderOptions) error {
	var b strings.Builder
	for _, r := range rep.Results {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(r.Record.Ticker)
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}
