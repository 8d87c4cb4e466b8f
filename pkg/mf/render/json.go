package render

import (
	"encoding/json"
	"io"
	"time"

	"github.com/komsit37/mf/pkg/mf/types"
)

// jsonModel is the output shape for JSONRenderer.
type jsonModel struct {
	ID         string               `json:"id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Universe   int                  `json:"universe"`
	Ranked     int                  `json:"ranked"`
	Summary    string               `json:"summary"`
	Results    []types.RankedResult `json:"results"`
	Failures   []types.Failure      `json:"failures,omitempty"`
}

type JSONRenderer struct{}

func NewJSONRenderer() *JSONRenderer { return &JSONRenderer{} }

func (r *JSONRenderer) Render(w io.Writer, rep *types.Report, opts RenderOptions) error {
	results := rep.Results
	if results == nil {
		results = []types.RankedResult{}
	}
	out := jsonModel{
		ID:         rep.ID,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Universe:   rep.Universe,
		Ranked:     rep.Ranked,
		Summary:    rep.Summary(),
		Results:    results,
		Failures:   rep.Failures,
	}
	enc := json.NewEncoder(w)
	if opts.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}
