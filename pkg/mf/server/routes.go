package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/komsit37/mf/pkg/mf/columns"
	"github.com/komsit37/mf/pkg/mf/pipeline"
	"github.com/komsit37/mf/pkg/mf/render"
	"github.com/komsit37/mf/pkg/mf/types"
)

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/scan", s.handleAPIScan)
	mux.HandleFunc("GET /export.csv", s.handleExport)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// handleIndex shows the form and the latest report; submitting the form
// (?run=1) runs a scan with the given options.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	opts, err := s.parseOptions(r.URL.Query())
	q := queryString(opts)
	data := pageData{
		Opts:      opts,
		ExportURL: template.URL("/export.csv?" + q),
		JSONURL:   template.URL("/api/scan?" + q),
	}
	if err != nil {
		data.Error = err.Error()
		w.WriteHeader(http.StatusBadRequest)
		s.page(w, data)
		return
	}

	var rep *types.Report
	if r.URL.Query().Get("run") != "" {
		rep, err = s.report(r.Context(), opts, false)
		if err != nil {
			data.Error = err.Error()
		}
	} else {
		rep = s.Latest()
	}
	if rep != nil {
		data.fill(rep)
	}
	s.page(w, data)
}

func (s *Server) handleAPIScan(w http.ResponseWriter, r *http.Request) {
	opts, err := s.parseOptions(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fresh := r.URL.Query().Get("fresh") != ""
	rep, err := s.report(r.Context(), opts, fresh)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	var buf bytes.Buffer
	if err := render.NewJSONRenderer().Render(&buf, rep, render.RenderOptions{PrettyJSON: true}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	opts, err := s.parseOptions(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rep, err := s.report(r.Context(), opts, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	var buf bytes.Buffer
	if err := render.NewCSVRenderer().Render(&buf, rep, render.RenderOptions{}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportName(rep.FinishedAt)))
	_, _ = w.Write(buf.Bytes())
}

// ExportName is the CSV file name for a scan finished at t.
func ExportName(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return "magic_formula_" + t.Format("20060102_1504") + ".csv"
}

// parseOptions overlays query parameters on the configured defaults.
func (s *Server) parseOptions(q url.Values) (pipeline.ExecuteOptions, error) {
	opts := s.cfg.Defaults
	if v := q.Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("invalid top %q", v)
		}
		opts.Top = n
	}
	if v := q.Get("min_mcap"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return opts, fmt.Errorf("invalid min_mcap %q", v)
		}
		opts.MinMarketCap = f
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("invalid limit %q", v)
		}
		opts.Limit = n
	}
	if v := q.Get("random"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			b = v == "on"
		}
		opts.Random = b
	}
	return opts, nil
}

func queryString(o pipeline.ExecuteOptions) string {
	q := url.Values{}
	q.Set("top", strconv.Itoa(o.Top))
	q.Set("min_mcap", strconv.FormatFloat(o.MinMarketCap, 'g', -1, 64))
	q.Set("limit", strconv.Itoa(o.Limit))
	if o.Random {
		q.Set("random", "true")
	}
	return q.Encode()
}

// pageData feeds the index template.
type pageData struct {
	Opts      pipeline.ExecuteOptions
	ExportURL template.URL
	JSONURL   template.URL
	Error     string
	Report    *types.Report
	Headers   []string
	Numeric   []bool
	Rows      [][]string
	Summary   string
}

func (d *pageData) fill(rep *types.Report) {
	cols := columns.Sets["default"]
	d.Report = rep
	d.Summary = rep.Summary()
	for _, c := range cols {
		d.Headers = append(d.Headers, columns.Header(c))
		d.Numeric = append(d.Numeric, columns.Registry[c].Numeric)
	}
	for _, res := range rep.Results {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = columns.Value(c, res)
		}
		d.Rows = append(d.Rows, row)
	}
}

func (s *Server) page(w http.ResponseWriter, data pageData) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		s.logger.Error().Err(err).Msg("Template render failed")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
