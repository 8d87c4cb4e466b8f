package server

import "html/template"

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Magic Formula Screener</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; }
table { border-collapse: collapse; }
th, td { padding: .25rem .6rem; border-bottom: 1px solid #ddd; }
td.num, th.num { text-align: right; }
.error { color: #b00; }
.summary { color: #666; }
</style>
</head>
<body>
<h1>Magic Formula Screener</h1>
<form method="get" action="/">
  <input type="hidden" name="run" value="1">
  <label>Top <input name="top" type="number" min="0" value="{{.Opts.Top}}"></label>
  <label>Min market cap <input name="min_mcap" value="{{.Opts.MinMarketCap}}"></label>
  <label>Limit <input name="limit" type="number" min="0" value="{{.Opts.Limit}}"></label>
  <label><input name="random" type="checkbox" value="true" {{if .Opts.Random}}checked{{end}}> Random sample</label>
  <button type="submit">Run scan</button>
</form>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{with .Report}}
<p class="summary">Scan {{.ID}} finished {{.FinishedAt.Format "2006-01-02 15:04"}}: {{$.Summary}}</p>
<p><a href="{{$.ExportURL}}">Download CSV</a> · <a href="{{$.JSONURL}}">JSON</a></p>
<table>
<thead><tr>{{range $i, $h := $.Headers}}<th{{if index $.Numeric $i}} class="num"{{end}}>{{$h}}</th>{{end}}</tr></thead>
<tbody>
{{range $.Rows}}<tr>{{range $i, $v := .}}<td{{if index $.Numeric $i}} class="num"{{end}}>{{$v}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{else}}
<p>No scan yet. Submit the form to run one.</p>
{{end}}
</body>
</html>
`))
