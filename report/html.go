package report

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Translation check {{.ID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
.pass { color: #070; } .fail { color: #a00; }
.muted { color: #888; }
</style>
</head>
<body>
<h1>Translation consistency check</h1>
<p>Run <code>{{.ID}}</code>, started {{.StartedAt.Format "2006-01-02 15:04:05"}}.
{{if .Passed}}<strong class="pass">PASSED</strong>{{else}}<strong class="fail">FAILED</strong>{{end}}</p>

<h2>Summary</h2>
<table>
<tr><th>Language</th><th>Matched</th><th>Mismatched</th><th>Total</th></tr>
{{range $lang, $c := .ByLanguage}}
<tr><td>{{$lang}}</td><td>{{$c.Matched}}</td><td>{{$c.Mismatched}}</td><td>{{$c.Total}}</td></tr>
{{end}}
</table>
<p>{{.Total}} comparisons on {{.PagesOK}} pages; {{.Anomalies}} correlation anomalies.
{{if .Dropped}}{{.Dropped}} mismatch records beyond the retention cap were dropped.{{end}}</p>

{{if .PageErrors}}
<h2>Failed pages</h2>
<ul>{{range .PageErrors}}<li class="fail">{{.}}</li>{{end}}</ul>
{{end}}

{{if .Mismatches}}
<h2>Mismatches</h2>
<table>
<tr><th>Page</th><th>Language</th><th>Locator</th><th>Actual</th><th>Expected</th><th>Key</th><th>Screenshot</th></tr>
{{range .Mismatches}}
<tr>
<td>{{.Page}}</td>
<td>{{.Language}}</td>
<td><code>{{.Locator}}</code></td>
<td>{{clean .Actual}}</td>
<td>{{expected .Expected}}</td>
<td>{{.Key}}</td>
<td>{{if .Screenshot}}<a href="/screenshots/{{.Screenshot}}">{{.Screenshot}}</a>{{else}}<span class="muted">none</span>{{end}}</td>
</tr>
{{end}}
</table>
{{else}}
<p class="pass">No mismatches recorded.</p>
{{end}}
</body>
</html>
`
