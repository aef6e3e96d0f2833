package ui

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

const pageHeader = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>prostsolve</title>
<style>
body { font-family: monospace; margin: 2rem; background: #111; color: #ddd; }
a { color: #6cf; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #333; padding: 0.4rem 0.8rem; text-align: left; }
.state-completed { color: #6f6; }
.state-failed { color: #f66; }
.state-running { color: #fc6; }
</style>
</head>
<body>
<h1><a href="/">prostsolve</a></h1>
`

const pageFooter = `</body>
</html>
`

// SolveList renders the list of tracked solves at GET /.
func SolveList(items []SolveListItem) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHeader); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<table><tr><th>ID</th><th>State</th><th>Shape</th><th>Iterations</th><th>Result</th></tr>\n"); err != nil {
			return err
		}
		for _, it := range items {
			_, err := fmt.Fprintf(w,
				"<tr class=\"state-%s\"><td><a href=\"/solves/%s\">%s</a></td><td>%s</td><td>%dx%d</td><td>%d</td><td>%s</td></tr>\n",
				html.EscapeString(it.State), html.EscapeString(it.ID), html.EscapeString(it.ID),
				html.EscapeString(it.State), it.NRows, it.NCols, it.Iterations, html.EscapeString(it.ResultString))
			if err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</table>\n"); err != nil {
			return err
		}
		_, err := io.WriteString(w, pageFooter)
		return err
	})
}

// SolveDetailPage renders GET /solves/:id.
func SolveDetailPage(d SolveDetail) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHeader); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, `<h2>Solve %s</h2>
<table>
<tr><th>State</th><td class="state-%s">%s</td></tr>
<tr><th>Shape</th><td>%d x %d</td></tr>
<tr><th>Iterations</th><td>%d / %d</td></tr>
<tr><th>Result</th><td>%s</td></tr>
<tr><th>Elapsed</th><td>%.2fs</td></tr>
<tr><th>Error</th><td>%s</td></tr>
</table>
<p><a href="/api/v1/solves/%s/solution.json">solution.json</a> &middot;
<a href="/api/v1/solves/%s/stream">stream</a></p>
`,
			html.EscapeString(d.ID), html.EscapeString(d.State), html.EscapeString(d.State),
			d.NRows, d.NCols, d.Iterations, d.MaxIters, html.EscapeString(d.ResultString),
			d.ElapsedSec, html.EscapeString(d.Error), html.EscapeString(d.ID), html.EscapeString(d.ID))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, pageFooter)
		return err
	})
}

// SolveNotFound renders a 404-equivalent page for an unknown solve ID.
func SolveNotFound(id string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHeader); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "<p>No solve found with ID %s</p>\n", html.EscapeString(id))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, pageFooter)
		return err
	})
}
