// Package templates renders the HTML pages of the web UI as templ components.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/JonMunkholm/tableload/internal/core"
	"github.com/JonMunkholm/tableload/internal/load"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/a-h/templ"
)

// ReportParams is the state of the report page.
type ReportParams struct {
	Table   string
	Compare *core.CompareResult
	Load    *load.Report
	Error   *core.UserMessage
	History []core.HistoryEntry
}

// html writes markup, keeping the first write error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(format string, args ...any) {
	if h.err == nil {
		_, h.err = fmt.Fprintf(h.w, format, args...)
	}
}

// text writes s escaped.
func (h *html) text(s string) {
	h.raw("%s", templ.EscapeString(s))
}

func (h *html) render(ctx context.Context, c templ.Component) {
	if h.err == nil {
		h.err = c.Render(ctx, h.w)
	}
}

// Layout wraps body in the page skeleton.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
		h.text(title)
		h.raw(`</title><style>body{font-family:sans-serif;margin:2rem}table{border-collapse:collapse}` +
			`td,th{border:1px solid #ccc;padding:.25rem .5rem;text-align:left}` +
			`.bad{color:#b00}.ok{color:#070}.alert{border:1px solid #b00;padding:.5rem;margin:1rem 0}</style>`)
		h.raw(`</head><body><h1>`)
		h.text(title)
		h.raw(`</h1>`)
		h.render(ctx, body)
		h.raw(`</body></html>`)
		return h.err
	})
}

// ErrorAlert renders a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="alert" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(`<p>`)
			h.text(action)
			h.raw(`</p>`)
		}
		h.raw(`<small>Code: `)
		h.text(code)
		h.raw(`</small></div>`)
		return h.err
	})
}

// ReportPage renders the upload form, the last result and recent loads.
func ReportPage(p ReportParams) templ.Component {
	return Layout("tableload", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.render(ctx, uploadForm(p.Table))
		if p.Error != nil {
			h.render(ctx, ErrorAlert(p.Error.Message, p.Error.Action, p.Error.Code))
		}
		if p.Compare != nil {
			h.render(ctx, CompareResult(*p.Compare))
		}
		if p.Load != nil {
			h.render(ctx, LoadReport(*p.Load))
		}
		h.render(ctx, History(p.History))
		return h.err
	}))
}

func uploadForm(table string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<form method="post" action="/report" enctype="multipart/form-data">`)
		h.raw(`<p><label>File <input type="file" name="file" required></label></p>`)
		h.raw(`<p><label>Table <input type="text" name="table" placeholder="schema.table" value="`)
		h.text(table)
		h.raw(`"></label></p>`)
		h.raw(`<p><label><input type="checkbox" name="create" value="true"> create table if missing</label> `)
		h.raw(`<label><input type="checkbox" name="clear" value="true"> clear table</label> `)
		h.raw(`<label><input type="checkbox" name="batch" value="true"> add batch column</label> `)
		h.raw(`<label><input type="checkbox" name="dry_run" value="true"> dry run</label></p>`)
		h.raw(`<p><button type="submit" name="action" value="compare">Compare</button> `)
		h.raw(`<button type="submit" name="action" value="load">Load</button></p></form>`)
		return h.err
	})
}

// CompareResult renders a column-by-column comparison.
func CompareResult(r core.CompareResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section><h2>Compare `)
		h.text(r.File)
		h.raw(` with `)
		h.text(r.Table.String())
		h.raw(`</h2>`)

		if !r.Exists {
			h.raw(`<p>The table does not exist. Loading creates it with these columns:</p>`)
			h.render(ctx, SourceColumns(r.Source.Columns))
			h.raw(`</section>`)
			return h.err
		}

		verdict(h, r.Loadable())
		h.raw(`<table><tr><th>column</th><th>file type</th><th>table type</th><th>types match</th><th>loadable</th></tr>`)
		for _, p := range r.Comparison.Pairs {
			h.raw(`<tr><td>`)
			h.text(p.Destination.Name)
			h.raw(`</td><td>`)
			h.text(p.Source.Type.String())
			h.raw(`</td><td>`)
			h.text(p.Destination.Type.String())
			h.raw(`</td>`)
			for _, ok := range []bool{p.Result.TypeMatched, p.Result.CanLoadDataFrom} {
				h.raw(`<td class="%s">%s</td>`, class(ok), yesNo(ok))
			}
			h.raw(`</tr>`)
		}
		h.raw(`</table>`)
		columnList(h, "Only in the file", sourceNames(r.Comparison.Missing))
		columnList(h, "Only in the table", destinationNames(r.Comparison.Superfluous))

		if len(r.Conflicts) > 0 {
			h.raw(`<h3>Duplicate keys</h3><ul>`)
			for _, c := range r.Conflicts {
				h.raw(`<li>`)
				h.text(fmt.Sprintf("%s %v on rows %v", c.Constraint.Name, c.Key, c.Rows))
				h.raw(`</li>`)
			}
			h.raw(`</ul>`)
		}
		h.raw(`</section>`)
		return h.err
	})
}

// SourceColumns renders inferred columns.
func SourceColumns(cols []schema.SourceColumnDefinition) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<table><tr><th>#</th><th>column</th><th>type</th><th>nullable</th></tr>`)
		for _, c := range cols {
			h.raw(`<tr><td>%d</td><td>`, c.Ordinal)
			h.text(c.Name)
			h.raw(`</td><td>`)
			h.text(c.Type.String())
			h.raw(`</td><td>%s</td></tr>`, yesNo(c.Modifier.Nullable))
		}
		h.raw(`</table>`)
		return h.err
	})
}

// LoadReport renders the outcome of one load.
func LoadReport(r load.Report) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section><h2>Load into `)
		h.text(r.Table.String())
		h.raw(`</h2>`)
		verdict(h, r.Succeeded())
		h.raw(`<table>`)
		row := func(k, v string) {
			h.raw(`<tr><th>`)
			h.text(k)
			h.raw(`</th><td>`)
			h.text(v)
			h.raw(`</td></tr>`)
		}
		row("run", r.RunID.String())
		row("decision", string(r.Decision))
		row("dry run", yesNo(r.DryRun))
		row("rows read", strconv.FormatInt(r.RowsRead, 10))
		row("rows written", strconv.FormatInt(r.RowsWritten, 10))
		row("rows failed", strconv.FormatInt(r.RowsFailed, 10))
		row("duplicate keys", strconv.FormatInt(r.Duplicates, 10))
		row("committed", yesNo(r.Committed))
		row("elapsed", r.Elapsed.Round(time.Millisecond).String())
		if r.Error != "" {
			row("error", r.Error)
		}
		h.raw(`</table></section>`)
		return h.err
	})
}

// History renders recent loads, newest first.
func History(entries []core.HistoryEntry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section><h2>Recent loads</h2>`)
		if len(entries) == 0 {
			h.raw(`<p>No loads yet.</p></section>`)
			return h.err
		}
		h.raw(`<table><tr><th>finished</th><th>file</th><th>table</th><th>decision</th><th>written</th><th>failed</th></tr>`)
		for _, e := range entries {
			h.raw(`<tr class="%s"><td>`, class(e.Report.Succeeded()))
			h.text(e.Finished.Format(time.DateTime))
			h.raw(`</td><td>`)
			h.text(e.File)
			h.raw(`</td><td>`)
			h.text(e.Report.Table.String())
			h.raw(`</td><td>`)
			h.text(string(e.Report.Decision))
			h.raw(`</td><td>%d</td><td>%d</td></tr>`, e.Report.RowsWritten, e.Report.RowsFailed)
		}
		h.raw(`</table></section>`)
		return h.err
	})
}

func verdict(h *html, ok bool) {
	if ok {
		h.raw(`<p class="ok">OK</p>`)
		return
	}
	h.raw(`<p class="bad">Not OK</p>`)
}

func columnList(h *html, title string, names []string) {
	if len(names) == 0 {
		return
	}
	h.raw(`<h3>`)
	h.text(title)
	h.raw(`</h3><ul>`)
	for _, n := range names {
		h.raw(`<li>`)
		h.text(n)
		h.raw(`</li>`)
	}
	h.raw(`</ul>`)
}

func sourceNames(cols []schema.SourceColumnDefinition) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func destinationNames(cols []schema.ColumnDefinition) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func class(ok bool) string {
	if ok {
		return "ok"
	}
	return "bad"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
