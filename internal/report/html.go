package report

import (
	"bytes"
	"fmt"
	"html"
	"path"
	"strings"
)

// contextLineLimit truncates long context lines in HTML output.
const contextLineLimit = 120

func RenderHTML(r Report) string {
	var b bytes.Buffer

	b.WriteString("<!doctype html>\n")
	b.WriteString("<html lang=\"en\">\n")
	b.WriteString("<head>\n")
	b.WriteString("  <meta charset=\"utf-8\">\n")
	b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("  <title>Kiwi Security Scan</title>\n")
	b.WriteString("  <style>\n")
	b.WriteString("    :root {\n")
	b.WriteString("      --bg: #f3f6fb;\n")
	b.WriteString("      --surface: #ffffff;\n")
	b.WriteString("      --border: #d7dee9;\n")
	b.WriteString("      --text: #102033;\n")
	b.WriteString("      --muted: #4f6278;\n")
	b.WriteString("      --high: #b91c1c;\n")
	b.WriteString("      --medium: #b45309;\n")
	b.WriteString("      --low: #1d4ed8;\n")
	b.WriteString("      --info: #0f766e;\n")
	b.WriteString("    }\n")
	b.WriteString("    * { box-sizing: border-box; }\n")
	b.WriteString("    body { margin: 0; font-family: \"Segoe UI\", \"Helvetica Neue\", Arial, sans-serif; background: var(--bg); color: var(--text); line-height: 1.5; }\n")
	b.WriteString("    .page { max-width: 1100px; margin: 0 auto; padding: 28px 20px 40px; }\n")
	b.WriteString("    .hero { background: linear-gradient(140deg, #102033, #1e3550); color: #f8fbff; border-radius: 16px; padding: 20px 24px; margin-bottom: 20px; }\n")
	b.WriteString("    .hero h1 { margin: 0; font-size: 28px; }\n")
	b.WriteString("    .hero p { margin: 8px 0 0; color: #dbe8f7; }\n")
	b.WriteString("    section { background: var(--surface); border: 1px solid var(--border); border-radius: 14px; padding: 18px; margin-bottom: 16px; }\n")
	b.WriteString("    h2 { margin: 0 0 14px; font-size: 20px; }\n")
	b.WriteString("    h3 { margin: 0; font-size: 17px; }\n")
	b.WriteString("    .summary-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(150px, 1fr)); gap: 12px; }\n")
	b.WriteString("    .stat-card { border: 1px solid var(--border); border-radius: 12px; padding: 12px; background: #fbfcff; }\n")
	b.WriteString("    .stat-card .label { margin: 0; font-size: 12px; text-transform: uppercase; color: var(--muted); }\n")
	b.WriteString("    .stat-card .value { margin: 6px 0 0; font-size: 24px; font-weight: 700; }\n")
	b.WriteString("    .high .value { color: var(--high); }\n")
	b.WriteString("    .medium .value { color: var(--medium); }\n")
	b.WriteString("    .low .value { color: var(--low); }\n")
	b.WriteString("    .info .value { color: var(--info); }\n")
	b.WriteString("    table { width: 100%; border-collapse: collapse; font-size: 14px; }\n")
	b.WriteString("    th, td { border-bottom: 1px solid var(--border); padding: 8px; text-align: left; }\n")
	b.WriteString("    .warnings { margin: 0; padding-left: 18px; color: #7f1d1d; }\n")
	b.WriteString("    .issue { border: 1px solid var(--border); border-radius: 12px; padding: 14px; margin-bottom: 12px; }\n")
	b.WriteString("    .issue-header { display: flex; flex-wrap: wrap; align-items: center; gap: 8px; margin-bottom: 8px; }\n")
	b.WriteString("    .badge { font-size: 12px; font-weight: 700; border-radius: 999px; padding: 4px 8px; text-transform: uppercase; }\n")
	b.WriteString("    .badge-high { background: #fef2f2; color: var(--high); }\n")
	b.WriteString("    .badge-medium { background: #fffbeb; color: var(--medium); }\n")
	b.WriteString("    .badge-low { background: #eff6ff; color: var(--low); }\n")
	b.WriteString("    .badge-info { background: #f0fdfa; color: var(--info); }\n")
	b.WriteString("    .meta { font-size: 14px; color: var(--muted); margin: 4px 0; }\n")
	b.WriteString("    pre { background: #0f172a; color: #e2e8f0; border-radius: 10px; padding: 10px; overflow-x: auto; font-size: 13px; }\n")
	b.WriteString("    pre .hit { color: #fde68a; font-weight: 700; }\n")
	b.WriteString("    code { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; }\n")
	b.WriteString("    .empty { color: var(--muted); margin: 0; }\n")
	b.WriteString("  </style>\n")
	b.WriteString("</head>\n")
	b.WriteString("<body>\n")
	b.WriteString("  <main class=\"page\">\n")
	b.WriteString("    <header class=\"hero\">\n")
	b.WriteString("      <h1>Kiwi Security Scan</h1>\n")
	b.WriteString(fmt.Sprintf("      <p>Scanned <code>%s</code> at %s (%d files, %d ms, %s)</p>\n",
		htmlInline(r.Root), r.GeneratedAt.Local().Format(timeLayout), r.Files, r.DurationMS, htmlInline(r.Status)))
	b.WriteString("    </header>\n")

	b.WriteString("    <section>\n")
	b.WriteString("      <h2>Summary</h2>\n")
	b.WriteString("      <div class=\"summary-grid\">\n")
	b.WriteString(fmt.Sprintf("        <div class=\"stat-card\"><p class=\"label\">Total issues</p><p class=\"value\">%d</p></div>\n", len(r.Issues)))
	for _, bucket := range r.Statistics {
		class := strings.ToLower(bucket.Severity.String())
		b.WriteString(fmt.Sprintf("        <div class=\"stat-card %s\"><p class=\"label\">%s</p><p class=\"value\">%d</p></div>\n", class, bucket.Severity, bucket.Count))
	}
	b.WriteString("      </div>\n")
	b.WriteString("    </section>\n")

	if len(r.Scopes) > 0 {
		b.WriteString("    <section>\n")
		b.WriteString("      <h2>Scopes</h2>\n")
		b.WriteString("      <table>\n")
		b.WriteString("        <thead><tr><th>Scope</th><th>Lines</th></tr></thead>\n")
		b.WriteString("        <tbody>\n")
		for _, scope := range r.Scopes.Scopes() {
			b.WriteString(fmt.Sprintf("          <tr><td><code>%s</code></td><td>%d</td></tr>\n", htmlInline(scope), r.Scopes[scope]))
		}
		b.WriteString("        </tbody>\n")
		b.WriteString("      </table>\n")
		b.WriteString("    </section>\n")
	}

	if len(r.Warnings) > 0 {
		b.WriteString("    <section>\n")
		b.WriteString("      <h2>Warnings</h2>\n")
		b.WriteString("      <ul class=\"warnings\">\n")
		for _, w := range r.Warnings {
			b.WriteString(fmt.Sprintf("        <li>%s</li>\n", htmlInline(w)))
		}
		b.WriteString("      </ul>\n")
		b.WriteString("    </section>\n")
	}

	b.WriteString("    <section>\n")
	b.WriteString("      <h2>Issues</h2>\n")
	if len(r.Issues) == 0 {
		b.WriteString("      <p class=\"empty\">No issues found.</p>\n")
	}
	for n, i := range r.Issues {
		sev := strings.ToLower(i.Severity.String())
		b.WriteString(fmt.Sprintf("      <article class=\"issue\" id=\"issue-%d\">\n", n+1))
		b.WriteString("        <div class=\"issue-header\">\n")
		b.WriteString(fmt.Sprintf("          <span class=\"badge badge-%s\">%s</span>\n", sev, htmlInline(sev)))
		b.WriteString(fmt.Sprintf("          <h3>%s <code>%s</code></h3>\n", htmlInline(i.Name), htmlInline(i.ID)))
		b.WriteString("        </div>\n")
		b.WriteString(fmt.Sprintf("        <p class=\"meta\">%s &middot; confidence %s &middot; pattern <code>%s</code></p>\n",
			r.fileLink(i.Filename, i.Line), htmlInline(i.Confidence.String()), htmlInline(i.Pattern)))
		for _, ref := range i.References {
			b.WriteString(fmt.Sprintf("        <p class=\"meta\"><a href=\"%s\">%s</a></p>\n", html.EscapeString(ref), htmlInline(ref)))
		}
		if len(i.Context) > 0 {
			b.WriteString("        <pre>")
			for _, line := range contextLines(i) {
				text := html.EscapeString(truncate(line, contextLineLimit))
				if isMatchLine(line, i) {
					text = "<span class=\"hit\">" + text + "</span>"
				}
				b.WriteString(text + "\n")
			}
			b.WriteString("</pre>\n")
		}
		b.WriteString("      </article>\n")
	}
	b.WriteString("    </section>\n")
	b.WriteString("  </main>\n")
	b.WriteString("</body>\n")
	b.WriteString("</html>\n")
	return b.String()
}

func (r Report) fileLink(filename string, line int) string {
	display := r.displayPath(filename)
	label := display
	if line > 0 {
		label = fmt.Sprintf("%s:%d", display, line)
	}
	if r.LinkBase == "" || display == filename {
		return "<code>" + htmlInline(label) + "</code>"
	}
	href := strings.TrimRight(r.LinkBase, "/") + "/" + path.Join(path.Base(strings.ReplaceAll(r.Root, "\\", "/")), display)
	if line > 0 {
		href += fmt.Sprintf("#%d", line)
	}
	return fmt.Sprintf("<a href=\"%s\"><code>%s</code></a>", html.EscapeString(href), htmlInline(label))
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "......"
}

func htmlInline(s string) string {
	return html.EscapeString(sanitizeInline(s))
}
