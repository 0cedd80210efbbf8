package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/buildpilot/internal/orchestrator"
	"git.home.luguber.info/inful/buildpilot/internal/stage"
	"git.home.luguber.info/inful/buildpilot/internal/sysinfo"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// SummaryMarkdown renders the human-readable run summary.
func SummaryMarkdown(now time.Time, snap orchestrator.Summary, facts sysinfo.Facts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Build report\n\n")
	fmt.Fprintf(&b, "- **Run:** `%s`\n", snap.RunID)
	fmt.Fprintf(&b, "- **Generated:** %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- **Outcome:** %s\n", outcome(snap))
	if snap.StartTime != nil {
		fmt.Fprintf(&b, "- **Elapsed:** %s\n", stage.FormatDuration(snap.Duration))
	}
	fmt.Fprintf(&b, "- **Host:** %s (%s/%s, %d CPUs, %s RAM, %s)\n\n",
		escape(facts.Hostname), facts.Platform, facts.Architecture, facts.CPUCount, facts.MemoryHuman(), facts.GoVersion)

	if failed, ok := snap.FirstFailure(); ok {
		fmt.Fprintf(&b, "## First failure\n\n**%s**: %s\n\n", failed.Title, escape(failed.ErrorMessage))
	}

	b.WriteString("## Stages\n\n")
	b.WriteString("| # | Stage | Status | Duration | Error |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for i, st := range snap.Stages {
		dur := "-"
		if st.StartTime != nil {
			dur = stage.FormatDuration(st.Duration)
		}
		fmt.Fprintf(&b, "| %d | %s | %s %s | %s | %s |\n",
			i+1, escape(st.Title), st.Status.Symbol(), st.Status, dur, escape(st.ErrorMessage))
	}
	if len(snap.Skipped) > 0 {
		b.WriteString("\n## Skipped\n\n")
		for _, name := range snap.Skipped {
			fmt.Fprintf(&b, "- %s\n", escape(name.Title()))
		}
	}
	return b.String()
}

func renderSummary(now time.Time, snap orchestrator.Summary, facts sysinfo.Facts) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(SummaryMarkdown(now, snap, facts)), &body); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Build report ")
	out.WriteString(html.EscapeString(snap.RunID))
	out.WriteString("</title></head><body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body></html>\n")
	return out.Bytes(), nil
}

func outcome(snap orchestrator.Summary) string {
	switch {
	case snap.Cancelled:
		return "cancelled"
	case snap.EndTime == nil:
		return "in progress"
	case snap.Success():
		return "success"
	default:
		return "failed"
	}
}

// escape keeps free text from breaking table cells or injecting markup.
func escape(s string) string {
	r := strings.NewReplacer("|", `\|`, "\n", " ", "\r", "", "<", "&lt;", ">", "&gt;", "`", "'", "*", `\*`, "_", `\_`)
	return r.Replace(s)
}
