package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/buildpilot/internal/config"
	"git.home.luguber.info/inful/buildpilot/internal/orchestrator"
	"git.home.luguber.info/inful/buildpilot/internal/stage"
)

var rule = strings.Repeat("=", 70)

// PrintBanner writes the build configuration table shown before the run starts.
func PrintBanner(w io.Writer, cfg *config.Config, version string) {
	_, _ = fmt.Fprintf(w, "🚀 %s build\n", cfg.Project.Name)
	_, _ = fmt.Fprintf(w, "buildpilot %s\n\n", version)

	mode := "Debug"
	if cfg.Build.Release {
		mode = "Release (optimized)"
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Branch", cfg.Build.Branch},
		{"Build Mode", mode},
		{"Clean Build", yesNo(cfg.Build.Clean, "Yes", "No")},
		{"GUI", yesNo(cfg.Build.GUI, "Enabled", "Disabled")},
		{"Tests", yesNo(cfg.Build.Tests, "Enabled", "Skipped")},
		{"Output Directory", cfg.Build.OutputDir},
	}
	for _, row := range rows {
		_, _ = fmt.Fprintf(tw, "  %s\t%s\n", row[0], row[1])
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintln(w)
}

// Outcome carries the paths shown in the end-of-run summary. Empty fields are omitted.
type Outcome struct {
	OutputDir  string
	LogFile    string
	ReportPath string
}

// PrintSummary writes the end-of-run verdict, the per-stage table and total time.
func PrintSummary(w io.Writer, s orchestrator.Summary, o Outcome) {
	_, _ = fmt.Fprintf(w, "\n%s\n\n", rule)
	switch {
	case s.Cancelled:
		_, _ = fmt.Fprintln(w, "🛑 BUILD CANCELLED 🛑")
	case s.Success():
		_, _ = fmt.Fprintln(w, "✨ BUILD SUCCESSFUL ✨")
	default:
		_, _ = fmt.Fprintln(w, "✗ BUILD FAILED ✗")
	}

	_, _ = fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, st := range s.Stages {
		dur := ""
		if st.StartTime != nil {
			dur = stage.FormatDuration(st.Duration)
		}
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", st.Status.Symbol(), st.Title, dur)
	}
	for _, name := range s.Skipped {
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", stage.StatusSkipped.Symbol(), name.Title(), "skipped")
	}
	_ = tw.Flush()

	if failed, ok := s.FirstFailure(); ok {
		_, _ = fmt.Fprintf(w, "\n❌ Failed at stage:\n   • %s\n", failed.Title)
		if failed.ErrorMessage != "" {
			_, _ = fmt.Fprintf(w, "     %s\n", failed.ErrorMessage)
		}
	}
	if s.Success() && o.OutputDir != "" {
		_, _ = fmt.Fprintf(w, "\n📦 Build artifacts:\n   %s\n", o.OutputDir)
	}
	if o.LogFile != "" {
		_, _ = fmt.Fprintf(w, "\n📝 Build log:\n   %s\n", o.LogFile)
	}
	if o.ReportPath != "" {
		_, _ = fmt.Fprintf(w, "\n📊 Error report saved: %s\n", o.ReportPath)
	}
	if s.StartTime != nil && s.EndTime != nil {
		_, _ = fmt.Fprintf(w, "\n⏱️  Total build time: %s\n", stage.FormatDuration(s.Duration))
	}
	_, _ = fmt.Fprintf(w, "\n%s\n", rule)
}

func yesNo(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
