package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/buildpilot/internal/config"
	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
)

// ReportCmd implements the 'report' command.
type ReportCmd struct {
	Limit int `short:"n" help:"Show at most this many reports (0 for all)" default:"10"`
}

func (r *ReportCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	return ListReports(os.Stdout, cfg.Resolve(cfg.Reports.Dir), r.Limit, time.Now())
}

type reportFile struct {
	name    string
	size    int64
	modTime time.Time
}

// ListReports prints the error report archives in dir, newest first.
func ListReports(w io.Writer, dir string, limit int, now time.Time) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		_, _ = fmt.Fprintf(w, "No error reports in %s\n", dir)
		return nil
	}
	if err != nil {
		return errors.ReportError("read report directory").WithCause(err).WithContext("path", dir).Build()
	}

	var files []reportFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "error_report_") || filepath.Ext(e.Name()) != ".zip" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, reportFile{name: e.Name(), size: info.Size(), modTime: info.ModTime()})
	}
	if len(files) == 0 {
		_, _ = fmt.Fprintf(w, "No error reports in %s\n", dir)
		return nil
	}
	// Names embed the creation timestamp, so reverse lexical order is newest first.
	sort.Slice(files, func(i, j int) bool { return files[i].name > files[j].name })
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "REPORT\tSIZE\tCREATED")
	for _, f := range files {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n",
			filepath.Join(dir, f.name), humanize.IBytes(uint64(f.size)), humanize.RelTime(f.modTime, now, "ago", "from now"))
	}
	return tw.Flush()
}
