package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/buildpilot/cmd/buildpilot/commands"
	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
	"git.home.luguber.info/inful/buildpilot/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("buildpilot"),
		kong.Description("Interactive multi-stage build runner with operator controls and error reports."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default()}, cli)
	if err != nil {
		adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		os.Exit(adapter.Report(err))
	}
}
