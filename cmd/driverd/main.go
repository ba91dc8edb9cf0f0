package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/driverd/cmd/driverd/commands"
	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
	"git.home.luguber.info/inful/driverd/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("driverd"),
		kong.Description("Boots driver packages and hands them to a controller."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout}, cli)
	if err != nil {
		dberrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
