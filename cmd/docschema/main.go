package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docschema/cmd/docschema/commands"
	"git.home.luguber.info/inful/docschema/internal/foundation/errors"
	"git.home.luguber.info/inful/docschema/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Must(cli,
		kong.Name("docschema"),
		kong.Description("Build schema-driven documentation models with cross references."),
		kong.UsageOnError(),
		kong.Bind(cli),
		kong.Vars{"version": version.String()},
	)
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = kctx.Run(&commands.Global{})
	errors.NewCLIErrorAdapter(cli.Verbose, nil).HandleError(err)
}
