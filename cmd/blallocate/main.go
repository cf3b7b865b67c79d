// Command blallocate runs Black-Litterman allocations from the command line.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&allocateCmd{}, "")
	commander.Register(&exampleCmd{}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
