package main

import (
	"github.com/runwayhq/runway/cmd/runway/commands"

	// Register subcommands.
	_ "github.com/runwayhq/runway/cmd/runway/commands/check"
	_ "github.com/runwayhq/runway/cmd/runway/commands/cleanup"
	_ "github.com/runwayhq/runway/cmd/runway/commands/docs"
	_ "github.com/runwayhq/runway/cmd/runway/commands/history"
	_ "github.com/runwayhq/runway/cmd/runway/commands/list"
	_ "github.com/runwayhq/runway/cmd/runway/commands/run"
	_ "github.com/runwayhq/runway/cmd/runway/commands/test"
)

func main() {
	commands.Execute()
}
