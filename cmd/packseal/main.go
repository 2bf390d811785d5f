package main

import (
	"github.com/packseal/packseal/internal/commands"
)

var version = "dev"

func main() {
	commands.Execute(version)
}
