package main

import (
	"github.com/blackvault/artifactresolver/cmd"
	"github.com/blackvault/artifactresolver/internal/terminal"
)

func main() {
	terminal.EnableVirtualTerminal()
	cmd.Execute()
}
