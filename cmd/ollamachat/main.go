package main

import (
	"os"

	"ollamachat/internal/cli"
)

func main() { os.Exit(cli.Main()) }
