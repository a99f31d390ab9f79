package main

import (
	"os"

	"github.com/josh-kwaku/civitas/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
