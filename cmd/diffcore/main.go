package main

import (
	"os"

	"github.com/dshills/diffcore/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
