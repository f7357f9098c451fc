package main

import (
	"os"

	"github.com/liamcoop/premium/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
