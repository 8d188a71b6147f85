package main

import (
	"os"

	"github.com/scan-io-git/scanio-findings/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
