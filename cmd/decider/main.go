package main

import (
	"os"

	"github.com/bfansports/CloudProcessingEngine-Decider/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
