// Command hnsspvd runs the Handshake SPV light-client resolver:
// config load, urfave/cli command dispatch (sync/query/console).
// Grounded on the teacher's cli/main.go entrypoint shape.
package main

import (
	"fmt"
	"os"

	"github.com/hnsresolver/hns-spv/cli"
)

var version = "dev"

func main() {
	app := cli.New(version)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
