// Command graphdb is an ad-hoc Cypher shell and schema management tool for
// the embedded graph database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	app := &cli.Command{
		Name:    "graphdb",
		Version: version,
		Usage:   "Embedded Cypher graph database shell and schema tool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "store",
				Value: "graphdb.sqlite",
				Usage: "path to the embedded database file",
			},
		},
		Commands: []*cli.Command{
			shellCommand(),
			schemaCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
