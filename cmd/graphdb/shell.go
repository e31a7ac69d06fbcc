package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	graphdb "github.com/dot-do/neo4j-sub002"
	"github.com/dot-do/neo4j-sub002/internal/engine"
)

func shellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Run an interactive (or piped) Cypher REPL against the store",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			driver, err := openDriver(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = driver.Close(context.Background()) }()
			return runShell(ctx, driver, os.Stdin, os.Stdout)
		},
	}
}

func runShell(ctx context.Context, driver *graphdb.Driver, in io.Reader, out io.Writer) error {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd())
	}

	sess, err := driver.NewSession(ctx, graphdb.SessionConfig{})
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close(ctx) }()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		if interactive {
			fmt.Fprint(out, "cypher> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		result, err := sess.Run(ctx, line, nil)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printResult(out, result)
	}
	return scanner.Err()
}

func printResult(out io.Writer, result *graphdb.Result) {
	keys, _ := result.Keys()
	if len(keys) > 0 {
		fmt.Fprintln(out, strings.Join(keys, " | "))
	}
	records, _ := result.Collect()
	for _, rec := range records {
		cells := make([]string, len(rec.Values))
		for i, v := range rec.Values {
			cells[i] = fmt.Sprintf("%v", engine.ToAny(v))
		}
		fmt.Fprintln(out, strings.Join(cells, " | "))
	}
	fmt.Fprintf(out, "(%d rows)\n", len(records))
}

func openDriver(ctx context.Context, cmd *cli.Command) (*graphdb.Driver, error) {
	path := cmd.String("store")
	return graphdb.NewDriverWithContext(ctx, "neo4j://"+path, graphdb.NoAuth(), nil)
}
