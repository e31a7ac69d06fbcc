package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Inspect and manage the embedded database's schema migrations",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show the current schema version, history, and validation result",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					driver, err := openDriver(ctx, cmd)
					if err != nil {
						return err
					}
					defer func() { _ = driver.Close(context.Background()) }()

					version, err := driver.SchemaVersion(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("current version: %d\n", version)

					history, err := driver.SchemaHistory(ctx)
					if err != nil {
						return err
					}
					for _, h := range history {
						fmt.Printf("  v%d  %s  applied %s\n", h.Version, h.Description, h.AppliedAt.Format("2006-01-02T15:04:05Z07:00"))
					}

					result, err := driver.ValidateSchema(ctx)
					if err != nil {
						return err
					}
					if result.Valid {
						fmt.Println("schema OK")
						return nil
					}
					fmt.Println("schema INVALID")
					for _, t := range result.MissingTables {
						fmt.Printf("  missing table: %s\n", t)
					}
					for _, idx := range result.MissingIndexes {
						fmt.Printf("  missing index: %s\n", idx)
					}
					for _, e := range result.Errors {
						fmt.Printf("  error: %s\n", e)
					}
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "Apply any pending migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					driver, err := openDriver(ctx, cmd)
					if err != nil {
						return err
					}
					defer func() { _ = driver.Close(context.Background()) }()

					applied, err := driver.MigrateSchema(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("applied %d migration(s)\n", applied)
					return nil
				},
			},
			{
				Name:      "rollback",
				Usage:     "Roll the schema back to a target version",
				ArgsUsage: "<target-version>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("schema rollback: expected exactly one target version argument")
					}
					var target int
					if _, err := fmt.Sscanf(cmd.Args().First(), "%d", &target); err != nil {
						return fmt.Errorf("schema rollback: invalid target version %q: %w", cmd.Args().First(), err)
					}

					driver, err := openDriver(ctx, cmd)
					if err != nil {
						return err
					}
					defer func() { _ = driver.Close(context.Background()) }()

					if err := driver.RollbackSchema(ctx, target); err != nil {
						return err
					}
					fmt.Printf("rolled back to version %d\n", target)
					return nil
				},
			},
		},
	}
}
