// Package main provides the promptshield command line interface.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/promptshield/cmd/app/commands"
)

func main() {
	cmd := &cli.Command{
		Name:    "promptshield",
		Usage:   "Anonymize prompts before sending them to a text-processing service",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "anonymize",
				Usage: "Anonymize a prompt and print the safe text and mapping id",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "prompt",
						Aliases:  []string{"p"},
						Required: true,
						Usage:    "Prompt text to anonymize",
					},
					&cli.IntFlag{
						Name:    "ttl",
						Aliases: []string{"t"},
						Value:   0,
						Usage:   "Server-side mapping retention in seconds (1-86400, 0 for server default)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := commands.NewClient()
					if err != nil {
						return err
					}
					return commands.RunAnonymize(ctx, client, os.Stdout, cmd.String("prompt"), int(cmd.Int("ttl")), cmd.String("format"))
				},
			},
			{
				Name:  "protect",
				Usage: "Anonymize a prompt, pipe the safe text through a command, and restore its output",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "prompt",
						Aliases:  []string{"p"},
						Required: true,
						Usage:    "Prompt text to protect",
					},
					&cli.StringFlag{
						Name:     "command",
						Aliases:  []string{"c"},
						Required: true,
						Usage:    "Shell command receiving the safe prompt on stdin",
					},
					&cli.IntFlag{
						Name:    "ttl",
						Aliases: []string{"t"},
						Value:   0,
						Usage:   "Server-side mapping retention in seconds (1-86400, 0 for server default)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := commands.NewClient()
					if err != nil {
						return err
					}
					return commands.RunProtect(ctx, client, os.Stdout, cmd.String("prompt"), cmd.String("command"), int(cmd.Int("ttl")))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
