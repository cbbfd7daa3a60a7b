package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a question and get a step-by-step reasoned answer",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("query is required")
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}
			planner := cfg.newPlanner(gemini)

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Suffix = " Thinking..."
			sp.Start()
			result, err := planner.Run(ctx, query, cfg.scope())
			sp.Stop()

			if err != nil {
				// Answer with an apology instead of failing the session.
				fmt.Fprintf(c.Root().Writer, "I'm sorry, I encountered an error: %v\n", err)
				return nil
			}

			fmt.Fprintln(c.Root().Writer, result.Answer)
			if len(result.Observations) > 0 {
				fmt.Fprintln(c.Root().Writer)
				for i, obs := range result.Observations {
					fmt.Fprintf(c.Root().Writer, "Finding %d: %s\n", i+1, obs)
				}
			}
			return nil
		},
	}
}
