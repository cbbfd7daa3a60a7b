package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive question-answering session",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}
			planner := cfg.newPlanner(gemini)

			var store func(context.Context, string)
			if cfg.enableMemory {
				repo, err := cfg.newRepository()
				if err != nil {
					return err
				}
				defer repo.Close()

				memories := cfg.newMemory(repo, gemini)
				store = func(ctx context.Context, content string) {
					if _, err := memories.Store(ctx, cfg.scope(), content); err != nil {
						fmt.Fprintf(c.Root().ErrWriter, "failed to store memory: %v\n", err)
					}
				}
			}

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			fmt.Fprintln(c.Root().Writer, "Chat session started. Type 'exit' to quit.")

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}
				if line == "" {
					continue
				}
				if line == "exit" {
					break
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				sp.Suffix = " Thinking..."
				sp.Start()
				result, err := planner.Run(ctx, line, cfg.scope())
				sp.Stop()

				if err != nil {
					fmt.Fprintf(c.Root().Writer, "I'm sorry, I encountered an error: %v\n", err)
					continue
				}

				fmt.Fprintln(c.Root().Writer, result.Answer)
				if store != nil {
					store(ctx, "Q: "+line+"\nA: "+result.Answer)
				}
			}

			fmt.Fprintln(c.Root().Writer, "Bye.")
			return nil
		},
	}
}
