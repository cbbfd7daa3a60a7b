package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func assistFlags(cfg *config) []cli.Flag {
	flags := globalFlags(cfg)
	flags = append(flags, llmFlags(cfg)...)
	flags = append(flags, toggleFlags(cfg)...)
	return flags
}

func summarizeCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "summarize",
		Usage:     "Summarize a text",
		ArgsUsage: "<text>",
		Flags:     assistFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			if !cfg.enableSummarization {
				return goerr.New("summarization is disabled")
			}

			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if text == "" {
				return goerr.New("text is required")
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			summary, err := cfg.newAssist(gemini).Summarize(ctx, text)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.Root().Writer, summary)
			return nil
		},
	}
}

func moderateCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "moderate",
		Usage:     "Check a text for harmful content",
		ArgsUsage: "<text>",
		Flags:     assistFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			if !cfg.enableModeration {
				return goerr.New("moderation is disabled")
			}

			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if text == "" {
				return goerr.New("text is required")
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			result, err := cfg.newAssist(gemini).Moderate(ctx, text)
			if err != nil {
				return err
			}

			if result.Flagged {
				fmt.Fprintf(c.Root().Writer, "⚠️ Content flagged\n\n%s\n", result.Detail)
			} else {
				fmt.Fprintf(c.Root().Writer, "✅ Content safe\n\nNo harmful content detected.\n")
			}
			return nil
		},
	}
}
