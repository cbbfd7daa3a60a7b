package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/karmaspark/karmaspark/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func remindCommand() *cli.Command {
	return &cli.Command{
		Name:  "remind",
		Usage: "Schedule and manage durable reminders",
		Commands: []*cli.Command{
			remindAddCommand(),
			remindListCommand(),
			remindCancelCommand(),
			remindWatchCommand(),
		},
	}
}

func remindFlags(cfg *config) []cli.Flag {
	flags := globalFlags(cfg)
	flags = append(flags, storeFlags(cfg)...)
	return flags
}

func remindAddCommand() *cli.Command {
	var (
		cfg config
		in  time.Duration
	)

	flags := append(remindFlags(&cfg), &cli.DurationFlag{
		Name:        "in",
		Usage:       "Delay until the reminder fires (between 1m and 168h)",
		Required:    true,
		Destination: &in,
	})

	return &cli.Command{
		Name:      "add",
		Usage:     "Schedule a reminder",
		ArgsUsage: "<message>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			message := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if message == "" {
				return goerr.New("reminder message is required")
			}

			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			rem, err := cfg.newReminder(repo).Schedule(ctx, cfg.scope(), message, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "Reminder #%d set for %s: %s\n",
				rem.ID, rem.DueAt.Local().Format("2006-01-02 15:04"), rem.Message)
			return nil
		},
	}
}

func remindListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List pending reminders",
		Flags: remindFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			reminders, err := cfg.newReminder(repo).List(ctx, cfg.scope())
			if err != nil {
				return err
			}

			if len(reminders) == 0 {
				fmt.Fprintln(c.Root().Writer, "No pending reminders.")
				return nil
			}
			for _, rem := range reminders {
				fmt.Fprintf(c.Root().Writer, "#%d [%s] %s\n",
					rem.ID, rem.DueAt.Local().Format("2006-01-02 15:04"), rem.Message)
			}
			return nil
		},
	}
}

func remindCancelCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "cancel",
		Usage:     "Cancel a pending reminder",
		ArgsUsage: "<id>",
		Flags:     remindFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			if c.Args().Len() != 1 {
				return goerr.New("reminder id is required")
			}
			id, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return goerr.Wrap(err, "invalid reminder id", goerr.V("arg", c.Args().First()))
			}

			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := cfg.newReminder(repo).Cancel(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "Reminder #%d canceled.\n", id)
			return nil
		},
	}
}

func remindWatchCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "watch",
		Usage: "Run the delivery loop, printing reminders as they come due",
		Flags: remindFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			fmt.Fprintln(c.Root().Writer, "Watching for due reminders. Press Ctrl-C to stop.")
			return cfg.newReminder(repo).Run(ctx, func(_ context.Context, rem *model.Reminder) {
				fmt.Fprintf(c.Root().Writer, "⏰ Reminder #%d: %s\n", rem.ID, rem.Message)
			})
		},
	}
}
