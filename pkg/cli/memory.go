package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func memoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Manage persistent conversation memories",
		Commands: []*cli.Command{
			memoryStoreCommand(),
			memoryRecallCommand(),
			memoryRecentCommand(),
			memoryCleanupCommand(),
			memoryExportCommand(),
		},
	}
}

func memoryFlags(cfg *config) []cli.Flag {
	flags := globalFlags(cfg)
	flags = append(flags, llmFlags(cfg)...)
	flags = append(flags, storeFlags(cfg)...)
	return flags
}

// memoryStoreOnlyFlags is for subcommands that never call the model backend:
// no Gemini configuration required.
func memoryStoreOnlyFlags(cfg *config) []cli.Flag {
	flags := globalFlags(cfg)
	flags = append(flags, storeFlags(cfg)...)
	return flags
}

func memoryStoreCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "store",
		Usage:     "Store a memory for later recall",
		ArgsUsage: "<content>",
		Flags:     memoryFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			content := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if content == "" {
				return goerr.New("memory content is required")
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}
			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			reply, err := cfg.newMemory(repo, gemini).Store(ctx, cfg.scope(), content)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.Root().Writer, reply)
			return nil
		},
	}
}

func memoryRecallCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "recall",
		Usage:     "Recall memories relevant to a query",
		ArgsUsage: "<query>",
		Flags:     memoryFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("recall query is required")
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}
			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			reply, err := cfg.newMemory(repo, gemini).Recall(ctx, cfg.scope(), query)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.Root().Writer, reply)
			return nil
		},
	}
}

func memoryRecentCommand() *cli.Command {
	var (
		cfg   config
		limit int64
	)

	flags := append(memoryStoreOnlyFlags(&cfg), &cli.IntFlag{
		Name:        "limit",
		Aliases:     []string{"n"},
		Usage:       "Maximum number of memories to show",
		Value:       5,
		Destination: &limit,
	})

	return &cli.Command{
		Name:  "recent",
		Usage: "Show the newest stored memories",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			memories, err := cfg.newMemory(repo, nil).Recent(ctx, cfg.scope(), int(limit))
			if err != nil {
				return err
			}

			if len(memories) == 0 {
				fmt.Fprintln(c.Root().Writer, "No memories stored yet.")
				return nil
			}
			for _, m := range memories {
				fmt.Fprintf(c.Root().Writer, "- [%s] %s\n", m.Timestamp.Format("2006-01-02 15:04"), m.Content)
			}
			return nil
		},
	}
}

func memoryCleanupCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "cleanup",
		Usage: "Delete memories older than the retention window",
		Flags: memoryStoreOnlyFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			deleted, err := cfg.newMemory(repo, nil).Cleanup(ctx, cfg.scope(), int(cfg.retentionDays))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "Deleted %d memories.\n", deleted)
			return nil
		},
	}
}

// exportedMemory is the YAML shape of one exported memory. Embeddings are
// deliberately omitted; the export is for humans.
type exportedMemory struct {
	Timestamp string `yaml:"timestamp"`
	UserID    string `yaml:"user_id"`
	Content   string `yaml:"content"`
	Metadata  string `yaml:"metadata,omitempty"`
}

func memoryExportCommand() *cli.Command {
	var (
		cfg   config
		limit int64
	)

	flags := append(memoryStoreOnlyFlags(&cfg), &cli.IntFlag{
		Name:        "limit",
		Aliases:     []string{"n"},
		Usage:       "Maximum number of memories to export",
		Value:       100,
		Destination: &limit,
	})

	return &cli.Command{
		Name:  "export",
		Usage: "Export memories as YAML",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			memories, err := cfg.newMemory(repo, nil).Recent(ctx, cfg.scope(), int(limit))
			if err != nil {
				return err
			}

			exported := make([]exportedMemory, 0, len(memories))
			for _, m := range memories {
				exported = append(exported, exportedMemory{
					Timestamp: m.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
					UserID:    m.UserID,
					Content:   m.Content,
					Metadata:  m.Metadata,
				})
			}

			out, err := yaml.Marshal(exported)
			if err != nil {
				return goerr.Wrap(err, "failed to marshal memories")
			}
			fmt.Fprint(c.Root().Writer, string(out))
			return nil
		},
	}
}
