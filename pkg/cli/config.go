package cli

import (
	"context"
	"os"

	"github.com/karmaspark/karmaspark/pkg/adapter"
	"github.com/karmaspark/karmaspark/pkg/model"
	"github.com/karmaspark/karmaspark/pkg/repository"
	"github.com/karmaspark/karmaspark/pkg/usecase/agent"
	"github.com/karmaspark/karmaspark/pkg/usecase/assist"
	"github.com/karmaspark/karmaspark/pkg/usecase/memory"
	"github.com/karmaspark/karmaspark/pkg/usecase/reminder"
	"github.com/karmaspark/karmaspark/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel string

	// Adapters
	geminiProject   string
	geminiLocation  string
	generativeModel string
	embeddingModel  string

	// Repository
	dbPath string

	// Scope
	chatID string
	userID string

	// Memory
	enableMemory  bool
	retentionDays int64
	maxItems      int64

	// Feature toggles
	enableModeration    bool
	enableSummarization bool
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("KARMASPARK_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "chat-id",
			Usage:       "Chat scope identifier",
			Value:       "local",
			Sources:     cli.EnvVars("KARMASPARK_CHAT_ID"),
			Destination: &cfg.chatID,
		},
		&cli.StringFlag{
			Name:        "user-id",
			Usage:       "User identifier within the chat",
			Value:       "local",
			Sources:     cli.EnvVars("KARMASPARK_USER_ID"),
			Destination: &cfg.userID,
		},
	}
}

// llmFlags returns flags for model backend configuration
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Generative model name",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model name",
			Value:       "gemini-embedding-001",
			Sources:     cli.EnvVars("GEMINI_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
	}
}

// storeFlags returns flags for persistence configuration
func storeFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "db",
			Usage:       "Path to the SQLite database file",
			Value:       "./karmaspark.db",
			Sources:     cli.EnvVars("KARMASPARK_DB"),
			Destination: &cfg.dbPath,
		},
		&cli.BoolFlag{
			Name:        "enable-memory",
			Usage:       "Persist conversation memories",
			Value:       true,
			Sources:     cli.EnvVars("KARMASPARK_ENABLE_MEMORY"),
			Destination: &cfg.enableMemory,
		},
		&cli.IntFlag{
			Name:        "memory-retention-days",
			Usage:       "Days to keep memories before cleanup",
			Value:       30,
			Sources:     cli.EnvVars("KARMASPARK_MEMORY_RETENTION_DAYS"),
			Destination: &cfg.retentionDays,
		},
		&cli.IntFlag{
			Name:        "max-memory-items",
			Usage:       "Upper bound on memories returned by a recall",
			Value:       1000,
			Sources:     cli.EnvVars("KARMASPARK_MAX_MEMORY_ITEMS"),
			Destination: &cfg.maxItems,
		},
	}
}

// toggleFlags returns flags for optional assistant features
func toggleFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "enable-moderation",
			Usage:       "Enable the content moderation command",
			Value:       true,
			Sources:     cli.EnvVars("KARMASPARK_ENABLE_MODERATION"),
			Destination: &cfg.enableModeration,
		},
		&cli.BoolFlag{
			Name:        "enable-summarization",
			Usage:       "Enable the summarization command",
			Value:       true,
			Sources:     cli.EnvVars("KARMASPARK_ENABLE_SUMMARIZATION"),
			Destination: &cfg.enableSummarization,
		},
	}
}

// setupLogger installs the default logger from the configured level
func (cfg *config) setupLogger() {
	logging.SetDefault(logging.New(cfg.logLevel, os.Stderr))
}

// scope returns the chat/user scope of this invocation
func (cfg *config) scope() model.Scope {
	return model.Scope{ChatID: cfg.chatID, UserID: cfg.userID}
}

// newGemini creates the model backend client
func (cfg *config) newGemini(ctx context.Context) (*adapter.GeminiClient, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	client, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
		adapter.WithGenerativeModel(cfg.generativeModel),
		adapter.WithEmbeddingModel(cfg.embeddingModel),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	return client, nil
}

// newRepository opens the SQLite store
func (cfg *config) newRepository() (repository.Repository, error) {
	if cfg.dbPath == "" {
		return nil, goerr.New("db path is required")
	}

	repo, err := repository.NewSQLite(cfg.dbPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open repository", goerr.V("path", cfg.dbPath))
	}
	return repo, nil
}

// newPlanner wires the planning loop
func (cfg *config) newPlanner(llm adapter.LLM) *agent.Planner {
	return agent.NewPlanner(llm)
}

// newMemory wires the memory service; the recall limit never exceeds
// max-memory-items
func (cfg *config) newMemory(repo repository.Repository, llm adapter.LLM) *memory.Service {
	opts := []memory.Option{}
	if cfg.maxItems > 0 && cfg.maxItems < 5 {
		opts = append(opts, memory.WithRecallLimit(int(cfg.maxItems)))
	}
	return memory.New(repo, llm, opts...)
}

// newAssist wires summarization and moderation
func (cfg *config) newAssist(llm adapter.LLM) *assist.Service {
	return assist.New(llm)
}

// newReminder wires the reminder scheduler
func (cfg *config) newReminder(repo repository.Repository) *reminder.Service {
	return reminder.New(repo)
}
