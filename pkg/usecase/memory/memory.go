package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/karmaspark/karmaspark/pkg/adapter"
	"github.com/karmaspark/karmaspark/pkg/model"
	"github.com/karmaspark/karmaspark/pkg/repository"
	"github.com/karmaspark/karmaspark/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	defaultRecallLimit = 5

	// Display layout for recall listings.
	displayTimeLayout = "2006-01-02 15:04"
)

// Service stores conversation memories with embeddings and recalls them by
// semantic similarity, falling back to recency when embeddings are not
// available.
type Service struct {
	repo        repository.Repository
	llm         adapter.LLM
	recallLimit int
}

type Option func(*Service)

// WithRecallLimit caps how many memories a recall may return.
func WithRecallLimit(n int) Option {
	return func(s *Service) {
		s.recallLimit = n
	}
}

// New creates the memory service. llm may be nil for callers that only use
// Recent and Cleanup; Store and Recall require a backend.
func New(repo repository.Repository, llm adapter.LLM, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		llm:         llm,
		recallLimit: defaultRecallLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store persists content as a memory of the scope. An embedding failure is
// not fatal: the memory is kept without a vector and recall degrades to
// recency for it.
func (s *Service) Store(ctx context.Context, scope model.Scope, content string) (string, error) {
	embedding, err := s.llm.Embed(ctx, content)
	if err != nil {
		logging.From(ctx).Warn("failed to embed memory, storing without vector", "error", err)
		embedding = nil
	}

	_, err = s.repo.PutMemory(ctx, &model.Memory{
		ChatID:    scope.ChatID,
		UserID:    scope.UserID,
		Timestamp: time.Now().UTC(),
		Content:   content,
		Embedding: embedding,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to store memory")
	}

	return "I've stored this information in my memory.", nil
}

// Recall answers query from stored memories. It prefers semantic search and
// falls back to the most recent memories when the query cannot be embedded or
// similarity search yields nothing.
func (s *Service) Recall(ctx context.Context, scope model.Scope, query string) (string, error) {
	var lines []string

	embedding, err := s.llm.Embed(ctx, query)
	if err != nil {
		logging.From(ctx).Warn("failed to embed recall query, falling back to recent memories", "error", err)
	} else {
		scored, err := s.repo.SimilarMemories(ctx, scope.ChatID, embedding, s.recallLimit)
		if err != nil {
			logging.From(ctx).Warn("similarity search failed, falling back to recent memories", "error", err)
		}
		for _, sm := range scored {
			lines = append(lines, fmt.Sprintf("- [%s] (similarity: %.2f): %s",
				sm.Memory.Timestamp.Format(displayTimeLayout), sm.Score, sm.Memory.Content))
		}
	}

	if len(lines) == 0 {
		recent, err := s.repo.RecentMemories(ctx, scope.ChatID, s.recallLimit)
		if err != nil {
			return "", goerr.Wrap(err, "failed to get recent memories")
		}
		for _, m := range recent {
			lines = append(lines, fmt.Sprintf("- [%s]: %s",
				m.Timestamp.Format(displayTimeLayout), m.Content))
		}
	}

	if len(lines) == 0 {
		return "I don't have any relevant memories for that query.", nil
	}
	return fmt.Sprintf("Here's what I remember about '%s':\n\n%s", query, strings.Join(lines, "\n")), nil
}

// Recent lists the newest memories of the scope, up to limit.
func (s *Service) Recent(ctx context.Context, scope model.Scope, limit int) ([]*model.Memory, error) {
	if limit <= 0 {
		limit = s.recallLimit
	}
	memories, err := s.repo.RecentMemories(ctx, scope.ChatID, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list recent memories")
	}
	return memories, nil
}

// Cleanup deletes memories of the scope older than the retention window and
// returns how many were removed.
func (s *Service) Cleanup(ctx context.Context, scope model.Scope, retentionDays int) (int64, error) {
	deleted, err := s.repo.CleanupMemories(ctx, scope.ChatID, retentionDays)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to cleanup memories")
	}
	logging.From(ctx).Info("memory cleanup finished", "chat_id", scope.ChatID, "deleted", deleted)
	return deleted, nil
}
