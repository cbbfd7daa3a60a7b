package assist

import (
	"context"
	"strings"

	"github.com/karmaspark/karmaspark/pkg/adapter"
	"github.com/karmaspark/karmaspark/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

const (
	summarizePrompt = "You are a highly efficient text summarizer. Create a concise summary of the following text while retaining the key points."
	moderatePrompt  = "You are a content moderation system. Analyze the following text for any harmful, offensive, or inappropriate content. If you find such content, respond with 'FLAGGED: <reason>'. If the content is safe, respond with 'SAFE'."

	flaggedPrefix = "FLAGGED:"
)

// Service bundles the single-shot assistant operations that need no planning
// loop: summarization and content moderation.
type Service struct {
	llm adapter.LLM
}

func New(llm adapter.LLM) *Service {
	return &Service{llm: llm}
}

// Summarize condenses text while keeping the key points.
func (s *Service) Summarize(ctx context.Context, text string) (string, error) {
	summary, err := s.llm.Chat(ctx, summarizePrompt, []model.ChatMessage{
		{Role: model.RoleUser, Content: text},
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to summarize text")
	}
	return summary, nil
}

// ModerationResult carries the moderation verdict and the model's raw
// explanation.
type ModerationResult struct {
	Flagged bool
	Detail  string
}

// Moderate checks text for harmful content. Flagged is derived from the
// model's reply prefix; Detail keeps the full reply including the reason.
func (s *Service) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	reply, err := s.llm.Chat(ctx, moderatePrompt, []model.ChatMessage{
		{Role: model.RoleUser, Content: text},
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to moderate text")
	}

	return &ModerationResult{
		Flagged: strings.HasPrefix(reply, flaggedPrefix),
		Detail:  reply,
	}, nil
}
