package assist_test

import (
	"context"
	"errors"
	"testing"

	"github.com/karmaspark/karmaspark/pkg/model"
	"github.com/karmaspark/karmaspark/pkg/usecase/assist"
	"github.com/m-mizutani/gt"
)

type mockLLM struct {
	reply   string
	err     error
	prompt  string
	history []model.ChatMessage
}

func (m *mockLLM) Chat(_ context.Context, systemPrompt string, history []model.ChatMessage) (string, error) {
	m.prompt = systemPrompt
	m.history = history
	return m.reply, m.err
}

func (m *mockLLM) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("embedding is not used here")
}

func TestSummarize(t *testing.T) {
	llm := &mockLLM{reply: "A short summary."}
	svc := assist.New(llm)

	summary, err := svc.Summarize(context.Background(), "a very long text about many things")
	gt.NoError(t, err)
	gt.Equal(t, summary, "A short summary.")

	gt.S(t, llm.prompt).Contains("text summarizer")
	gt.A(t, llm.history).Length(1)
	gt.Equal(t, llm.history[0].Role, model.RoleUser)
	gt.Equal(t, llm.history[0].Content, "a very long text about many things")
}

func TestModerateSafe(t *testing.T) {
	llm := &mockLLM{reply: "SAFE"}
	svc := assist.New(llm)

	result, err := svc.Moderate(context.Background(), "have a nice day")
	gt.NoError(t, err)
	gt.False(t, result.Flagged)
	gt.Equal(t, result.Detail, "SAFE")
	gt.S(t, llm.prompt).Contains("content moderation system")
}

func TestModerateFlagged(t *testing.T) {
	llm := &mockLLM{reply: "FLAGGED: contains a personal threat"}
	svc := assist.New(llm)

	result, err := svc.Moderate(context.Background(), "something nasty")
	gt.NoError(t, err)
	gt.True(t, result.Flagged)
	gt.S(t, result.Detail).Contains("personal threat")
}

func TestModerateBackendFailure(t *testing.T) {
	llm := &mockLLM{err: errors.New("backend down")}
	svc := assist.New(llm)

	_, err := svc.Moderate(context.Background(), "anything")
	gt.Error(t, err)
}
