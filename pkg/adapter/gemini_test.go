package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/karmaspark/karmaspark/pkg/adapter"
	"github.com/karmaspark/karmaspark/pkg/model"
	"github.com/m-mizutani/gt"
)

func newTestClient(t *testing.T) *adapter.GeminiClient {
	t.Helper()

	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT is not set")
	}

	client, err := adapter.NewGemini(context.Background(), projectID, "us-central1")
	gt.NoError(t, err)
	return client
}

func TestChat(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	resp, err := client.Chat(ctx, "You are a helpful assistant.", []model.ChatMessage{
		{Role: model.RoleUser, Content: "What is the capital of France?"},
	})
	gt.NoError(t, err)
	gt.S(t, resp).Contains("Paris")
}

func TestEmbed(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	vec, err := client.Embed(ctx, "persistent conversational memory")
	gt.NoError(t, err)
	gt.A(t, vec).Longer(0)

	// A vector is most similar to itself.
	gt.True(t, client.Similarity(vec, vec) > 0.99)
}
