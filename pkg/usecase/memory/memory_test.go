package memory_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/karmaspark/karmaspark/pkg/model"
	"github.com/karmaspark/karmaspark/pkg/repository"
	"github.com/karmaspark/karmaspark/pkg/usecase/memory"
	"github.com/m-mizutani/gt"
)

// mockEmbedder maps known texts to fixed vectors; unknown texts fail.
type mockEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (m *mockEmbedder) Chat(_ context.Context, _ string, _ []model.ChatMessage) (string, error) {
	return "", errors.New("chat is not used by the memory service")
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	vec, ok := m.vectors[text]
	if !ok {
		return nil, errors.New("no vector for text")
	}
	return vec, nil
}

func newTestService(t *testing.T, embedder *mockEmbedder) (*memory.Service, repository.Repository) {
	t.Helper()

	repo, err := repository.NewSQLite(filepath.Join(t.TempDir(), "memory.db"))
	gt.NoError(t, err)
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return memory.New(repo, embedder), repo
}

var scope = model.Scope{ChatID: "chat-1", UserID: "user-1"}

func TestStoreAndRecall(t *testing.T) {
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"my dog is called Rex":     {1, 0, 0},
		"my favorite food is soup": {0, 1, 0},
		"what is my dog's name?":   {0.95, 0.05, 0},
	}}
	svc, _ := newTestService(t, embedder)
	ctx := context.Background()

	reply, err := svc.Store(ctx, scope, "my dog is called Rex")
	gt.NoError(t, err)
	gt.Equal(t, reply, "I've stored this information in my memory.")

	_, err = svc.Store(ctx, scope, "my favorite food is soup")
	gt.NoError(t, err)

	recall, err := svc.Recall(ctx, scope, "what is my dog's name?")
	gt.NoError(t, err)
	gt.S(t, recall).Contains("Here's what I remember about 'what is my dog's name?':")
	gt.S(t, recall).Contains("(similarity:")

	// The dog memory ranks above the food memory.
	dogIdx := strings.Index(recall, "Rex")
	foodIdx := strings.Index(recall, "soup")
	gt.True(t, dogIdx >= 0 && foodIdx >= 0 && dogIdx < foodIdx)
}

func TestRecallEmbedFailureFallsBackToRecent(t *testing.T) {
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"remember the meeting at noon": {1, 0, 0},
	}}
	svc, _ := newTestService(t, embedder)
	ctx := context.Background()

	_, err := svc.Store(ctx, scope, "remember the meeting at noon")
	gt.NoError(t, err)

	embedder.err = errors.New("embedding backend down")

	recall, err := svc.Recall(ctx, scope, "meeting")
	gt.NoError(t, err)
	gt.S(t, recall).Contains("remember the meeting at noon")
	gt.S(t, recall).NotContains("similarity")
}

func TestRecallNothingStored(t *testing.T) {
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"anything": {1, 0, 0},
	}}
	svc, _ := newTestService(t, embedder)

	recall, err := svc.Recall(context.Background(), scope, "anything")
	gt.NoError(t, err)
	gt.Equal(t, recall, "I don't have any relevant memories for that query.")
}

func TestStoreEmbedFailureKeepsMemory(t *testing.T) {
	embedder := &mockEmbedder{err: errors.New("embedding backend down")}
	svc, _ := newTestService(t, embedder)
	ctx := context.Background()

	reply, err := svc.Store(ctx, scope, "stored without a vector")
	gt.NoError(t, err)
	gt.Equal(t, reply, "I've stored this information in my memory.")

	memories, err := svc.Recent(ctx, scope, 5)
	gt.NoError(t, err)
	gt.A(t, memories).Length(1)
	gt.Equal(t, memories[0].Content, "stored without a vector")
	gt.A(t, memories[0].Embedding).Length(0)
}

func TestRecallLimit(t *testing.T) {
	vectors := map[string][]float32{"query": {1, 0}}
	contents := []string{"one", "two", "three"}
	for _, c := range contents {
		vectors[c] = []float32{1, 0}
	}
	embedder := &mockEmbedder{vectors: vectors}

	repo, err := repository.NewSQLite(filepath.Join(t.TempDir(), "memory.db"))
	gt.NoError(t, err)
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	svc := memory.New(repo, embedder, memory.WithRecallLimit(2))
	ctx := context.Background()

	for _, c := range contents {
		_, err := svc.Store(ctx, scope, c)
		gt.NoError(t, err)
	}

	recall, err := svc.Recall(ctx, scope, "query")
	gt.NoError(t, err)
	gt.Equal(t, strings.Count(recall, "- ["), 2)
}

func TestCleanup(t *testing.T) {
	embedder := &mockEmbedder{vectors: map[string][]float32{}}
	svc, repo := newTestService(t, embedder)
	ctx := context.Background()

	// Insert a stale memory directly; Store always stamps the current time.
	old, err := repo.PutMemory(ctx, &model.Memory{
		ChatID:    scope.ChatID,
		UserID:    scope.UserID,
		Timestamp: timeDaysAgo(40),
		Content:   "stale memory",
	})
	gt.NoError(t, err)
	gt.True(t, old > 0)

	deleted, err := svc.Cleanup(ctx, scope, 30)
	gt.NoError(t, err)
	gt.Equal(t, deleted, int64(1))

	memories, err := svc.Recent(ctx, scope, 5)
	gt.NoError(t, err)
	gt.A(t, memories).Length(0)
}

func TestRecentAndCleanupWithoutModelBackend(t *testing.T) {
	repo, err := repository.NewSQLite(filepath.Join(t.TempDir(), "memory.db"))
	gt.NoError(t, err)
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	svc := memory.New(repo, nil)
	ctx := context.Background()

	_, err = repo.PutMemory(ctx, &model.Memory{
		ChatID: scope.ChatID, UserID: scope.UserID,
		Timestamp: timeDaysAgo(40), Content: "stale memory",
	})
	gt.NoError(t, err)
	_, err = repo.PutMemory(ctx, &model.Memory{
		ChatID: scope.ChatID, UserID: scope.UserID,
		Timestamp: timeDaysAgo(1), Content: "fresh memory",
	})
	gt.NoError(t, err)

	memories, err := svc.Recent(ctx, scope, 5)
	gt.NoError(t, err)
	gt.A(t, memories).Length(2)

	deleted, err := svc.Cleanup(ctx, scope, 30)
	gt.NoError(t, err)
	gt.Equal(t, deleted, int64(1))
}

func timeDaysAgo(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days)
}
