package adapter

import (
	"context"
	"strings"

	"github.com/karmaspark/karmaspark/pkg/model"
	"github.com/karmaspark/karmaspark/pkg/utils/vector"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

var (
	ErrRateLimitExceeded = goerr.New("rate limit exceeded")
	ErrEmptyResponse     = goerr.New("empty response from model")
	ErrUnsupportedRole   = goerr.New("unsupported message role")
)

// LLM is the gateway to the model backend: chat completions and embeddings.
type LLM interface {
	Chat(ctx context.Context, systemPrompt string, history []model.ChatMessage) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Fixed generation parameters for every chat completion.
const (
	chatTemperature     = 0.7
	chatTopP            = 0.95
	chatMaxOutputTokens = 1024
)

type GeminiClient struct {
	client          *genai.Client
	generativeModel string
	embeddingModel  string
	retry           retryPolicy
}

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = model
	}
}

func WithEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingModel = model
	}
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:          client,
		generativeModel: "gemini-2.5-flash",
		embeddingModel:  "gemini-embedding-001",
		retry:           defaultRetryPolicy,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Chat sends the system prompt and conversation history to the generative
// model and returns the first candidate's text. Rate-limited requests are
// retried with backoff; any other backend failure aborts immediately.
func (g *GeminiClient) Chat(ctx context.Context, systemPrompt string, history []model.ChatMessage) (string, error) {
	contents, err := buildContents(history)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		Temperature:       ptrFloat32(chatTemperature),
		TopP:              ptrFloat32(chatTopP),
		MaxOutputTokens:   chatMaxOutputTokens,
		SystemInstruction: genai.NewContentFromText(systemPrompt, ""),
	}

	var out string
	err = g.retry.do(ctx, func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
		if err != nil {
			return err
		}

		text := firstCandidateText(resp)
		if text == "" {
			return goerr.Wrap(ErrEmptyResponse, "no candidate in chat response")
		}

		out = text
		return nil
	})
	if err != nil {
		return "", err
	}

	return out, nil
}

// Embed returns the embedding vector for a single text, with the same retry
// policy as Chat.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := g.retry.do(ctx, func() error {
		resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{})
		if err != nil {
			return err
		}

		if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
			return goerr.Wrap(ErrEmptyResponse, "no embedding in response")
		}

		out = resp.Embeddings[0].Values
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Similarity is the cosine similarity primitive over embedding vectors.
func (g *GeminiClient) Similarity(a, b []float32) float64 {
	return vector.Cosine(a, b)
}

// buildContents converts gateway history into genai contents. Only "user" and
// "assistant" roles are accepted.
func buildContents(history []model.ChatMessage) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case model.RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case model.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			return nil, goerr.Wrap(ErrUnsupportedRole, "cannot map message role", goerr.V("role", msg.Role))
		}
	}
	return contents, nil
}

// firstCandidateText extracts the text of the first candidate, concatenating
// multi-part responses.
func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.Join(parts, "")
}

func ptrFloat32(f float32) *float32 {
	return &f
}
