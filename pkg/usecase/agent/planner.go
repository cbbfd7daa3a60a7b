package agent

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/karmaspark/karmaspark/pkg/adapter"
	"github.com/karmaspark/karmaspark/pkg/model"
	"github.com/karmaspark/karmaspark/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/system.md
var systemPromptRaw string

var systemPromptTmpl = template.Must(template.New("system").Parse(systemPromptRaw))

//go:embed prompt/conclude.md
var concludePromptRaw string

var concludePromptTmpl = template.Must(template.New("conclude").Parse(concludePromptRaw))

type state int

const (
	stateStart state = iota
	stateThinking
	stateActing
	stateObserving
	stateFinished
)

const (
	defaultMaxSteps  = 3
	defaultStepDelay = 2 * time.Second

	// More thinking turns in a row than this, without a parsed action,
	// and the session falls back to a direct answer.
	maxConsecutiveThinking = 5
)

// Planner drives the think-act-observe loop for a single query. A step is one
// completed act-observe round; free-form thinking does not consume steps, the
// consecutive-thinking guard bounds it instead.
type Planner struct {
	llm       adapter.LLM
	executor  *Executor
	maxSteps  int
	stepDelay time.Duration
}

type PlannerOption func(*Planner)

func WithMaxSteps(n int) PlannerOption {
	return func(p *Planner) {
		p.maxSteps = n
	}
}

// WithStepDelay overrides the pacing delay inserted before each model call.
func WithStepDelay(d time.Duration) PlannerOption {
	return func(p *Planner) {
		p.stepDelay = d
	}
}

func NewPlanner(llm adapter.LLM, opts ...PlannerOption) *Planner {
	p := &Planner{
		llm:       llm,
		executor:  NewExecutor(llm),
		maxSteps:  defaultMaxSteps,
		stepDelay: defaultStepDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of a planning session: the answer plus the raw
// observation texts gathered along the way.
type Result struct {
	Answer       string
	Observations []string
}

// Run executes the full planning session for query. It always returns a
// usable answer unless the model backend fails before any observation was
// gathered.
func (p *Planner) Run(ctx context.Context, query string, scope model.Scope) (*Result, error) {
	logger := logging.From(ctx)
	logger.Info("starting planning session", "query", query, "chat_id", scope.ChatID, "user_id", scope.UserID)

	if isGreeting(query) {
		return &Result{Answer: "Hello! How can I assist you today?"}, nil
	}

	systemPrompt, err := renderTemplate(systemPromptTmpl, query)
	if err != nil {
		return nil, err
	}

	var (
		st                  = stateStart
		thoughts            []*model.Thought
		actions             []*model.AgentAction
		observations        []*model.Observation
		step                int
		finalAnswer         string
		consecutiveThinking int
	)

	for step < p.maxSteps && st != stateFinished {
		switch st {
		case stateStart:
			thoughts = append(thoughts, model.NewThought(fmt.Sprintf(
				"I need to help answer the user's question: \"%s\". Let me think about this step by step.", query,
			)))
			st = stateThinking

		case stateThinking:
			logger.Debug("thinking", "step", step+1)
			consecutiveThinking++

			if consecutiveThinking > maxConsecutiveThinking {
				logger.Info("too many consecutive thinking steps, providing fallback answer")
				finalAnswer = p.fallbackAnswer(ctx, query, observations)
				st = stateFinished
				continue
			}

			if err := p.pause(ctx); err != nil {
				return nil, err
			}

			response, err := p.llm.Chat(ctx, systemPrompt, buildTranscript(thoughts, actions, observations))
			if err != nil {
				logger.Error("model call failed during thinking", "error", err)
				if len(observations) > 0 {
					return &Result{
						Answer:       partialAnswer(query, observations),
						Observations: observationTexts(observations),
					}, nil
				}
				return nil, goerr.Wrap(err, "failed to get model response")
			}

			action := model.ParseAction(response)
			if action == nil {
				// Free-form reasoning, keep thinking.
				thoughts = append(thoughts, model.NewThought(response))
				continue
			}
			consecutiveThinking = 0

			if action.Type == model.ActionAnswer {
				// A non-string final_answer counts as missing: the session
				// keeps thinking instead of finishing with an empty answer.
				if answer, ok := action.StringParam("final_answer"); ok {
					finalAnswer = answer
					thoughts = append(thoughts, model.NewThought("I now have the answer: "+answer))
					st = stateFinished
				} else {
					logger.Warn("answer action without final_answer parameter")
					thoughts = append(thoughts, model.NewThought("I need to provide a clear answer"))
				}
				continue
			}

			thoughts = append(thoughts, model.NewThought(fmt.Sprintf("I need to %s", action.Type)))
			actions = append(actions, action)
			st = stateActing

		case stateActing:
			action := actions[len(actions)-1]
			logger.Info("executing action", "step", step+1, "action", action.Type)

			if err := p.pause(ctx); err != nil {
				return nil, err
			}

			result, err := p.executor.Execute(ctx, action)
			if err != nil {
				logger.Error("action execution failed", "error", err)
				result = fmt.Sprintf("Error: %v", err)
			}
			observations = append(observations, model.NewObservation(result, action.ID))
			st = stateObserving

		case stateObserving:
			st = stateThinking
			step++
		}
	}

	if st != stateFinished {
		logger.Info("reached maximum steps without final answer, generating summary")
		finalAnswer, err = p.conclude(ctx, query, thoughts, actions, observations)
		if err != nil {
			return nil, err
		}
	}

	return &Result{Answer: finalAnswer, Observations: observationTexts(observations)}, nil
}

// isGreeting short-circuits trivial salutations so they never cost a model
// call.
func isGreeting(query string) bool {
	if len(query) >= 10 {
		return false
	}
	lower := strings.ToLower(query)
	return strings.Contains(lower, "hello") ||
		strings.Contains(lower, "hi") ||
		strings.Contains(lower, "hey")
}

// fallbackAnswer resolves a session stuck in thinking. With observations it
// assembles a partial answer; without, it asks the model directly one last
// time.
func (p *Planner) fallbackAnswer(ctx context.Context, query string, observations []*model.Observation) string {
	if len(observations) > 0 {
		return partialAnswer(query, observations)
	}

	prompt := fmt.Sprintf("You are a helpful assistant. Provide a direct, concise answer to this question: \"%s\"", query)
	direct, err := p.llm.Chat(ctx, prompt, nil)
	if err != nil {
		direct = "I'm not able to provide a complete answer at this time. Please try asking your question differently."
	}

	return fmt.Sprintf("I've thought about your question \"%s\" and here's my answer:\n\n", query) + direct
}

// conclude generates a summary answer when the step limit runs out. A model
// failure here degrades to an apology rather than an error: the session has
// already spent its steps.
func (p *Planner) conclude(ctx context.Context, query string, thoughts []*model.Thought, actions []*model.AgentAction, observations []*model.Observation) (string, error) {
	systemPrompt, err := renderTemplate(concludePromptTmpl, query)
	if err != nil {
		return "", err
	}

	messages := transcriptMessages(thoughts, actions, observations)
	messages = append(messages, model.ChatMessage{
		Role:    model.RoleUser,
		Content: "Based on all the information you've gathered, what's your final answer to my question?",
	})

	answer, err := p.llm.Chat(ctx, systemPrompt, messages)
	if err != nil {
		logging.From(ctx).Error("failed to generate final answer", "error", err)
		return "I wasn't able to find a complete answer to your question in the time available.", nil
	}
	return answer, nil
}

func partialAnswer(query string, observations []*model.Observation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "I encountered an issue while processing your question about '%s', but here's what I found so far:\n\n", query)
	for i, obs := range observations {
		fmt.Fprintf(&sb, "Finding %d: %s\n\n", i+1, obs.Content)
	}
	sb.WriteString("\nI apologize that I couldn't complete the full analysis due to technical limitations.")
	return sb.String()
}

// transcriptMessages renders the session so far as alternating chat messages.
// Observations come back as user messages so the model sees tool output as
// external input.
func transcriptMessages(thoughts []*model.Thought, actions []*model.AgentAction, observations []*model.Observation) []model.ChatMessage {
	var messages []model.ChatMessage
	for i, thought := range thoughts {
		messages = append(messages, model.ChatMessage{
			Role:    model.RoleAssistant,
			Content: fmt.Sprintf("Thought %d: %s", i+1, thought.Content),
		})
		if i < len(actions) {
			messages = append(messages, model.ChatMessage{
				Role:    model.RoleAssistant,
				Content: fmt.Sprintf("Action %d: %s", i+1, actions[i].String()),
			})
			if i < len(observations) {
				messages = append(messages, model.ChatMessage{
					Role:    model.RoleUser,
					Content: fmt.Sprintf("Observation %d: %s", i+1, observations[i].Content),
				})
			}
		}
	}
	return messages
}

// buildTranscript is transcriptMessages plus the trailing prompt asking the
// model for its next move.
func buildTranscript(thoughts []*model.Thought, actions []*model.AgentAction, observations []*model.Observation) []model.ChatMessage {
	messages := transcriptMessages(thoughts, actions, observations)

	next := "What is your next step? You can either think more about the problem, take an action, or provide your final answer."
	if len(messages) == 0 {
		next = "What is your first step to solve this problem?"
	}
	return append(messages, model.ChatMessage{Role: model.RoleUser, Content: next})
}

func observationTexts(observations []*model.Observation) []string {
	texts := make([]string, 0, len(observations))
	for _, obs := range observations {
		texts = append(texts, obs.Content)
	}
	return texts
}

// pause inserts the pacing delay before a model call to stay under rate
// limits.
func (p *Planner) pause(ctx context.Context) error {
	if p.stepDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(p.stepDelay):
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "planning canceled")
	}
}

func renderTemplate(tmpl *template.Template, query string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{"Query": query}); err != nil {
		return "", goerr.Wrap(err, "failed to execute prompt template")
	}
	return buf.String(), nil
}
