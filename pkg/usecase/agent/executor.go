package agent

import (
	"context"
	"fmt"

	"github.com/karmaspark/karmaspark/pkg/adapter"
	"github.com/karmaspark/karmaspark/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

type handlerFunc func(ctx context.Context, action *model.AgentAction) (string, error)

// Executor performs parsed actions. Both tools are backed by the model
// itself; the dispatch table makes adding real tool integrations a matter of
// registering another handler.
type Executor struct {
	llm      adapter.LLM
	handlers map[model.ActionType]handlerFunc
}

func NewExecutor(llm adapter.LLM) *Executor {
	x := &Executor{llm: llm}
	x.handlers = map[model.ActionType]handlerFunc{
		model.ActionSearch:    x.searchInformation,
		model.ActionCalculate: x.performCalculation,
	}
	return x
}

// Execute dispatches the action to its handler. Answer actions never reach
// the executor; they terminate the planning loop instead.
func (x *Executor) Execute(ctx context.Context, action *model.AgentAction) (string, error) {
	handler, ok := x.handlers[action.Type]
	if !ok {
		return "", goerr.Wrap(ErrUnsupportedAction, "no handler registered", goerr.V("action", action.Type))
	}
	return handler(ctx, action)
}

func (x *Executor) searchInformation(ctx context.Context, action *model.AgentAction) (string, error) {
	query, ok := action.StringParam("query")
	if !ok {
		return "", goerr.Wrap(ErrMissingParameter, "no search query provided", goerr.V("action", action.Type))
	}
	if query == "" {
		return "No search query provided.", nil
	}

	prompt := fmt.Sprintf("You are a search engine. Provide a brief, factual answer to this query: \"%s\"", query)
	result, err := x.llm.Chat(ctx, prompt, []model.ChatMessage{
		{Role: model.RoleUser, Content: query},
	})
	if err != nil {
		return "", goerr.Wrap(err, "search failed", goerr.V("query", query))
	}
	return result, nil
}

func (x *Executor) performCalculation(ctx context.Context, action *model.AgentAction) (string, error) {
	expression, ok := action.StringParam("expression")
	if !ok {
		return "", goerr.Wrap(ErrMissingParameter, "no calculation expression provided", goerr.V("action", action.Type))
	}
	if expression == "" {
		return "No calculation expression provided.", nil
	}

	prompt := fmt.Sprintf("You are a calculator. Compute the result of this expression: \"%s\". Return only the numeric result without explanation.", expression)
	result, err := x.llm.Chat(ctx, prompt, []model.ChatMessage{
		{Role: model.RoleUser, Content: expression},
	})
	if err != nil {
		return "", goerr.Wrap(err, "calculation failed", goerr.V("expression", expression))
	}
	return result, nil
}
