package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/karmaspark/karmaspark/pkg/model"
	"github.com/karmaspark/karmaspark/pkg/usecase/agent"
	"github.com/m-mizutani/gt"
)

func TestExecuteSearch(t *testing.T) {
	llm := &mockLLM{replies: []scriptedReply{{text: "Chess originated in India."}}}
	executor := agent.NewExecutor(llm)

	action := model.NewAgentAction(model.ActionSearch, map[string]any{"query": "history of chess"})
	result, err := executor.Execute(context.Background(), action)
	gt.NoError(t, err)
	gt.Equal(t, result, "Chess originated in India.")

	gt.A(t, llm.prompts).Length(1)
	gt.S(t, llm.prompts[0]).Contains("search engine")
	gt.S(t, llm.prompts[0]).Contains("history of chess")
	gt.A(t, llm.histories[0]).Length(1)
	gt.Equal(t, llm.histories[0][0].Role, model.RoleUser)
	gt.Equal(t, llm.histories[0][0].Content, "history of chess")
}

func TestExecuteCalculation(t *testing.T) {
	llm := &mockLLM{replies: []scriptedReply{{text: "42"}}}
	executor := agent.NewExecutor(llm)

	action := model.NewAgentAction(model.ActionCalculate, map[string]any{"expression": "6 * 7"})
	result, err := executor.Execute(context.Background(), action)
	gt.NoError(t, err)
	gt.Equal(t, result, "42")

	gt.S(t, llm.prompts[0]).Contains("calculator")
	gt.S(t, llm.prompts[0]).Contains("6 * 7")
}

func TestExecuteEmptyParameters(t *testing.T) {
	llm := &mockLLM{}
	executor := agent.NewExecutor(llm)

	t.Run("empty search query", func(t *testing.T) {
		action := model.NewAgentAction(model.ActionSearch, map[string]any{"query": ""})
		result, err := executor.Execute(context.Background(), action)
		gt.NoError(t, err)
		gt.Equal(t, result, "No search query provided.")
	})

	t.Run("empty calculation expression", func(t *testing.T) {
		action := model.NewAgentAction(model.ActionCalculate, map[string]any{"expression": ""})
		result, err := executor.Execute(context.Background(), action)
		gt.NoError(t, err)
		gt.Equal(t, result, "No calculation expression provided.")
	})

	// Empty parameters never reach the model.
	gt.A(t, llm.prompts).Length(0)
}

func TestExecuteMissingParameter(t *testing.T) {
	executor := agent.NewExecutor(&mockLLM{})

	action := model.NewAgentAction(model.ActionSearch, map[string]any{})
	_, err := executor.Execute(context.Background(), action)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, agent.ErrMissingParameter))

	// A non-string parameter is treated the same as a missing one.
	action = model.NewAgentAction(model.ActionCalculate, map[string]any{"expression": 42.0})
	_, err = executor.Execute(context.Background(), action)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, agent.ErrMissingParameter))
}

func TestExecuteUnsupportedAction(t *testing.T) {
	executor := agent.NewExecutor(&mockLLM{})

	action := model.NewAgentAction(model.ActionType("send_email"), map[string]any{"to": "a@example.com"})
	_, err := executor.Execute(context.Background(), action)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, agent.ErrUnsupportedAction))
}

func TestExecuteSearchBackendFailure(t *testing.T) {
	llm := &mockLLM{replies: []scriptedReply{{err: errors.New("backend down")}}}
	executor := agent.NewExecutor(llm)

	action := model.NewAgentAction(model.ActionSearch, map[string]any{"query": "anything"})
	_, err := executor.Execute(context.Background(), action)
	gt.Error(t, err)
}
