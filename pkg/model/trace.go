package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	ThoughtID     string
	ActionID      string
	ObservationID string
)

// Thought is one reasoning step of a planning session. Thoughts live only for
// the duration of the session and are never persisted.
type Thought struct {
	ID        ThoughtID
	Content   string
	Timestamp time.Time
}

func NewThought(content string) *Thought {
	return &Thought{
		ID:        ThoughtID(uuid.New().String()),
		Content:   content,
		Timestamp: time.Now(),
	}
}

// ActionType enumerates the action kinds the planner understands. A parsed
// action whose name is not in this set keeps its raw name; the executor
// rejects it as unsupported.
type ActionType string

const (
	ActionAnswer    ActionType = "answer"
	ActionSearch    ActionType = "search_information"
	ActionCalculate ActionType = "perform_calculation"
)

// knownActions is the closed set of action kinds, used to normalize parsed
// action names.
var knownActions = map[string]ActionType{
	string(ActionAnswer):    ActionAnswer,
	string(ActionSearch):    ActionSearch,
	string(ActionCalculate): ActionCalculate,
}

// AgentAction is a structured tool request parsed from a model reply.
// Immutable once created.
type AgentAction struct {
	ID         ActionID
	Type       ActionType
	Parameters map[string]any
	Timestamp  time.Time
}

func NewAgentAction(actionType ActionType, parameters map[string]any) *AgentAction {
	if parameters == nil {
		parameters = map[string]any{}
	}
	return &AgentAction{
		ID:         ActionID(uuid.New().String()),
		Type:       actionType,
		Parameters: parameters,
		Timestamp:  time.Now(),
	}
}

// StringParam returns the named parameter if it is present and a string.
func (a *AgentAction) StringParam(name string) (string, bool) {
	v, ok := a.Parameters[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (a *AgentAction) String() string {
	params, err := json.MarshalIndent(a.Parameters, "", "  ")
	if err != nil {
		params = []byte("{}")
	}
	return fmt.Sprintf("Action: %s\nParameters: %s", a.Type, params)
}

// Observation records the outcome of executing an action. Both success and
// failure produce one; ActionID is a non-owning back-reference.
type Observation struct {
	ID        ObservationID
	Content   string
	ActionID  ActionID
	Timestamp time.Time
}

func NewObservation(content string, actionID ActionID) *Observation {
	return &Observation{
		ID:        ObservationID(uuid.New().String()),
		Content:   content,
		ActionID:  actionID,
		Timestamp: time.Now(),
	}
}

const (
	actionMarker = "ACTION:"
	paramsMarker = "PARAMETERS:"

	// Replies shorter than this without any marker are treated as a direct
	// answer rather than a reasoning step.
	implicitAnswerLimit = 500
)

// ParseAction interprets a raw model reply according to the action grammar.
//
// A reply without an "ACTION:" marker is treated as a plain thought (nil),
// unless it is short and carries no "PARAMETERS:" marker, in which case it
// becomes an implicit answer action with the trimmed reply as final_answer.
//
// Otherwise the action name runs from the marker to the end of line, and
// parameters are the JSON object between "PARAMETERS:" and the next blank
// line. Malformed parameters degrade to an empty object, never an error.
func ParseAction(response string) *AgentAction {
	if !strings.Contains(response, actionMarker) {
		if len(response) < implicitAnswerLimit && !strings.Contains(response, paramsMarker) {
			return NewAgentAction(ActionAnswer, map[string]any{
				"final_answer": strings.TrimSpace(response),
			})
		}
		return nil
	}

	_, rest, _ := strings.Cut(response, actionMarker)
	name := strings.TrimSpace(rest)
	if idx := strings.IndexByte(name, '\n'); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}

	parameters := map[string]any{}
	if _, paramsText, ok := strings.Cut(response, paramsMarker); ok {
		if idx := strings.Index(paramsText, "\n\n"); idx >= 0 {
			paramsText = paramsText[:idx]
		}
		if err := json.Unmarshal([]byte(strings.TrimSpace(paramsText)), &parameters); err != nil {
			parameters = map[string]any{}
		}
	}

	actionType := ActionType(name)
	if known, ok := knownActions[name]; ok {
		actionType = known
	}

	return NewAgentAction(actionType, parameters)
}
