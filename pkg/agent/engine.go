// Package agent implements the agent execution engine: the system
// preamble built from skills, the tool-use conversation loop, and
// bounded recursive delegation to sibling agents.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ezagent/ez/pkg/provider"
	"github.com/ezagent/ez/pkg/toolrouter"
)

// MaxRecursionDepth bounds agent-to-agent delegation. It is the sole
// hard limit preventing unbounded mutual delegation.
const MaxRecursionDepth = 10

const maxDebugResultLength = 200

// Result is the outcome of one agent run.
type Result struct {
	Text        string
	DebugEvents []string
}

// Delegator runs a named sibling agent. Constructed once by the
// composition root and shared by every engine.
type Delegator interface {
	RunAgent(ctx context.Context, name, message string, depth int, debug bool) (Result, error)
}

// ToolRouter is the engine's view of its tool connections.
// *toolrouter.Router is the production implementation.
type ToolRouter interface {
	Connect(ctx context.Context) error
	Schemas() []provider.ToolSchema
	Route(name string) (toolrouter.Route, bool)
	CallTool(ctx context.Context, name string, args map[string]any) string
	Disconnect()
}

// Config holds engine construction parameters.
type Config struct {
	Name        string
	Description string
	Skills      []string
	ProjectDir  string
	Provider    provider.Provider
	Router      ToolRouter
	Delegator   Delegator
	Logger      zerolog.Logger
}

// Engine runs the tool-use conversation loop for one named agent.
type Engine struct {
	name        string
	description string
	skills      []string
	projectDir  string
	provider    provider.Provider
	router      ToolRouter
	delegator   Delegator
	logger      zerolog.Logger

	systemPrompt string
}

// New creates an engine. Call Initialize before Run.
func New(cfg Config) *Engine {
	return &Engine{
		name:        cfg.Name,
		description: cfg.Description,
		skills:      cfg.Skills,
		projectDir:  cfg.ProjectDir,
		provider:    cfg.Provider,
		router:      cfg.Router,
		delegator:   cfg.Delegator,
		logger:      cfg.Logger.With().Str("agent", cfg.Name).Logger(),
	}
}

// Name returns the agent name.
func (e *Engine) Name() string {
	return e.name
}

// Initialize builds the instruction preamble from the description and
// the configured skill documents, then connects the tool router.
func (e *Engine) Initialize(ctx context.Context) error {
	parts := []string{}
	if e.description != "" {
		parts = append(parts, "You are: "+e.description)
	}

	skillsDir := filepath.Join(e.projectDir, "skills")
	for _, skill := range e.skills {
		content, err := os.ReadFile(filepath.Join(skillsDir, skill+".md"))
		if err != nil {
			e.logger.Warn().Str("skill", skill).Err(err).Msg("Skill file not readable, skipping")
			continue
		}
		parts = append(parts, fmt.Sprintf("## Skill: %s\n%s", skill, strings.TrimSpace(string(content))))
	}
	e.systemPrompt = strings.Join(parts, "\n\n")

	if e.router != nil {
		if err := e.router.Connect(ctx); err != nil {
			return fmt.Errorf("agent %q: %w", e.name, err)
		}
	}
	return nil
}

// Run executes the conversation loop: send the message, execute any
// tool invocations the model requests in order, feed the results back,
// repeat until a turn carries no invocations. Tool and delegation
// failures are surfaced to the model inline; only provider failures
// return an error.
func (e *Engine) Run(ctx context.Context, message string, depth int, debug bool) (Result, error) {
	debugEvents := []string{}

	if depth >= MaxRecursionDepth {
		return Result{
			Text:        fmt.Sprintf("[Error: Maximum agent recursion depth (%d) reached]", MaxRecursionDepth),
			DebugEvents: debugEvents,
		}, nil
	}

	if debug {
		loaded := "(none)"
		if len(e.skills) > 0 {
			loaded = strings.Join(e.skills, ", ")
		}
		debugEvents = append(debugEvents, fmt.Sprintf("[%s] Skills loaded: %s", e.name, loaded))
	}

	var tools []provider.ToolSchema
	if e.router != nil {
		tools = e.router.Schemas()
	}

	messages := []provider.Message{provider.UserMessage(message)}

	for {
		if debug {
			debugEvents = append(debugEvents, fmt.Sprintf("[%s] Calling LLM...", e.name))
		}

		response, err := e.provider.Chat(ctx, messages, e.systemPrompt, tools)
		if err != nil {
			return Result{DebugEvents: debugEvents}, fmt.Errorf("provider call failed: %w", err)
		}

		if len(response.ToolCalls) == 0 {
			return Result{Text: response.Text, DebugEvents: debugEvents}, nil
		}

		// Assistant turn: text block (if any) followed by one block per
		// invocation, in the order the provider returned them.
		blocks := []provider.ContentBlock{}
		if response.Text != "" {
			blocks = append(blocks, provider.TextBlock(response.Text))
		}
		for _, tc := range response.ToolCalls {
			blocks = append(blocks, provider.ToolUseBlock(tc.ID, tc.Name, tc.Input))
		}
		messages = append(messages, provider.Message{Role: "assistant", Content: blocks})

		// Execute invocations sequentially, in order. A later invocation
		// may depend on a side effect of an earlier one, and result order
		// must match invocation order for the provider to pair them.
		results := make([]provider.ContentBlock, 0, len(response.ToolCalls))
		for _, tc := range response.ToolCalls {
			if debug {
				debugEvents = append(debugEvents, fmt.Sprintf("[%s] Tool call: %s(%s)", e.name, tc.Name, compactJSON(tc.Input)))
			}

			resultText := e.executeTool(ctx, tc, depth, debug, &debugEvents)

			if debug {
				debugEvents = append(debugEvents, fmt.Sprintf("[%s] Tool result: %s", e.name, truncateResult(resultText)))
			}

			results = append(results, provider.ToolResultBlock(tc.ID, resultText))
		}
		messages = append(messages, provider.Message{Role: "user", Content: results})
	}
}

// executeTool dispatches one invocation: delegation to a sibling agent
// or a tool call through the router. Failures come back as structured
// inline payloads, never as errors that unwind the run.
func (e *Engine) executeTool(ctx context.Context, tc provider.ToolCall, depth int, debug bool, debugEvents *[]string) string {
	if e.router == nil {
		return inlineError("Tool router not initialized")
	}

	route, ok := e.router.Route(tc.Name)
	if ok && route.Kind == toolrouter.RouteDelegation {
		if e.delegator == nil {
			return inlineError("Agent delegation not available")
		}

		agentMessage, _ := tc.Input["message"].(string)
		if debug {
			*debugEvents = append(*debugEvents, fmt.Sprintf("[%s] Delegating to agent '%s' with message: %s", e.name, route.Agent, agentMessage))
		}

		result, err := e.delegator.RunAgent(ctx, route.Agent, agentMessage, depth+1, debug)
		if err != nil {
			return inlineError(fmt.Sprintf("Delegation to agent '%s' failed: %v", route.Agent, err))
		}
		if debug {
			*debugEvents = append(*debugEvents, result.DebugEvents...)
		}
		return result.Text
	}

	return e.router.CallTool(ctx, tc.Name, tc.Input)
}

// Shutdown disconnects the tool router.
func (e *Engine) Shutdown() {
	if e.router != nil {
		e.router.Disconnect()
	}
}

// truncateResult caps a tool result for debug output, cutting on a
// rune boundary so multibyte text stays valid UTF-8.
func truncateResult(s string) string {
	if len(s) <= maxDebugResultLength {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxDebugResultLength {
		return s
	}
	return string(runes[:maxDebugResultLength]) + "..."
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func inlineError(msg string) string {
	data, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, msg)
	}
	return string(data)
}
