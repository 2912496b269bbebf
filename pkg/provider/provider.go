package provider

import "context"

// Stop reasons normalized across backends.
const (
	StopReasonEndTurn = "end_turn"
	StopReasonToolUse = "tool_use"
)

// ContentBlock is one element of a message turn. Exactly one of the
// block shapes is populated, selected by Type.
type ContentBlock struct {
	Type string `json:"type"` // "text", "tool_use", or "tool_result"

	// For "text" blocks
	Text string `json:"text,omitempty"`

	// For "tool_use" blocks
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// For "tool_result" blocks
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// Message is one turn in a conversation. Block order within a turn is
// significant and must be preserved verbatim when re-sent to a backend.
type Message struct {
	Role    string         `json:"role"` // "user" or "assistant"
	Content []ContentBlock `json:"content"`
}

// TextBlock builds a plain text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// ToolUseBlock builds a tool invocation content block.
func ToolUseBlock(id, name string, input map[string]any) ContentBlock {
	return ContentBlock{Type: "tool_use", ID: id, Name: name, Input: input}
}

// ToolResultBlock builds a tool result content block paired to a
// tool invocation by id.
func ToolResultBlock(toolUseID, content string) ContentBlock {
	return ContentBlock{Type: "tool_result", ToolUseID: toolUseID, Content: content}
}

// UserMessage builds a single-text user turn.
func UserMessage(text string) Message {
	return Message{Role: "user", Content: []ContentBlock{TextBlock(text)}}
}

// ToolCall is a structured tool invocation requested by the model.
// IDs are unique within one response and stable for the lifetime of
// the turn; the engine pairs results back to invocations by them.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// Response is the canonical model response shape all backends are
// normalized into.
type Response struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// ToolSchema declares one callable tool to the model.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Provider abstracts one LLM backend's chat API.
type Provider interface {
	// Chat sends the full conversation and returns a normalized response.
	// The tools slice may be nil, in which case no tool declarations are
	// sent at all.
	Chat(ctx context.Context, messages []Message, system string, tools []ToolSchema) (*Response, error)

	// Name returns the provider name
	Name() string
}
