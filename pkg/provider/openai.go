package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIProvider implements Provider for OpenAI
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider. The API key is read
// from OPENAI_API_KEY.
func NewOpenAIProvider(model string) (*OpenAIProvider, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Chat makes an API call to OpenAI. The canonical two-role history is
// remapped onto OpenAI's role vocabulary: tool_use blocks become tool
// calls on an assistant message, tool_result blocks become "tool" role
// messages keyed by call id.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, system string, tools []ToolSchema) (*Response, error) {
	openaiMessages := []openai.ChatCompletionMessageParamUnion{}

	if system != "" {
		openaiMessages = append(openaiMessages, openai.SystemMessage(system))
	}

	for _, msg := range messages {
		converted, err := convertOpenAIMessage(msg)
		if err != nil {
			return nil, err
		}
		openaiMessages = append(openaiMessages, converted...)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: openaiMessages,
	}

	if len(tools) > 0 {
		openaiTools := make([]openai.ChatCompletionToolParam, 0, len(tools))
		for _, tool := range tools {
			openaiTools = append(openaiTools, openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: openai.String(tool.Description),
					Parameters:  openai.FunctionParameters(tool.InputSchema),
				},
			})
		}
		params.Tools = openaiTools
	}

	response, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	choice := response.Choices[0]

	toolCalls := []ToolCall{}
	for _, tc := range choice.Message.ToolCalls {
		var input map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
			return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
		}
		toolCalls = append(toolCalls, ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}

	stopReason := StopReasonEndTurn
	if choice.FinishReason == "tool_calls" || len(toolCalls) > 0 {
		stopReason = StopReasonToolUse
	}

	return &Response{
		Text:       choice.Message.Content,
		ToolCalls:  toolCalls,
		StopReason: stopReason,
	}, nil
}

// convertOpenAIMessage maps one canonical turn to the OpenAI message
// shapes it expands into. A canonical user turn carrying tool_result
// blocks expands into one "tool" message per block.
func convertOpenAIMessage(msg Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := []openai.ChatCompletionMessageParamUnion{}

	if msg.Role == "assistant" {
		text := ""
		toolCalls := []openai.ChatCompletionMessageToolCall{}
		for _, block := range msg.Content {
			switch block.Type {
			case "text":
				text += block.Text
			case "tool_use":
				inputJSON, err := json.Marshal(block.Input)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal tool input: %w", err)
				}
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCall{
					ID:   block.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunction{
						Name:      block.Name,
						Arguments: string(inputJSON),
					},
				})
			}
		}
		if len(toolCalls) > 0 {
			assistantMsg := openai.ChatCompletionMessage{
				Role:      "assistant",
				Content:   text,
				ToolCalls: toolCalls,
			}
			out = append(out, assistantMsg.ToParam())
		} else {
			out = append(out, openai.AssistantMessage(text))
		}
		return out, nil
	}

	// User turn: plain text and tool results
	text := ""
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "tool_result":
			out = append(out, openai.ToolMessage(block.Content, block.ToolUseID))
		}
	}
	if text != "" {
		out = append(out, openai.UserMessage(text))
	}
	return out, nil
}
