package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

const defaultGeminiModel = "gemini-2.0-flash"

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider implements Provider for Google Gemini via the
// Generative Language REST API.
type GeminiProvider struct {
	client  *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewGeminiProvider creates a new Gemini provider. The API key is read
// from GOOGLE_API_KEY.
func NewGeminiProvider(model string) (*GeminiProvider, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is not set")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{
		client:  &http.Client{Timeout: 120 * time.Second},
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiFunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTool    `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Chat makes an API call to Google Gemini. The canonical two-role
// history is mapped onto Gemini's "user"/"model" role vocabulary, and
// tool invocation ids are synthesized since the Gemini protocol carries
// none of its own.
func (p *GeminiProvider) Chat(ctx context.Context, messages []Message, system string, tools []ToolSchema) (*Response, error) {
	req := geminiRequest{
		Contents: convertGeminiContents(messages),
	}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	if len(tools) > 0 {
		req.Tools = convertGeminiTools(tools)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("gemini API error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini API returned status %d", httpResp.StatusCode)
	}

	return parseGeminiResponse(&resp), nil
}

// convertGeminiTools builds function declarations, stripping schema
// fields the Gemini API rejects.
func convertGeminiTools(tools []ToolSchema) []geminiTool {
	declarations := make([]geminiFunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		declarations = append(declarations, geminiFunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  stripSchemaFields(tool.InputSchema),
		})
	}
	return []geminiTool{{FunctionDeclarations: declarations}}
}

// stripSchemaFields removes JSON-schema keys Gemini does not accept.
func stripSchemaFields(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		if k == "$schema" || k == "additionalProperties" {
			continue
		}
		out[k] = v
	}
	return out
}

func convertGeminiContents(messages []Message) []geminiContent {
	// Gemini pairs a functionResponse to its functionCall by function
	// name, not by id, so recover the name from the invocation block.
	callNames := map[string]string{}
	for _, msg := range messages {
		for _, block := range msg.Content {
			if block.Type == "tool_use" {
				callNames[block.ID] = block.Name
			}
		}
	}

	contents := make([]geminiContent, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}

		parts := []geminiPart{}
		for _, block := range msg.Content {
			switch block.Type {
			case "text":
				parts = append(parts, geminiPart{Text: block.Text})
			case "tool_use":
				parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{
					Name: block.Name,
					Args: block.Input,
				}})
			case "tool_result":
				name := callNames[block.ToolUseID]
				if name == "" {
					name = block.ToolUseID
				}
				parts = append(parts, geminiPart{FunctionResponse: &geminiFunctionResponse{
					Name:     name,
					Response: map[string]any{"result": block.Content},
				}})
			}
		}
		if len(parts) > 0 {
			contents = append(contents, geminiContent{Role: role, Parts: parts})
		}
	}
	return contents
}

func parseGeminiResponse(resp *geminiResponse) *Response {
	if len(resp.Candidates) == 0 {
		return &Response{StopReason: StopReasonEndTurn}
	}

	text := ""
	toolCalls := []ToolCall{}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			toolCalls = append(toolCalls, ToolCall{
				ID:    synthesizeToolCallID(),
				Name:  part.FunctionCall.Name,
				Input: part.FunctionCall.Args,
			})
			continue
		}
		if part.Text != "" {
			if text != "" {
				text += "\n"
			}
			text += part.Text
		}
	}

	stopReason := StopReasonEndTurn
	if len(toolCalls) > 0 {
		stopReason = StopReasonToolUse
	}

	return &Response{
		Text:       text,
		ToolCalls:  toolCalls,
		StopReason: stopReason,
	}
}

// synthesizeToolCallID generates an invocation id for backends whose
// protocol omits one. The engine's result pairing requires an id.
func synthesizeToolCallID() string {
	id := uuid.New()
	return "toolu_" + fmt.Sprintf("%x", id[:])[:24]
}
