package builtin

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// jsonResult renders a value as a JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errResult renders an error in the same inline shape the agent loop
// surfaces to the model.
func errResult(err error) *mcp.CallToolResult {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return mcp.NewToolResultText(string(data))
}

func errResultf(format string, args ...any) *mcp.CallToolResult {
	return errResult(fmt.Errorf(format, args...))
}
