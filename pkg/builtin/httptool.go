package builtin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	maxBodyChars       = 50_000
	httpRequestTimeout = 30 * time.Second
)

var allowedMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "PATCH": {}, "DELETE": {}, "HEAD": {},
}

// NewHTTPServer builds the builtin HTTP client tool server. It lets
// agents interact with any REST API; auth is handled via headers the
// agent passes.
func NewHTTPServer() *server.MCPServer {
	s := server.NewMCPServer("http", serverVersion, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("http_request",
		mcp.WithDescription("Make an HTTP request to any URL. Returns the response status and body. HTML responses are stripped to plain text."),
		mcp.WithString("method", mcp.Required(), mcp.Description("HTTP method: GET, POST, PUT, PATCH, DELETE, or HEAD.")),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to request.")),
		mcp.WithString("headers", mcp.Description("Optional request headers as a JSON object string.")),
		mcp.WithString("body", mcp.Description("Optional request body.")),
		mcp.WithString("params", mcp.Description("Optional query parameters as a JSON object string.")),
	), handleHTTPRequest)

	return s
}

func handleHTTPRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	method, err := req.RequireString("method")
	if err != nil {
		return errResult(err), nil
	}
	rawURL, err := req.RequireString("url")
	if err != nil {
		return errResult(err), nil
	}

	method = strings.ToUpper(method)
	if _, ok := allowedMethods[method]; !ok {
		return errResultf("method %q not allowed", method), nil
	}

	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		return errResultf("invalid URL: %s", rawURL), nil
	}

	if rawParams := req.GetString("params", ""); rawParams != "" {
		var params map[string]string
		if err := json.Unmarshal([]byte(rawParams), &params); err != nil {
			return errResultf("params must be a JSON object of strings: %v", err), nil
		}
		query := target.Query()
		for k, v := range params {
			query.Set(k, v)
		}
		target.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if body := req.GetString("body", ""); body != "" {
		bodyReader = strings.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return errResult(err), nil
	}

	if rawHeaders := req.GetString("headers", ""); rawHeaders != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(rawHeaders), &headers); err != nil {
			return errResultf("headers must be a JSON object of strings: %v", err), nil
		}
		for k, v := range headers {
			httpReq.Header.Set(k, v)
		}
	}

	client := &http.Client{Timeout: httpRequestTimeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return errResult(err), nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyChars*4))
	if err != nil {
		return errResult(err), nil
	}

	body := string(data)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		body = stripHTML(body)
	}
	truncated := false
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
		truncated = true
	}

	result := map[string]any{
		"status": resp.StatusCode,
		"url":    target.String(),
		"body":   body,
	}
	if truncated {
		result["truncated"] = true
	}
	return jsonResult(result)
}
