package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	braveSearchURL  = "https://api.search.brave.com/res/v1/web/search"
	maxPageChars    = 20_000
	maxSearchCount  = 20
	searchTimeout   = 15 * time.Second
	pageReadTimeout = 30 * time.Second
)

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// NewWebSearchServer builds the builtin web search tool server, backed
// by the Brave Search API (BRAVE_SEARCH_API_KEY).
func NewWebSearchServer() *server.MCPServer {
	s := server.NewMCPServer("web_search", serverVersion, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("web_search",
		mcp.WithDescription("Search the web. Returns a list of results with title, url, and snippet."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query.")),
		mcp.WithNumber("count", mcp.Description("Number of results to return. Defaults to 5.")),
	), handleWebSearch)

	s.AddTool(mcp.NewTool("web_search_read",
		mcp.WithDescription("Fetch a web page and return its text content with HTML stripped."),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL of the page to read.")),
	), handleWebSearchRead)

	return s
}

func handleWebSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return errResult(err), nil
	}
	count := req.GetInt("count", 5)
	if count > maxSearchCount {
		count = maxSearchCount
	}

	apiKey := os.Getenv("BRAVE_SEARCH_API_KEY")
	if apiKey == "" {
		return errResultf("BRAVE_SEARCH_API_KEY environment variable is not set. Get a free API key at https://brave.com/search/api/"), nil
	}

	results, err := braveSearch(ctx, apiKey, query, count)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"query": query, "results": results})
}

func braveSearch(ctx context.Context, apiKey, query string, count int) ([]searchResult, error) {
	endpoint := fmt.Sprintf("%s?q=%s&count=%d", braveSearchURL, url.QueryEscape(query), count)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", apiKey)

	client := &http.Client{Timeout: searchTimeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave search returned status %d", resp.StatusCode)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]searchResult, 0, count)
	for _, item := range payload.Web.Results {
		if len(results) >= count {
			break
		}
		results = append(results, searchResult{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: item.Description,
		})
	}
	return results, nil
}

func handleWebSearchRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return errResult(err), nil
	}
	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		return errResultf("invalid URL: %s", rawURL), nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return errResult(err), nil
	}

	client := &http.Client{Timeout: pageReadTimeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return errResult(err), nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageChars*8))
	if err != nil {
		return errResult(err), nil
	}

	text := string(data)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		text = stripHTML(text)
	}
	if len(text) > maxPageChars {
		text = text[:maxPageChars] + "\n\n[Content truncated]"
	}
	return jsonResult(map[string]any{"url": target.String(), "content": text})
}
