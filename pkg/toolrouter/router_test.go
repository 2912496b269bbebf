package toolrouter

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession is an in-memory endpoint exposing a fixed operation list.
type fakeSession struct {
	tools    []mcp.Tool
	results  map[string]*mcp.CallToolResult
	callErr  error
	closed   int
	closeErr error
	lastCall mcp.CallToolRequest
}

func (s *fakeSession) ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	return &mcp.ListToolsResult{Tools: s.tools}, nil
}

func (s *fakeSession) CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.lastCall = req
	if s.callErr != nil {
		return nil, s.callErr
	}
	if result, ok := s.results[req.Params.Name]; ok {
		return result, nil
	}
	return mcp.NewToolResultText("default"), nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return s.closeErr
}

func simpleTool(name string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription("test tool "+name),
		mcp.WithString("text", mcp.Required(), mcp.Description("input text")),
	)
}

func newConnectedRouter(t *testing.T, key string, sess session) *Router {
	t.Helper()
	r := New(t.TempDir(), nil, nil, zerolog.Nop())
	require.NoError(t, r.registerEndpoint(context.Background(), key, sess))
	r.sessions[key] = sess
	return r
}

func TestNewPartitionsAgentRefs(t *testing.T) {
	r := New("/proj", []string{"summarizer", "filesystem", "scraper"}, []string{"summarizer", "researcher"}, zerolog.Nop())

	assert.Equal(t, []string{"summarizer", "filesystem", "scraper"}, r.refs)
	_, isAgent := r.agentRefs["summarizer"]
	assert.True(t, isAgent)
	_, isAgent = r.agentRefs["filesystem"]
	assert.False(t, isAgent)
}

func TestRegisterAgentToolSchema(t *testing.T) {
	r := New("/proj", []string{"helper"}, []string{"helper"}, zerolog.Nop())
	r.registerAgentTool("helper")

	schemas := r.Schemas()
	require.Len(t, schemas, 1)
	assert.Equal(t, "agent_helper", schemas[0].Name)
	assert.Contains(t, schemas[0].Description, "'helper' agent")

	props := schemas[0].InputSchema["properties"].(map[string]any)
	_, hasMessage := props["message"]
	assert.True(t, hasMessage)
	assert.Equal(t, []string{"message"}, schemas[0].InputSchema["required"])

	route, ok := r.Route("agent_helper")
	require.True(t, ok)
	assert.Equal(t, RouteDelegation, route.Kind)
	assert.Equal(t, "helper", route.Agent)
}

func TestQualifiedNameRoundTrip(t *testing.T) {
	qualified := QualifiedName("notes", "read_file")
	assert.Equal(t, "notes__read_file", qualified)

	endpoint, op, ok := SplitQualifiedName(qualified)
	require.True(t, ok)
	assert.Equal(t, "notes", endpoint)
	assert.Equal(t, "read_file", op)

	_, _, ok = SplitQualifiedName("not-qualified")
	assert.False(t, ok)
}

func TestRegisterEndpointQualifiesOperations(t *testing.T) {
	sess := &fakeSession{tools: []mcp.Tool{simpleTool("read"), simpleTool("write")}}
	r := newConnectedRouter(t, "notes", sess)

	schemas := r.Schemas()
	require.Len(t, schemas, 2)
	assert.Equal(t, "notes__read", schemas[0].Name)
	assert.Equal(t, "notes__write", schemas[1].Name)

	route, ok := r.Route("notes__read")
	require.True(t, ok)
	assert.Equal(t, RouteTool, route.Kind)
	assert.Equal(t, "notes", route.Endpoint)
	assert.Equal(t, "read", route.Operation)
}

func TestCallToolDispatchesWithBareOperationName(t *testing.T) {
	sess := &fakeSession{
		tools:   []mcp.Tool{simpleTool("read")},
		results: map[string]*mcp.CallToolResult{"read": mcp.NewToolResultText("file contents")},
	}
	r := newConnectedRouter(t, "notes", sess)

	out := r.CallTool(context.Background(), "notes__read", map[string]any{"text": "a.txt"})
	assert.Equal(t, "file contents", out)
	assert.Equal(t, "read", sess.lastCall.Params.Name, "endpoint must see the bare operation name")
}

func TestCallToolUnknownName(t *testing.T) {
	r := New(t.TempDir(), nil, nil, zerolog.Nop())
	out := r.CallTool(context.Background(), "nope__missing", nil)
	assert.JSONEq(t, `{"error": "Unknown tool: nope__missing"}`, out)
}

func TestCallToolRejectsDelegationRoutes(t *testing.T) {
	r := New("/proj", []string{"helper"}, []string{"helper"}, zerolog.Nop())
	r.registerAgentTool("helper")

	out := r.CallTool(context.Background(), "agent_helper", map[string]any{"message": "hi"})
	assert.JSONEq(t, `{"error": "Unknown tool: agent_helper"}`, out)
}

func TestCallToolValidatesArguments(t *testing.T) {
	sess := &fakeSession{tools: []mcp.Tool{simpleTool("read")}}
	r := newConnectedRouter(t, "notes", sess)

	out := r.CallTool(context.Background(), "notes__read", map[string]any{})
	assert.Contains(t, out, "Invalid arguments for notes__read")
}

func TestCallToolEndpointFailureIsInline(t *testing.T) {
	sess := &fakeSession{
		tools:   []mcp.Tool{simpleTool("read")},
		callErr: errors.New("pipe broke"),
	}
	r := newConnectedRouter(t, "notes", sess)

	out := r.CallTool(context.Background(), "notes__read", map[string]any{"text": "x"})
	assert.JSONEq(t, `{"error": "Tool call failed: pipe broke"}`, out)
}

func TestFlattenResult(t *testing.T) {
	t.Run("joins text segments", func(t *testing.T) {
		result := &mcp.CallToolResult{Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: "one"},
			mcp.TextContent{Type: "text", Text: "two"},
		}}
		assert.Equal(t, "one\ntwo", flattenResult(result))
	})

	t.Run("empty result gets placeholder", func(t *testing.T) {
		assert.Equal(t, "(empty result)", flattenResult(&mcp.CallToolResult{}))
	})

	t.Run("non-text segments render as JSON", func(t *testing.T) {
		result := &mcp.CallToolResult{Content: []mcp.Content{
			mcp.ImageContent{Type: "image", Data: "abc", MIMEType: "image/png"},
		}}
		out := flattenResult(result)
		assert.Contains(t, out, `"image"`)
		assert.Contains(t, out, `"abc"`)
	})
}

func TestDisconnectIsIdempotent(t *testing.T) {
	sess := &fakeSession{tools: []mcp.Tool{simpleTool("read")}, closeErr: errors.New("already closed")}
	r := newConnectedRouter(t, "notes", sess)

	r.Disconnect()
	r.Disconnect()
	assert.Equal(t, 1, sess.closed, "second disconnect must not re-close the session")

	// Routes survive disconnect but dispatch reports the endpoint gone.
	out := r.CallTool(context.Background(), "notes__read", map[string]any{"text": "x"})
	assert.JSONEq(t, `{"error": "Endpoint \"notes\" is not connected"}`, out)
}

func TestDuplicateQualifiedNameRejected(t *testing.T) {
	r := New(t.TempDir(), nil, nil, zerolog.Nop())
	sess := &fakeSession{tools: []mcp.Tool{simpleTool("read")}}
	require.NoError(t, r.registerEndpoint(context.Background(), "notes", sess))
	r.sessions["notes"] = sess

	dup := &fakeSession{tools: []mcp.Tool{simpleTool("read")}}
	err := r.registerEndpoint(context.Background(), "notes", dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate qualified tool name")

	// The failed session was never stored, so the close that Connect
	// performs on failure is the only close it ever sees.
	require.NoError(t, dup.Close())
	r.Disconnect()
	assert.Equal(t, 1, dup.closed, "rejected session must be closed exactly once")
	assert.Equal(t, 1, sess.closed)
}
