package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// decodeResult unpacks a single-text-segment JSON result.
func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	out := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestIsAndNames(t *testing.T) {
	assert.True(t, Is("filesystem"))
	assert.True(t, Is("http"))
	assert.True(t, Is("memory"))
	assert.True(t, Is("web_search"))
	assert.False(t, Is("scraper"))

	assert.Equal(t, []string{"filesystem", "http", "memory", "web_search"}, Names())
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "note.txt")

	out := decodeResult(t, mustHandle(t, handleWriteFile, callReq(map[string]any{
		"path":    path,
		"content": "first line\n",
	})))
	assert.Equal(t, float64(11), out["bytes_written"])

	out = decodeResult(t, mustHandle(t, handleWriteFile, callReq(map[string]any{
		"path":    path,
		"content": "second line\n",
		"append":  true,
	})))
	assert.Equal(t, float64(12), out["bytes_written"])

	out = decodeResult(t, mustHandle(t, handleReadFile, callReq(map[string]any{"path": path})))
	assert.Equal(t, "first line\nsecond line\n", out["content"])
}

func TestReadFileTruncatesLargeContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("a", maxReadChars+10)), 0o644))

	out := decodeResult(t, mustHandle(t, handleReadFile, callReq(map[string]any{"path": path})))
	content := out["content"].(string)
	assert.True(t, strings.HasSuffix(content, "[Content truncated]"))
	assert.Len(t, content, maxReadChars+len("\n\n[Content truncated]"))
}

func TestReadFileMissing(t *testing.T) {
	out := decodeResult(t, mustHandle(t, handleReadFile, callReq(map[string]any{
		"path": filepath.Join(t.TempDir(), "absent.txt"),
	})))
	assert.Contains(t, out["error"], "no such file")
}

func TestListDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "a_dir"), 0o755))

	out := decodeResult(t, mustHandle(t, handleListDirectory, callReq(map[string]any{"path": dir})))
	entries := out["entries"].([]any)
	require.Len(t, entries, 2)

	first := entries[0].(map[string]any)
	assert.Equal(t, "a_dir", first["name"])
	assert.Equal(t, "directory", first["type"])

	second := entries[1].(map[string]any)
	assert.Equal(t, "b.txt", second["name"])
	assert.Equal(t, "file", second["type"])
	assert.Equal(t, float64(5), second["size"])
}

func TestCreateDirectoryIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x", "y", "z")
	for i := 0; i < 2; i++ {
		out := decodeResult(t, mustHandle(t, handleCreateDirectory, callReq(map[string]any{"path": path})))
		assert.Equal(t, true, out["created"])
	}
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMemoryStoreSearchDelete(t *testing.T) {
	store, err := openMemoryStore(t.TempDir())
	require.NoError(t, err)
	defer store.db.Close()

	out := decodeResult(t, mustHandle(t, store.handleStore, callReq(map[string]any{
		"content": "the deploy key lives in vault",
	})))
	assert.Equal(t, true, out["stored"])
	assert.Equal(t, "default", out["collection"])
	id := out["id"].(string)

	decodeResult(t, mustHandle(t, store.handleStore, callReq(map[string]any{
		"content":    "standup is at 9am",
		"collection": "meetings",
	})))

	out = decodeResult(t, mustHandle(t, store.handleSearch, callReq(map[string]any{"query": "deploy"})))
	results := out["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].(map[string]any)["id"])

	out = decodeResult(t, mustHandle(t, store.handleList, callReq(map[string]any{"collection": "meetings"})))
	require.Len(t, out["memories"].([]any), 1)

	out = decodeResult(t, mustHandle(t, store.handleCollections, callReq(nil)))
	collections := out["collections"].([]any)
	require.Len(t, collections, 2)
	assert.Equal(t, "default", collections[0].(map[string]any)["name"])
	assert.Equal(t, "meetings", collections[1].(map[string]any)["name"])

	out = decodeResult(t, mustHandle(t, store.handleDelete, callReq(map[string]any{"memory_id": id})))
	assert.Equal(t, true, out["deleted"])

	out = decodeResult(t, mustHandle(t, store.handleDelete, callReq(map[string]any{"memory_id": id})))
	assert.Contains(t, out["error"], "not found")
}

func TestMemoryPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := openMemoryStore(dir)
	require.NoError(t, err)
	decodeResult(t, mustHandle(t, store.handleStore, callReq(map[string]any{"content": "durable note"})))
	require.NoError(t, store.db.Close())

	reopened, err := openMemoryStore(dir)
	require.NoError(t, err)
	defer reopened.db.Close()

	out := decodeResult(t, mustHandle(t, reopened.handleList, callReq(nil)))
	memories := out["memories"].([]any)
	require.Len(t, memories, 1)
	assert.Equal(t, "durable note", memories[0].(map[string]any)["content"])
}

func TestStripHTML(t *testing.T) {
	in := "<html><body><h1>Title</h1>\n<p>Some   <b>bold</b> text.</p></body></html>"
	assert.Equal(t, "Title Some bold text.", stripHTML(in))
}

func mustHandle(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), req mcp.CallToolRequest) *mcp.CallToolResult {
	t.Helper()
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	return result
}
