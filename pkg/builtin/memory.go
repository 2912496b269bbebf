package builtin

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	_ "github.com/mattn/go-sqlite3"
)

const defaultCollection = "default"

// NewMemoryServer builds the builtin memory tool server. Notes are
// persisted in a project-local SQLite database so they survive daemon
// restarts.
func NewMemoryServer(projectDir string) (*server.MCPServer, error) {
	m, err := openMemoryStore(projectDir)
	if err != nil {
		return nil, err
	}

	s := server.NewMCPServer("memory", serverVersion, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("memory_store",
		mcp.WithDescription("Store a memory for later retrieval."),
		mcp.WithString("content", mcp.Required(), mcp.Description("The text to remember.")),
		mcp.WithString("collection", mcp.Description("Optional collection name. Defaults to 'default'.")),
	), m.handleStore)

	s.AddTool(mcp.NewTool("memory_search",
		mcp.WithDescription("Search stored memories by substring match."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to search for.")),
		mcp.WithString("collection", mcp.Description("Optional collection to search in. Searches all collections when omitted.")),
		mcp.WithNumber("limit", mcp.Description("Maximum results to return. Defaults to 5.")),
	), m.handleSearch)

	s.AddTool(mcp.NewTool("memory_list",
		mcp.WithDescription("List stored memories, newest first."),
		mcp.WithString("collection", mcp.Description("Optional collection to list. Lists all collections when omitted.")),
		mcp.WithNumber("limit", mcp.Description("Maximum results to return. Defaults to 20.")),
	), m.handleList)

	s.AddTool(mcp.NewTool("memory_delete",
		mcp.WithDescription("Delete a memory by id."),
		mcp.WithString("memory_id", mcp.Required(), mcp.Description("The id of the memory to delete.")),
	), m.handleDelete)

	s.AddTool(mcp.NewTool("memory_collections",
		mcp.WithDescription("List the collections that currently hold memories."),
	), m.handleCollections)

	return s, nil
}

type memoryStore struct {
	db *sql.DB
}

// openMemoryStore opens (creating if needed) the project's memory
// database at .ez/memory.db.
func openMemoryStore(projectDir string) (*memoryStore, error) {
	dataDir := filepath.Join(projectDir, ".ez")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, "memory.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_memories_collection ON memories(collection);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize memory schema: %w", err)
	}

	return &memoryStore{db: db}, nil
}

type memoryRow struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
}

func (m *memoryStore) handleStore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return errResult(err), nil
	}
	collection := req.GetString("collection", defaultCollection)

	id := uuid.New().String()
	_, err = m.db.ExecContext(ctx,
		`INSERT INTO memories (id, collection, content, created_at) VALUES (?, ?, ?, ?)`,
		id, collection, content, time.Now().UTC(),
	)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"id": id, "collection": collection, "stored": true})
}

func (m *memoryStore) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return errResult(err), nil
	}
	collection := req.GetString("collection", "")
	limit := req.GetInt("limit", 5)

	pattern := "%" + query + "%"
	var rows *sql.Rows
	if collection != "" {
		rows, err = m.db.QueryContext(ctx,
			`SELECT id, collection, content, created_at FROM memories
			 WHERE collection = ? AND content LIKE ? ORDER BY created_at DESC LIMIT ?`,
			collection, pattern, limit)
	} else {
		rows, err = m.db.QueryContext(ctx,
			`SELECT id, collection, content, created_at FROM memories
			 WHERE content LIKE ? ORDER BY created_at DESC LIMIT ?`,
			pattern, limit)
	}
	if err != nil {
		return errResult(err), nil
	}
	defer rows.Close()

	results, err := scanMemories(rows)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"query": query, "results": results})
}

func (m *memoryStore) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection := req.GetString("collection", "")
	limit := req.GetInt("limit", 20)

	var (
		rows *sql.Rows
		err  error
	)
	if collection != "" {
		rows, err = m.db.QueryContext(ctx,
			`SELECT id, collection, content, created_at FROM memories
			 WHERE collection = ? ORDER BY created_at DESC LIMIT ?`,
			collection, limit)
	} else {
		rows, err = m.db.QueryContext(ctx,
			`SELECT id, collection, content, created_at FROM memories
			 ORDER BY created_at DESC LIMIT ?`,
			limit)
	}
	if err != nil {
		return errResult(err), nil
	}
	defer rows.Close()

	results, err := scanMemories(rows)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"memories": results})
}

func (m *memoryStore) handleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("memory_id")
	if err != nil {
		return errResult(err), nil
	}
	result, err := m.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return errResult(err), nil
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errResultf("memory %q not found", id), nil
	}
	return jsonResult(map[string]any{"id": id, "deleted": true})
}

func (m *memoryStore) handleCollections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT collection, COUNT(*) FROM memories GROUP BY collection ORDER BY collection`)
	if err != nil {
		return errResult(err), nil
	}
	defer rows.Close()

	collections := []map[string]any{}
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return errResult(err), nil
		}
		collections = append(collections, map[string]any{"name": name, "count": count})
	}
	if err := rows.Err(); err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"collections": collections})
}

func scanMemories(rows *sql.Rows) ([]memoryRow, error) {
	results := []memoryRow{}
	for rows.Next() {
		var r memoryRow
		var createdAt time.Time
		if err := rows.Scan(&r.ID, &r.Collection, &r.Content, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		results = append(results, r)
	}
	return results, rows.Err()
}
