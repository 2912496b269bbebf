package toolrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/ezagent/ez/pkg/builtin"
	"github.com/ezagent/ez/pkg/provider"
)

// AgentToolPrefix namespaces synthetic agent-as-tool schema names.
const AgentToolPrefix = "agent_"

// emptyResultText is the deterministic placeholder returned when an
// endpoint produces no content at all.
const emptyResultText = "(empty result)"

// RouteKind discriminates the two route variants.
type RouteKind int

const (
	// RouteTool routes to an operation on a connected endpoint.
	RouteTool RouteKind = iota
	// RouteDelegation routes to a sibling agent.
	RouteDelegation
)

// Route maps a qualified tool name to its target. Built once during
// Connect and never mutated after.
type Route struct {
	Kind      RouteKind
	Endpoint  string // endpoint key, for RouteTool
	Operation string // original operation name, for RouteTool
	Agent     string // target agent name, for RouteDelegation
}

// Router resolves an agent's configured tool references into live
// endpoint sessions and an immutable dispatch table.
type Router struct {
	projectDir string
	logger     zerolog.Logger

	// Partitioned at construction, in configured order.
	refs      []string
	agentRefs map[string]struct{}

	sessions   map[string]session
	schemas    []provider.ToolSchema
	routes     map[string]Route
	validators map[string]*gojsonschema.Schema
}

// New partitions the configured tool references against the sibling
// agent name set and the recognized builtin identifiers. Endpoint
// sessions are not opened until Connect.
func New(projectDir string, toolRefs []string, agentNames []string, logger zerolog.Logger) *Router {
	agents := make(map[string]struct{}, len(agentNames))
	for _, name := range agentNames {
		agents[name] = struct{}{}
	}

	agentRefs := make(map[string]struct{})
	for _, ref := range toolRefs {
		if _, ok := agents[ref]; ok {
			agentRefs[ref] = struct{}{}
		}
	}

	return &Router{
		projectDir: projectDir,
		logger:     logger,
		refs:       append([]string(nil), toolRefs...),
		agentRefs:  agentRefs,
		sessions:   make(map[string]session),
		routes:     make(map[string]Route),
		validators: make(map[string]*gojsonschema.Schema),
	}
}

// Connect opens a session to every non-delegation tool reference,
// fetches each endpoint's operation list, and builds the qualified
// schema list and route table. Sibling-agent references get a synthetic
// one-field schema and a delegation route.
func (r *Router) Connect(ctx context.Context) error {
	for _, ref := range r.refs {
		if _, ok := r.agentRefs[ref]; ok {
			r.registerAgentTool(ref)
			continue
		}

		var (
			sess session
			err  error
		)
		if builtin.Is(ref) {
			sess, err = openBuiltinSession(ctx, ref, r.projectDir)
		} else {
			sess, err = openProjectSession(ctx, ref, r.projectDir)
		}
		if err != nil {
			r.Disconnect()
			return fmt.Errorf("connect tool %q: %w", ref, err)
		}

		if err := r.registerEndpoint(ctx, ref, sess); err != nil {
			sess.Close()
			r.Disconnect()
			return err
		}
		r.sessions[ref] = sess
	}
	return nil
}

// registerEndpoint synthesizes one qualified schema per operation the
// endpoint exposes. It does not take ownership of the session; the
// caller stores it only once registration succeeds.
func (r *Router) registerEndpoint(ctx context.Context, key string, sess session) error {
	result, err := sess.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("list tools for %q: %w", key, err)
	}

	for _, t := range result.Tools {
		qualified := QualifiedName(key, t.Name)
		if _, exists := r.routes[qualified]; exists {
			return fmt.Errorf("duplicate qualified tool name %q", qualified)
		}

		schemaMap := inputSchemaToMap(t.InputSchema)
		r.schemas = append(r.schemas, provider.ToolSchema{
			Name:        qualified,
			Description: t.Description,
			InputSchema: schemaMap,
		})
		r.routes[qualified] = Route{Kind: RouteTool, Endpoint: key, Operation: t.Name}

		validator, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
		if err != nil {
			r.logger.Warn().Str("tool", qualified).Err(err).Msg("Tool schema not validatable, skipping argument validation")
		} else {
			r.validators[qualified] = validator
		}

		r.logger.Debug().Str("endpoint", key).Str("tool", qualified).Msg("Tool registered")
	}

	r.logger.Info().Str("endpoint", key).Int("count", len(result.Tools)).Msg("Tool endpoint connected")
	return nil
}

// registerAgentTool synthesizes the fixed delegation schema for a
// sibling agent.
func (r *Router) registerAgentTool(agentName string) {
	name := AgentToolPrefix + agentName
	r.schemas = append(r.schemas, provider.ToolSchema{
		Name:        name,
		Description: fmt.Sprintf("Delegate a task to the '%s' agent. Send a message and get back the agent's response.", agentName),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "The message or task to send to the agent.",
				},
			},
			"required": []string{"message"},
		},
	})
	r.routes[name] = Route{Kind: RouteDelegation, Agent: agentName}
}

// QualifiedName namespaces an operation under its endpoint key. Two
// endpoints may expose the same bare operation name; the qualified form
// is unique within one agent's dispatch table.
func QualifiedName(endpointKey, operation string) string {
	return endpointKey + "__" + operation
}

// SplitQualifiedName recovers the (endpoint, operation) pair from a
// qualified name.
func SplitQualifiedName(qualified string) (endpointKey, operation string, ok bool) {
	idx := strings.Index(qualified, "__")
	if idx < 0 {
		return "", "", false
	}
	return qualified[:idx], qualified[idx+2:], true
}

// Schemas returns the tool schemas in registration order.
func (r *Router) Schemas() []provider.ToolSchema {
	return r.schemas
}

// Route looks up the route for a qualified tool name.
func (r *Router) Route(name string) (Route, bool) {
	route, ok := r.routes[name]
	return route, ok
}

// CallTool dispatches a tool call through the route table and flattens
// the endpoint's result into a single text blob. Failures are returned
// as structured inline payloads so the model can see and react to them;
// CallTool never panics and never unwinds the run.
func (r *Router) CallTool(ctx context.Context, name string, args map[string]any) string {
	route, ok := r.routes[name]
	if !ok || route.Kind != RouteTool {
		return errorPayload(fmt.Sprintf("Unknown tool: %s", name))
	}

	if validator, ok := r.validators[name]; ok {
		result, err := validator.Validate(gojsonschema.NewGoLoader(args))
		if err == nil && !result.Valid() {
			problems := make([]string, 0, len(result.Errors()))
			for _, e := range result.Errors() {
				problems = append(problems, e.String())
			}
			return errorPayload(fmt.Sprintf("Invalid arguments for %s: %s", name, strings.Join(problems, "; ")))
		}
	}

	sess, ok := r.sessions[route.Endpoint]
	if !ok {
		return errorPayload(fmt.Sprintf("Endpoint %q is not connected", route.Endpoint))
	}

	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = route.Operation
	callReq.Params.Arguments = args

	result, err := sess.CallTool(ctx, callReq)
	if err != nil {
		r.logger.Warn().Str("tool", name).Err(err).Msg("Tool call failed")
		return errorPayload(fmt.Sprintf("Tool call failed: %v", err))
	}

	return flattenResult(result)
}

// Disconnect tears down every open session. Each teardown failure is
// discarded individually so one misbehaving endpoint cannot prevent the
// others from closing. Safe to call more than once.
func (r *Router) Disconnect() {
	for key, sess := range r.sessions {
		if err := sess.Close(); err != nil {
			r.logger.Debug().Str("endpoint", key).Err(err).Msg("Endpoint close error")
		}
		delete(r.sessions, key)
	}
}

// flattenResult joins an MCP result's content segments into one text
// blob. Non-text segments are rendered as JSON; an empty result maps to
// a fixed placeholder.
func flattenResult(result *mcp.CallToolResult) string {
	parts := []string{}
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		default:
			if data, err := json.Marshal(v); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	if len(parts) == 0 {
		return emptyResultText
	}
	return strings.Join(parts, "\n")
}

// inputSchemaToMap renders an endpoint's declared input schema as the
// generic JSON-object form providers accept.
func inputSchemaToMap(schema mcp.ToolInputSchema) map[string]any {
	fallback := map[string]any{"type": "object"}
	data, err := json.Marshal(schema)
	if err != nil {
		return fallback
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fallback
	}
	return out
}

func errorPayload(msg string) string {
	data, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, msg)
	}
	return string(data)
}
