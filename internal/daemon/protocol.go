package daemon

// Wire protocol: one JSON request per connection, newline-delimited
// JSON response lines. Debug lines (zero or more) precede exactly one
// terminal line of type "text" or "error"; status requests get one
// "status" line.

// Request is the single request body read from a connection.
type Request struct {
	Type    string `json:"type,omitempty"` // "status", or empty for a run request
	Agent   string `json:"agent,omitempty"`
	Message string `json:"message,omitempty"`
	Debug   bool   `json:"debug,omitempty"`
}

// ResponseLine is one newline-delimited response object.
type ResponseLine struct {
	Type   string                 `json:"type"`
	Text   string                 `json:"text,omitempty"`
	Agents map[string]AgentStatus `json:"agents,omitempty"`
}

// Response line types.
const (
	LineDebug  = "debug"
	LineText   = "text"
	LineError  = "error"
	LineStatus = "status"
)

// AgentStatus is one agent's static configuration in a status snapshot.
type AgentStatus struct {
	Description string           `json:"description"`
	Provider    string           `json:"provider"`
	Model       string           `json:"model"`
	Tools       []string         `json:"tools"`
	Skills      []string         `json:"skills"`
	Schedule    []ScheduleStatus `json:"schedule"`
}

// ScheduleStatus is one schedule entry with its live next firing time.
type ScheduleStatus struct {
	Cron    string `json:"cron"`
	Message string `json:"message"`
	NextRun string `json:"next_run"`
}
