package store

import "time"

// TaskStatus is the pipeline status of a Task. Transitions form the DAG
// pending -> {in_progress, blocked} -> {pending, completed}; completed is
// terminal for normal flow. The store itself allows any transition (a soft
// invariant); application code must never drive completed back to pending.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
)

// Priority is shared across tasks and bus messages.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Task is a unit of work tracked by the factory's three peer agents.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Owner       string     `json:"owner"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AlertLevel is the severity of an Alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Alert is a monotonic notification: once acknowledged, it stays acknowledged.
type Alert struct {
	ID           string     `json:"id"`
	Level        AlertLevel `json:"level"`
	Message      string     `json:"message"`
	Source       string     `json:"source"`
	Acknowledged bool       `json:"acknowledged"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Decision is an append-only record of a choice made during the run.
type Decision struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Rationale     string    `json:"rationale"`
	DecisionMaker string    `json:"decision_maker"`
	Impact        string    `json:"impact"`
	CreatedAt     time.Time `json:"created_at"`
}

// KPISample is a single point in an append-only metric time-series.
type KPISample struct {
	ID        int64     `json:"id"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// ContextEntry is an arbitrary JSON-encoded key-value fact with upsert
// semantics; consumers treat the schema of Value as soft.
type ContextEntry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"` // JSON-encoded
	UpdatedAt time.Time `json:"updated_at"`
}

// MeetingPrep is a generated briefing for a calendar event. The most recent
// row per EventID wins at read time.
type MeetingPrep struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Brief     string    `json:"brief"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// FileIndexEntry describes a single file discovered by the Librarian.
// Upserted by Path; re-indexing the same path never creates a duplicate.
type FileIndexEntry struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Extension  string    `json:"extension"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	IndexedAt  time.Time `json:"indexed_at"`
	Summary    string    `json:"summary,omitempty"`
	Tags       []string  `json:"tags"`
}

// RouteType is the kind of code symbol a CodeRoute describes.
type RouteType string

const (
	RouteFunction  RouteType = "function"
	RouteClass     RouteType = "class"
	RouteMethod    RouteType = "method"
	RouteEndpoint  RouteType = "endpoint"
	RouteHandler   RouteType = "handler"
	RouteStruct    RouteType = "struct"
	RouteInterface RouteType = "interface"
	RouteProperty  RouteType = "property"
)

// CodeRoute is a discoverable code symbol indexed for substring search.
// Routes for a file are replaced as a unit on re-index.
type CodeRoute struct {
	ID         string    `json:"id"`
	FilePath   string    `json:"file_path"`
	RouteType  RouteType `json:"route_type"`
	Name       string    `json:"name"`
	LineNumber int       `json:"line_number"`
	Signature  string    `json:"signature"`
	Docstring  string    `json:"docstring"`
	Keywords   []string  `json:"keywords"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// Discovery is an append-only record of something a peer found worth
// sharing, mirrored by a bus broadcast of the same content.
type Discovery struct {
	ID            string    `json:"id"`
	Agent         string    `json:"agent"`
	DiscoveryType string    `json:"discovery_type"`
	Description   string    `json:"description"`
	Details       string    `json:"details"` // JSON-encoded
	DiscoveredAt  time.Time `json:"discovered_at"`
}

// AgentStatusValue is the lifecycle state of a peer agent.
type AgentStatusValue string

const (
	AgentStopped   AgentStatusValue = "stopped"
	AgentRunning   AgentStatusValue = "running"
	AgentExploring AgentStatusValue = "exploring"
	AgentRouting   AgentStatusValue = "routing"
	AgentBusy      AgentStatusValue = "busy"
)

// AgentStatus is the latest known liveness/state of a peer agent. Upserted
// by AgentName.
type AgentStatus struct {
	AgentName     string           `json:"agent_name"`
	Status        AgentStatusValue `json:"status"`
	LastHeartbeat time.Time        `json:"last_heartbeat"`
	CurrentTask   string           `json:"current_task,omitempty"`
}

// AuditEventType distinguishes what kind of collaborator call an
// AuditEntry records.
type AuditEventType string

const (
	AuditLLMCall  AuditEventType = "llm_call"
	AuditToolCall AuditEventType = "tool_call"
)

// AuditEntry is an append-only record of one LLM call or tool invocation
// by a peer agent, generalizing the teacher's per-ticket audit log to
// per-message-bus exchange.
type AuditEntry struct {
	ID           string         `json:"id"`
	Agent        string         `json:"agent"`
	EventType    AuditEventType `json:"event_type"`
	PromptSize   int            `json:"prompt_size"`
	ResponseSize int            `json:"response_size"`
	DurationMS   int64          `json:"duration_ms"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
