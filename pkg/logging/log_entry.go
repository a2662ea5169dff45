package logging

// LogEntry represents a structured log record emitted by the evaluation pipeline.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Evaluation-specific fields
	SessionID string // Session of the trace under evaluation
	Step      string // Orchestrator step that produced the entry

	// General structured data
	Fields map[string]interface{}
}
