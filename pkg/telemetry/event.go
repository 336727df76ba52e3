package telemetry

import "time"

// Level is the severity of an event
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

// Event is an error or message captured by a producer
type Event struct {
	EventID     EventID           `json:"event_id"`
	Timestamp   time.Time         `json:"timestamp"`
	Level       Level             `json:"level,omitempty"`
	Message     string            `json:"message,omitempty"`
	Platform    string            `json:"platform,omitempty"`
	Logger      string            `json:"logger,omitempty"`
	Release     string            `json:"release,omitempty"`
	Environment string            `json:"environment,omitempty"`
	ServerName  string            `json:"server_name,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Extra       map[string]any    `json:"extra,omitempty"`
	Sdk         *SdkVersion       `json:"sdk,omitempty"`
}

// NewEvent creates an event with a fresh id and the current time
func NewEvent(level Level, message string) *Event {
	return &Event{
		EventID:   NewEventID(),
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Platform:  "go",
	}
}
