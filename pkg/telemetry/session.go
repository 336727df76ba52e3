package telemetry

import "time"

// SessionStatus is the state a session update reports
type SessionStatus string

const (
	SessionOK       SessionStatus = "ok"
	SessionExited   SessionStatus = "exited"
	SessionCrashed  SessionStatus = "crashed"
	SessionAbnormal SessionStatus = "abnormal"
)

// SessionUpdate reports the state of a release health session
type SessionUpdate struct {
	SessionID  string            `json:"sid"`
	DistinctID string            `json:"did,omitempty"`
	Init       bool              `json:"init"`
	Started    time.Time         `json:"started"`
	Timestamp  time.Time         `json:"timestamp"`
	Sequence   int64             `json:"seq"`
	Duration   float64           `json:"duration,omitempty"`
	ErrorCount int               `json:"errors"`
	Status     SessionStatus     `json:"status"`
	Attributes SessionAttributes `json:"attrs"`
}

// SessionAttributes are the release and environment a session belongs to
type SessionAttributes struct {
	Release     string `json:"release"`
	Environment string `json:"environment,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
}
