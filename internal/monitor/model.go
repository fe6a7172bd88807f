// Package monitor is the terminal UI that watches the service through the
// REST API.
package monitor

import (
	"fmt"

	"uploadsvc/internal/api"
)

const (
	Unknown         = "Unknown"
	APIConnected    = "Connected"
	APIDisconnected = "Disconnected"
	StatusPath      = "/api/status"
)

// Event is the outcome of one API request.
type Event struct {
	Path   string
	Status *api.StatusResponse
	Action *api.ActionResponse
	Logs   []api.LogEntry
	Err    error
}

// Model is what the screen shows. Only the UI goroutine mutates it.
type Model struct {
	Service string
	API     string
	Message string
	// LastLog is the sequence number of the newest UI log entry seen.
	LastLog int64
}

func NewModel() *Model {
	return &Model{Service: Unknown, API: APIDisconnected, Message: "Waiting for status..."}
}

func (m *Model) ApplyStatus(st api.StatusResponse) {
	m.API = APIConnected
	m.Service = st.State
	if m.Service == "" {
		m.Service = Unknown
	}
	if st.OK {
		m.Message = "Status OK"
		return
	}
	msg := st.Error
	if msg == "" {
		msg = Unknown
	}
	m.Message = "Error: " + msg
}

func (m *Model) ApplyAction(resp api.ActionResponse) {
	if resp.OK {
		m.Message = "Action OK"
		return
	}
	out := resp.Output
	if out == "" {
		out = resp.Message
	}
	if out == "" {
		out = resp.Error
	}
	if out == "" {
		out = Unknown
	}
	m.Message = "Action failed: " + out
}

func (m *Model) ApplyError(err error) {
	m.API = APIDisconnected
	m.Service = Unknown
	m.Message = fmt.Sprintf("API error: %v", err)
}

// Apply folds an event into the model and returns new log entries.
func (m *Model) Apply(ev Event) []api.LogEntry {
	switch {
	case ev.Err != nil:
		m.ApplyError(ev.Err)
		return nil
	case ev.Status != nil:
		m.ApplyStatus(*ev.Status)
	case ev.Action != nil:
		m.ApplyAction(*ev.Action)
	}

	var fresh []api.LogEntry
	for _, e := range ev.Logs {
		if e.Seq > m.LastLog {
			fresh = append(fresh, e)
			m.LastLog = e.Seq
		}
	}
	return fresh
}
