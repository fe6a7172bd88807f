package api

import "uploadsvc/internal/pacs"

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	OK           bool   `json:"ok"`
	Service      string `json:"service"`
	State        string `json:"state"`
	Running      bool   `json:"running"`
	Installed    bool   `json:"installed"`
	PID          int    `json:"pid,omitempty"`
	Error        string `json:"error,omitempty"`
	APIConnected bool   `json:"apiConnected"`
	UIConnected  bool   `json:"uiConnected"`
}

// ActionResponse is returned by the control endpoints. Restart fills Stop
// and Start, uninstall fills Stop and Delete.
type ActionResponse struct {
	OK      bool   `json:"ok"`
	Output  string `json:"output,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Stop    string `json:"stop,omitempty"`
	Start   string `json:"start,omitempty"`
	Delete  string `json:"delete,omitempty"`
}

// LogRequest is the body of POST /api/ui-log.
type LogRequest struct {
	Message string `json:"message" binding:"required"`
	Source  string `json:"source"`
	Color   string `json:"color"`
}

type LogsResponse struct {
	OK      bool       `json:"ok"`
	Entries []LogEntry `json:"entries"`
	Last    int64      `json:"last"`
}

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	OK bool `json:"ok"`
	pacs.StartResult
	Error string `json:"error,omitempty"`
}
