package model

// SessionExport is the top-level JSON structure for the result journal export.
type SessionExport struct {
	ExportedAt  string          `json:"exported_at"`
	NumSessions int             `json:"num_sessions"`
	Sessions    []SessionRecord `json:"sessions"`
	Attempts    []AttemptLog    `json:"attempts,omitempty"`
}
