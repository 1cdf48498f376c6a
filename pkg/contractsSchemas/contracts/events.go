package contracts

import "time"

// ReloadRequest is the message payload that asks for the contracts sheet to be
// downloaded again.
type ReloadRequest struct {
	SourceURL   string    `json:"sourceUrl,omitempty"` // defaults to the configured sheet URL
	RequestedAt time.Time `json:"requestedAt"`
	RequestedBy string    `json:"requestedBy,omitempty"`
}

// MetricsSnapshotEvent is the detail of the event published after a report is built.
type MetricsSnapshotEvent struct {
	SourceKey   string       `json:"source_key"`
	ReportKey   string       `json:"report_key"`
	GeneratedAt time.Time    `json:"generated_at"`
	Criteria    Criteria     `json:"criteria"`
	Matched     int          `json:"matched"`
	Metrics     Metrics      `json:"metrics"`
	TopUnits    []GroupCount `json:"top_units"`
}
