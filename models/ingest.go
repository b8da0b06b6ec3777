package models

import "time"

// DocumentReport describes how one corpus file fared during ingestion.
type DocumentReport struct {
	Name    string `json:"name"`
	Chunks  int    `json:"chunks"`
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// IngestReport summarises a full index rebuild.
type IngestReport struct {
	RunID       string           `json:"run_id"`
	Model       string           `json:"model"`
	Documents   []DocumentReport `json:"documents"`
	TotalChunks int              `json:"total_chunks"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
}

// Skipped returns the documents that contributed no chunks because of an error.
func (r *IngestReport) Skipped() []DocumentReport {
	var out []DocumentReport
	for _, d := range r.Documents {
		if d.Skipped {
			out = append(out, d)
		}
	}
	return out
}
