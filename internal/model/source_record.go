package model

import (
	"fmt"
	"strings"
)

// SourceRecord is one ingestible unit: an inventory product or an uploaded document.
type SourceRecord struct {
	SourceID    string `json:"source_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TenantID    string `json:"tenant_id"`
}

func (r *SourceRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.SourceID) == "" {
		return fmt.Errorf("source_id is required")
	}
	if strings.TrimSpace(r.TenantID) == "" {
		return fmt.Errorf("tenant_id is required for source %s", r.SourceID)
	}
	if strings.TrimSpace(r.Name) == "" && strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("source %s has no text", r.SourceID)
	}
	return nil
}

// Text is what gets chunked and embedded.
func (r *SourceRecord) Text() string {
	name := strings.TrimSpace(r.Name)
	desc := strings.TrimSpace(r.Description)
	switch {
	case name == "":
		return desc
	case desc == "":
		return name
	}
	return name + "\n" + desc
}

type IngestReport struct {
	Records       int `json:"records"`
	Rejected      int `json:"rejected"`
	Skipped       int `json:"skipped"`
	Ingested      int `json:"ingested"`
	Chunks        int `json:"chunks"`
	FailedBatches int `json:"failed_batches"`
	// TenantChunks is the tenant's stored chunk total after a single
	// tenant ingest. It is not merged.
	TenantChunks int `json:"tenant_chunks,omitempty"`
}

func (r *IngestReport) Merge(other *IngestReport) {
	if other == nil {
		return
	}
	r.Records += other.Records
	r.Rejected += other.Rejected
	r.Skipped += other.Skipped
	r.Ingested += other.Ingested
	r.Chunks += other.Chunks
	r.FailedBatches += other.FailedBatches
}

// SourceKey identifies the chunks of one source within one tenant.
type SourceKey struct {
	TenantID string
	SourceID string
}
