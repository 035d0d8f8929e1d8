package entity

import (
	"time"
)

// WorkItem identifies one appraisal document discovered in the portal.
// Immutable once created by the scheduler.
type WorkItem struct {
	Key           string // stable loan/document key
	Filename      string // reported document filename
	SourceLocator string // opaque locator understood by the discovery collaborator
	DiscoveredAt  time.Time
}

// LedgerEntry records a completed work item.
type LedgerEntry struct {
	Key         string    `json:"key"`
	CompletedAt time.Time `json:"completed_at"`
}
