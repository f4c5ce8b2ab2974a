package domain

import (
	"encoding/json"
	"time"
)

// Channel selects the remote regulatory gateway a document travels through.
type Channel string

const (
	ChannelWaste   Channel = "waste"
	ChannelInvoice Channel = "invoice"
)

// DocumentStatus is the domain-level status of a regulatory document.
type DocumentStatus string

const (
	DocStatusDraft       DocumentStatus = "draft"
	DocStatusSubmitted   DocumentStatus = "submitted"
	DocStatusAccepted    DocumentStatus = "accepted"
	DocStatusRejected    DocumentStatus = "rejected"
	DocStatusCancelled   DocumentStatus = "cancelled"
	DocStatusNeedsReview DocumentStatus = "needs_review"
)

// SyncStatus tracks where a document stands in the transmission lifecycle,
// independent of its domain-level status. It only moves forward:
// pending -> in_transmission -> {synced | error}; a retry may re-enter
// in_transmission from error, never regress synced.
type SyncStatus string

const (
	SyncPending        SyncStatus = "pending"
	SyncInTransmission SyncStatus = "in_transmission"
	SyncSynced         SyncStatus = "synced"
	SyncError          SyncStatus = "error"
)

type Document struct {
	ID           string          `json:"id"`
	OrgID        string          `json:"org_id"`
	Environment  Environment     `json:"environment"`
	Channel      Channel         `json:"channel"`
	Status       DocumentStatus  `json:"status"`
	RemoteStatus string          `json:"remote_status,omitempty"`
	RemoteID     string          `json:"remote_id,omitempty"`
	SyncStatus   SyncStatus      `json:"sync_status"`
	SyncError    string          `json:"sync_error,omitempty"`
	LastSyncAt   *time.Time      `json:"last_sync_at,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// RemoteOutcome is a terminal result reported by a gateway for one document.
// RemoteStatus is carried verbatim; mapping to DocumentStatus happens during
// reconciliation.
type RemoteOutcome struct {
	RemoteStatus string          `json:"remote_status"`
	RemoteID     string          `json:"remote_id"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}
