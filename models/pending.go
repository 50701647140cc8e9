package models

import "time"

// OpKind is the closed set of mutation kinds a pending operation can carry.
type OpKind string

const (
	OpInsert OpKind = "insert"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Valid reports whether k is one of the three known mutation kinds.
func (k OpKind) Valid() bool {
	switch k {
	case OpInsert, OpUpdate, OpDelete:
		return true
	}
	return false
}

// OpStatus tracks a pending operation through the write buffer's drain loop.
type OpStatus string

const (
	// StatusPending: appended to the pending log, not yet picked up for send.
	StatusPending OpStatus = "pending"
	// StatusSyncing: currently in flight to the remote store.
	StatusSyncing OpStatus = "syncing"
	// StatusSynced: accepted by the remote store; awaiting retirement by the
	// reconciler once the synced mirror reflects it.
	StatusSynced OpStatus = "synced"
	// StatusError: terminally failed (validation); kept for inspection.
	StatusError OpStatus = "error"
)

// PendingOp is one local mutation that the synced mirror has not yet
// absorbed. Ops are append-only: a second edit of the same entity appends a
// new op rather than rewriting an existing one. Seq is assigned by the local
// store and is monotonic per entity type.
type PendingOp struct {
	Seq       int64     `json:"seq"`
	EntityID  string    `json:"entity_id"`
	Kind      OpKind    `json:"kind"`
	Status    OpStatus  `json:"status"`
	Timestamp time.Time `json:"timestamp"`

	// Payload is the full entity for insert, the changed fields for update,
	// and nil for delete.
	Payload Record `json:"payload,omitempty"`

	// ErrorMsg holds the terminal failure reason when Status is error.
	ErrorMsg string `json:"error_msg,omitempty"`
}
