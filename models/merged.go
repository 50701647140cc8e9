package models

import "time"

// LocalStatus annotates a merged record whose entity still has pending local
// state. It carries the most recent pending op's kind, drain status and
// timestamp so the UI can render "saving" / "failed to sync" indicators.
type LocalStatus struct {
	Kind      OpKind    `json:"kind"`
	Status    OpStatus  `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// MergedRecord is one row of the read-time composite of synced mirror and
// pending log. Derived, never persisted. Local is nil when the synced mirror
// fully owns the row (no pending state for its id).
type MergedRecord struct {
	Fields Record       `json:"fields"`
	Local  *LocalStatus `json:"local,omitempty"`
}
