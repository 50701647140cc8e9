package models

// Snapshot is one delivery from the remote live subscription: the complete
// current row set for one entity type. Fresh distinguishes an up-to-date
// delivery from a cached one; only fresh snapshots may drive reconciliation,
// a stale one could retire pending ops the remote has not actually applied.
type Snapshot struct {
	Rows  []Record `json:"rows"`
	Fresh bool     `json:"fresh"`
}
