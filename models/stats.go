package models

// StoreStats summarises the local store's state for one entity type.
// Mirrors the health report the original catalog exposed for its blob table.
type StoreStats struct {
	SyncedRows      int64              `json:"synced_rows"`
	PendingOps      int64              `json:"pending_ops"`
	PendingByStatus map[OpStatus]int64 `json:"pending_by_status"`
}
