// Package store implements the local durable store of the replication
// engine: for every registered entity type it maintains a synced-mirror
// table (last known remote truth) and a pending-log table (ordered local
// mutations the remote store has not yet absorbed).
//
// The mirror is single-writer: only the sync orchestrator calls
// ReplaceSyncedAll. The pending log is multi-writer through AppendPending
// but deleted from only by the reconciler and the write buffer's own
// completion path. Each method transacts against its own table pair, so
// operations on different entity types never block each other.
package store

import (
	"context"

	"github.com/deeprecall/replica/models"
)

// LocalStore is the generic per-entity-type durable storage contract.
type LocalStore interface {
	// RegisterType creates the type's synced/pending table pair if absent and
	// records the descriptor in the entity registry. Idempotent.
	RegisterType(ctx context.Context, et models.EntityType) error

	// GetSyncedAll returns every row of the type's synced mirror.
	GetSyncedAll(ctx context.Context, et models.EntityType) ([]models.Record, error)

	// ReplaceSyncedAll atomically replaces the synced mirror with rows:
	// ids absent from rows are deleted, the rest are upserted, all inside a
	// single transaction so a partial failure cannot leave a mixed state.
	ReplaceSyncedAll(ctx context.Context, et models.EntityType, rows []models.Record) error

	// GetPendingAll returns the type's pending log in ascending seq order.
	GetPendingAll(ctx context.Context, et models.EntityType) ([]models.PendingOp, error)

	// AppendPending appends op to the pending log and returns it with the
	// store-assigned monotonic Seq.
	AppendPending(ctx context.Context, et models.EntityType, op models.PendingOp) (models.PendingOp, error)

	// MarkPending transitions the status of the op identified by seq.
	// errMsg is persisted alongside (empty clears any previous message).
	MarkPending(ctx context.Context, et models.EntityType, seq int64, status models.OpStatus, errMsg string) error

	// DeletePending removes a single pending op by seq.
	DeletePending(ctx context.Context, et models.EntityType, seq int64) error

	// DeletePendingByEntity removes every pending op for entityID and returns
	// the number of retired ops.
	DeletePendingByEntity(ctx context.Context, et models.EntityType, entityID string) (int64, error)

	// Stats reports row counts for the type's table pair.
	Stats(ctx context.Context, et models.EntityType) (models.StoreStats, error)
}
