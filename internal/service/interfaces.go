// Package service wires the replication engine together: the write buffer
// that accepts local mutations and drains them to the remote store, the sync
// orchestrator that owns the live subscription per entity type, the
// reconciler that retires confirmed pending ops, and the Engine facade the
// application talks to.
package service

import (
	"context"
	"time"

	"github.com/deeprecall/replica/models"
)

// WriteBuffer accepts local mutations, appends them to the pending log
// synchronously, and drains them to the remote store in the background.
type WriteBuffer interface {
	// Enqueue validates payload, appends it to the type's pending log with
	// status pending, and returns the stored op with its assigned Seq. It
	// never waits on the network; the drain loop sends the op later.
	// Validation failures are terminal and nothing is appended.
	Enqueue(ctx context.Context, et models.EntityType, kind models.OpKind, payload models.Record) (models.PendingOp, error)

	// Start launches the background drain goroutine. It scans the pending
	// logs of all registered types every interval, defaulting to 5 seconds if
	// interval is zero or negative. Any previously running drain is stopped
	// before the new one begins.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the drain goroutine to exit and blocks until it has fully
	// terminated. Safe to call when the drain is not running.
	Stop()
}

// Reconciler retires pending ops that a fresh snapshot has confirmed.
type Reconciler interface {
	// Reconcile deletes every pending op whose entity id appears in rows,
	// plus pending deletes whose entity id is absent from rows. Retirement is
	// per id, not per field: any synced row for an id confirms all of that
	// id's pending ops.
	Reconcile(ctx context.Context, et models.EntityType, rows []models.Record) error
}

// SyncOrchestrator is the single owner of the remote live subscription for
// every entity type it is started for. It replicates incoming snapshots into
// the synced mirror and runs reconciliation against fresh ones.
type SyncOrchestrator interface {
	// StartSync subscribes to the type's live feed and starts replicating.
	// A second StartSync for a type whose feed is still active returns
	// ErrSyncAlreadyActive.
	StartSync(ctx context.Context, et models.EntityType) error

	// StopSync releases the type's subscription and waits for its replication
	// goroutine to exit. Idempotent: stopping a type that is not running is a
	// no-op.
	StopSync(typeName string) error

	// Updates delivers the name of an entity type each time its merged view
	// may have changed because a fresh snapshot was applied. Best effort: a
	// notification is dropped if the receiver lags.
	Updates() <-chan string

	// Shutdown stops every active subscription.
	Shutdown()
}

// Engine is the application-facing facade over the whole replication engine.
// All reads are served from already-materialized local state and never block
// on the network.
type Engine interface {
	// RegisterType makes an entity type known to the engine: its table pair
	// is created, its schema compiled, and its name becomes addressable by
	// every other method.
	RegisterType(ctx context.Context, et models.EntityType) error

	// Mutate enqueues one local mutation and returns the stored pending op.
	// For insert and update the payload must carry the type's id field; for
	// delete the payload carries only the id.
	Mutate(ctx context.Context, typeName string, kind models.OpKind, payload models.Record) (models.PendingOp, error)

	// EnqueueInsert inserts with find-or-create semantics. If the type
	// declares dedup fields and the merged view already holds a record
	// matching all of them, the existing record's id is returned with
	// created=false and nothing is enqueued. Otherwise an id is generated
	// when the payload lacks one (deterministic from the dedup fields when
	// declared, random otherwise) and an insert is enqueued.
	EnqueueInsert(ctx context.Context, typeName string, payload models.Record) (id string, created bool, err error)

	// GetMergedView returns the type's current merged view: the synced
	// mirror overlaid with the pending log.
	GetMergedView(ctx context.Context, typeName string) ([]models.MergedRecord, error)

	// StartSync starts live replication for the type. At most one active
	// sync per type; duplicates return ErrSyncAlreadyActive.
	StartSync(ctx context.Context, typeName string) error

	// StopSync stops live replication for the type. Idempotent.
	StopSync(typeName string) error

	// Updates signals merged-view changes by entity type name.
	Updates() <-chan string

	// DiscardPending cancels every pending op for one entity, the escape
	// hatch for ops stuck in the error status. Returns the number of
	// discarded ops.
	DiscardPending(ctx context.Context, typeName, entityID string) (int64, error)

	// Stats reports synced/pending counts for the type.
	Stats(ctx context.Context, typeName string) (models.StoreStats, error)

	// Start launches the write buffer's drain loop.
	Start(ctx context.Context)

	// Shutdown stops the drain loop and every active subscription.
	Shutdown()
}
