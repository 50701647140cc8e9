package service

import (
	"context"
	"fmt"

	"github.com/deeprecall/replica/internal/logger"
	"github.com/deeprecall/replica/internal/store"
	"github.com/deeprecall/replica/models"
)

type reconciler struct {
	store store.LocalStore
}

// NewReconciler creates a reconciler retiring pending ops from localStore.
func NewReconciler(localStore store.LocalStore) Reconciler {
	return &reconciler{store: localStore}
}

// Reconcile implements Reconciler. Retirement is intentionally coarse, per
// id rather than per field: a synced row for an id confirms every pending
// insert and update for that id, with no check that the row carries the
// intended values. Deletes are confirmed the other way round, by the id
// being absent from the fresh snapshot; a pending delete for a still-present
// id stays in the log so the entity keeps being suppressed from the merged
// view until the remote store actually drops it.
func (r *reconciler) Reconcile(ctx context.Context, et models.EntityType, rows []models.Record) error {
	log := logger.FromContext(ctx)

	present := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if id, ok := row.ID(et.IDField); ok {
			present[id] = struct{}{}
		}
	}

	ops, err := r.store.GetPendingAll(ctx, et)
	if err != nil {
		return fmt.Errorf("read pending log for %s: %w", et.Name, err)
	}

	var retired int64
	for _, op := range ops {
		_, inSnapshot := present[op.EntityID]

		confirmed := (inSnapshot && op.Kind != models.OpDelete) ||
			(!inSnapshot && op.Kind == models.OpDelete)
		if !confirmed {
			continue
		}

		if err := r.store.DeletePending(ctx, et, op.Seq); err != nil {
			return fmt.Errorf("retire pending %s for %s id=%s: %w", op.Kind, et.Name, op.EntityID, err)
		}
		retired++
	}

	if retired > 0 {
		log.Debug().
			Str("func", "reconciler.Reconcile").
			Str("entity_type", et.Name).
			Int64("retired", retired).
			Msg("pending ops retired")
	}

	return nil
}
