package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deeprecall/replica/internal/idgen"
	"github.com/deeprecall/replica/internal/merge"
	"github.com/deeprecall/replica/internal/store"
	"github.com/deeprecall/replica/internal/validators"
	"github.com/deeprecall/replica/models"
)

type engine struct {
	store     store.LocalStore
	validator validators.PayloadValidator
	buffer    WriteBuffer
	orch      SyncOrchestrator

	drainInterval time.Duration

	mu    sync.RWMutex
	types map[string]models.EntityType
}

// RegisterType implements Engine.
func (e *engine) RegisterType(ctx context.Context, et models.EntityType) error {
	if err := et.Validate(); err != nil {
		return fmt.Errorf("invalid entity type: %w", err)
	}

	if err := e.store.RegisterType(ctx, et); err != nil {
		return fmt.Errorf("register %s in local store: %w", et.Name, err)
	}

	if err := e.validator.Register(et); err != nil {
		return fmt.Errorf("register %s schema: %w", et.Name, err)
	}

	e.mu.Lock()
	e.types[et.Name] = et
	e.mu.Unlock()

	return nil
}

// Types implements typeSource for the write buffer's drain loop.
func (e *engine) Types() []models.EntityType {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]models.EntityType, 0, len(e.types))
	for _, et := range e.types {
		out = append(out, et)
	}
	return out
}

func (e *engine) resolve(typeName string) (models.EntityType, error) {
	e.mu.RLock()
	et, ok := e.types[typeName]
	e.mu.RUnlock()

	if !ok {
		return models.EntityType{}, fmt.Errorf("%w: %s", ErrUnknownEntityType, typeName)
	}
	return et, nil
}

// Mutate implements Engine.
func (e *engine) Mutate(ctx context.Context, typeName string, kind models.OpKind, payload models.Record) (models.PendingOp, error) {
	et, err := e.resolve(typeName)
	if err != nil {
		return models.PendingOp{}, err
	}

	return e.buffer.Enqueue(ctx, et, kind, payload)
}

// EnqueueInsert implements Engine. Random ids make duplicate rows possible
// when the same semantic entity is inserted twice, so types with a declared
// dedup key get find-or-create semantics here instead.
func (e *engine) EnqueueInsert(ctx context.Context, typeName string, payload models.Record) (string, bool, error) {
	et, err := e.resolve(typeName)
	if err != nil {
		return "", false, err
	}

	if len(et.DedupFields) > 0 {
		existing, err := e.findByDedupKey(ctx, et, payload)
		if err != nil {
			return "", false, err
		}
		if existing != "" {
			return existing, false, nil
		}
	}

	payload = payload.Clone()
	id, ok := payload.ID(et.IDField)
	if !ok {
		id = e.generateID(et, payload)
		payload[et.IDField] = id
	}

	if _, err := e.buffer.Enqueue(ctx, et, models.OpInsert, payload); err != nil {
		return "", false, err
	}

	return id, true, nil
}

// findByDedupKey scans the merged view for a record matching every dedup
// field of payload. Returns the matching record's id, or "" when none.
func (e *engine) findByDedupKey(ctx context.Context, et models.EntityType, payload models.Record) (string, error) {
	view, err := e.GetMergedView(ctx, et.Name)
	if err != nil {
		return "", err
	}

	for _, rec := range view {
		match := true
		for _, f := range et.DedupFields {
			if rec.Fields[f] != payload[f] {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		if id, ok := rec.Fields.ID(et.IDField); ok {
			return id, nil
		}
	}

	return "", nil
}

// generateID derives the new record's id: deterministic from the dedup key
// when one is declared (repeated generation is then idempotent), random
// otherwise.
func (e *engine) generateID(et models.EntityType, payload models.Record) string {
	if len(et.DedupFields) == 0 {
		return idgen.Random()
	}

	parts := make([]string, 0, len(et.DedupFields))
	for _, f := range et.DedupFields {
		parts = append(parts, fmt.Sprint(payload[f]))
	}
	return idgen.Deterministic(et.Name, parts...)
}

// GetMergedView implements Engine. Reads are served from local state only.
func (e *engine) GetMergedView(ctx context.Context, typeName string) ([]models.MergedRecord, error) {
	et, err := e.resolve(typeName)
	if err != nil {
		return nil, err
	}

	synced, err := e.store.GetSyncedAll(ctx, et)
	if err != nil {
		return nil, fmt.Errorf("read synced mirror for %s: %w", et.Name, err)
	}

	pending, err := e.store.GetPendingAll(ctx, et)
	if err != nil {
		return nil, fmt.Errorf("read pending log for %s: %w", et.Name, err)
	}

	return merge.Merge(et, synced, pending), nil
}

// StartSync implements Engine.
func (e *engine) StartSync(ctx context.Context, typeName string) error {
	et, err := e.resolve(typeName)
	if err != nil {
		return err
	}

	return e.orch.StartSync(ctx, et)
}

// StopSync implements Engine.
func (e *engine) StopSync(typeName string) error {
	if _, err := e.resolve(typeName); err != nil {
		return err
	}

	return e.orch.StopSync(typeName)
}

func (e *engine) Updates() <-chan string {
	return e.orch.Updates()
}

// DiscardPending implements Engine.
func (e *engine) DiscardPending(ctx context.Context, typeName, entityID string) (int64, error) {
	et, err := e.resolve(typeName)
	if err != nil {
		return 0, err
	}

	n, err := e.store.DeletePendingByEntity(ctx, et, entityID)
	if err != nil {
		return 0, fmt.Errorf("discard pending ops for %s id=%s: %w", et.Name, entityID, err)
	}
	return n, nil
}

// Stats implements Engine.
func (e *engine) Stats(ctx context.Context, typeName string) (models.StoreStats, error) {
	et, err := e.resolve(typeName)
	if err != nil {
		return models.StoreStats{}, err
	}

	return e.store.Stats(ctx, et)
}

// Start implements Engine.
func (e *engine) Start(ctx context.Context) {
	e.buffer.Start(ctx, e.drainInterval)
}

// Shutdown implements Engine. The drain loop stops first so no op is in
// flight while subscriptions wind down.
func (e *engine) Shutdown() {
	e.buffer.Stop()
	e.orch.Shutdown()
}
