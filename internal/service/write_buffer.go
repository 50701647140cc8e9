// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DeepRecall Authors

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/deeprecall/replica/internal/adapter"
	"github.com/deeprecall/replica/internal/logger"
	"github.com/deeprecall/replica/internal/store"
	"github.com/deeprecall/replica/models"
)

// typeSource lists the entity types whose pending logs the drain loop walks.
// The engine implements it over its registry.
type typeSource interface {
	Types() []models.EntityType
}

type writeBuffer struct {
	store     store.LocalStore
	remote    adapter.RemoteStore
	validator PayloadValidator
	types     typeSource

	backoffBase    time.Duration
	backoffRetries uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PayloadValidator is the slice of the validators contract the buffer needs.
type PayloadValidator interface {
	ValidatePayload(et models.EntityType, kind models.OpKind, payload models.Record) error
}

// NewWriteBuffer creates a write buffer draining through remote. The drain
// loop is idle until Start is called.
func NewWriteBuffer(localStore store.LocalStore, remote adapter.RemoteStore, validator PayloadValidator, types typeSource, backoffBase time.Duration, backoffRetries uint64) WriteBuffer {
	if backoffBase <= 0 {
		backoffBase = 500 * time.Millisecond
	}
	if backoffRetries == 0 {
		backoffRetries = 4
	}

	return &writeBuffer{
		store:          localStore,
		remote:         remote,
		validator:      validator,
		types:          types,
		backoffBase:    backoffBase,
		backoffRetries: backoffRetries,
	}
}

// Enqueue implements WriteBuffer. The append is synchronous so the caller's
// read path sees the mutation immediately; the network send happens later in
// the drain loop.
func (b *writeBuffer) Enqueue(ctx context.Context, et models.EntityType, kind models.OpKind, payload models.Record) (models.PendingOp, error) {
	entityID, ok := payload.ID(et.IDField)
	if !ok {
		return models.PendingOp{}, fmt.Errorf("%w: %s", ErrMissingEntityID, et.IDField)
	}

	if kind == models.OpDelete {
		// the pending log keys deletes by entity id alone
		payload = nil
	}

	if err := b.validator.ValidatePayload(et, kind, payload); err != nil {
		return models.PendingOp{}, fmt.Errorf("validate %s payload for %s: %w", kind, et.Name, err)
	}

	op := models.PendingOp{
		EntityID:  entityID,
		Kind:      kind,
		Status:    models.StatusPending,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	stored, err := b.store.AppendPending(ctx, et, op)
	if err != nil {
		return models.PendingOp{}, fmt.Errorf("append pending op for %s: %w", et.Name, err)
	}

	return stored, nil
}

// Start implements WriteBuffer. It stops any previously running drain, then
// launches a background goroutine that drains every interval. The goroutine
// exits when ctx is cancelled or Stop is called.
func (b *writeBuffer) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	b.Stop()

	b.mu.Lock()
	drainCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		b.drainOnce(drainCtx)

		for {
			select {
			case <-drainCtx.Done():
				return
			case <-t.C:
				b.drainOnce(drainCtx)
			}
		}
	}()
}

// Stop implements WriteBuffer. It cancels the drain goroutine's context and
// blocks until the goroutine has fully exited.
func (b *writeBuffer) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
}

// drainOnce walks every registered type's pending log in seq order and sends
// each pending op. A transport failure blocks the remaining ops of the same
// entity id for this pass so causal order per id survives the retry.
func (b *writeBuffer) drainOnce(ctx context.Context) {
	log := logger.FromContext(ctx)

	for _, et := range b.types.Types() {
		ops, err := b.store.GetPendingAll(ctx, et)
		if err != nil {
			log.Error().
				Err(err).
				Str("func", "writeBuffer.drainOnce").
				Str("entity_type", et.Name).
				Msg("reading pending log failed")
			continue
		}

		blocked := make(map[string]struct{})
		for _, op := range ops {
			if ctx.Err() != nil {
				return
			}
			if op.Status != models.StatusPending {
				continue
			}
			if _, skip := blocked[op.EntityID]; skip {
				continue
			}
			if !b.sendOp(ctx, et, op) {
				blocked[op.EntityID] = struct{}{}
			}
		}
	}
}

// sendOp pushes one op through the remote adapter with fibonacci backoff.
// Reports whether the op left the pending state for good (sent or terminally
// failed); a transport failure puts it back to pending for the next pass.
func (b *writeBuffer) sendOp(ctx context.Context, et models.EntityType, op models.PendingOp) bool {
	log := logger.FromContext(ctx)

	if err := b.store.MarkPending(ctx, et, op.Seq, models.StatusSyncing, ""); err != nil {
		log.Error().
			Err(err).
			Str("func", "writeBuffer.sendOp").
			Str("entity_type", et.Name).
			Int64("seq", op.Seq).
			Msg("marking op syncing failed")
		return false
	}

	backoff := retry.WithMaxRetries(b.backoffRetries, retry.NewFibonacci(b.backoffBase))
	sendErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := b.remote.Send(ctx, et, op)
		if err == nil {
			return nil
		}
		if adapter.IsTerminal(err) {
			return err
		}
		return retry.RetryableError(err)
	})

	switch {
	case sendErr == nil:
		if err := b.store.MarkPending(ctx, et, op.Seq, models.StatusSynced, ""); err != nil {
			log.Error().
				Err(err).
				Str("func", "writeBuffer.sendOp").
				Str("entity_type", et.Name).
				Int64("seq", op.Seq).
				Msg("marking op synced failed")
		}
		return true

	case adapter.IsTerminal(sendErr):
		if err := b.store.MarkPending(ctx, et, op.Seq, models.StatusError, sendErr.Error()); err != nil {
			log.Error().
				Err(err).
				Str("func", "writeBuffer.sendOp").
				Str("entity_type", et.Name).
				Int64("seq", op.Seq).
				Msg("marking op error failed")
		}
		log.Warn().
			Err(sendErr).
			Str("func", "writeBuffer.sendOp").
			Str("entity_type", et.Name).
			Str("entity_id", op.EntityID).
			Int64("seq", op.Seq).
			Msg("remote rejected op, not retrying")
		return true

	default:
		// transport failure: back to pending, next drain pass retries
		if err := b.store.MarkPending(ctx, et, op.Seq, models.StatusPending, sendErr.Error()); err != nil {
			log.Error().
				Err(err).
				Str("func", "writeBuffer.sendOp").
				Str("entity_type", et.Name).
				Int64("seq", op.Seq).
				Msg("requeueing op failed")
		}
		log.Debug().
			Err(sendErr).
			Str("func", "writeBuffer.sendOp").
			Str("entity_type", et.Name).
			Str("entity_id", op.EntityID).
			Int64("seq", op.Seq).
			Msg("send failed, op requeued")
		return false
	}
}
