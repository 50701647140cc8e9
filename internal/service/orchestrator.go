// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DeepRecall Authors

package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/deeprecall/replica/internal/adapter"
	"github.com/deeprecall/replica/internal/logger"
	"github.com/deeprecall/replica/internal/store"
	"github.com/deeprecall/replica/models"
)

const updatesBuffer = 16

type syncRun struct {
	cancel context.CancelFunc
	sub    adapter.Subscription
	wg     sync.WaitGroup
}

type syncOrchestrator struct {
	store      store.LocalStore
	reconciler Reconciler
	remote     adapter.RemoteStore

	updates chan string

	mu     sync.Mutex
	active map[string]*syncRun
}

// NewSyncOrchestrator creates an orchestrator replicating subscription
// snapshots from remote into localStore.
func NewSyncOrchestrator(localStore store.LocalStore, remote adapter.RemoteStore, rec Reconciler) SyncOrchestrator {
	return &syncOrchestrator{
		store:      localStore,
		reconciler: rec,
		remote:     remote,
		updates:    make(chan string, updatesBuffer),
		active:     make(map[string]*syncRun),
	}
}

// StartSync implements SyncOrchestrator. The mirror is single-writer, so a
// second concurrent subscriber for the same type is refused rather than
// allowed to interleave ReplaceSyncedAll calls.
func (o *syncOrchestrator) StartSync(ctx context.Context, et models.EntityType) error {
	o.mu.Lock()
	if _, running := o.active[et.Name]; running {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSyncAlreadyActive, et.Name)
	}
	// reserve the slot before the network dial so a concurrent StartSync
	// for the same type fails fast
	o.active[et.Name] = nil
	o.mu.Unlock()

	sub, err := o.remote.Subscribe(ctx, et)
	if err != nil {
		o.mu.Lock()
		delete(o.active, et.Name)
		o.mu.Unlock()
		return fmt.Errorf("subscribe to %s feed: %w", et.Name, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &syncRun{cancel: cancel, sub: sub}

	o.mu.Lock()
	if _, reserved := o.active[et.Name]; !reserved {
		// StopSync or Shutdown won the race during the dial
		o.mu.Unlock()
		cancel()
		return sub.Close()
	}
	o.active[et.Name] = run
	o.mu.Unlock()

	run.wg.Add(1)
	go o.replicate(runCtx, et, run)

	return nil
}

// replicate consumes the type's snapshot feed until it closes. Every
// delivery replaces the mirror; only fresh deliveries reconcile and notify,
// a stale one merely warms the mirror for fast-start reads.
func (o *syncOrchestrator) replicate(ctx context.Context, et models.EntityType, run *syncRun) {
	log := logger.FromContext(ctx)
	defer run.wg.Done()
	defer o.release(et.Name)

	for snap := range run.sub.Snapshots() {
		if err := o.store.ReplaceSyncedAll(ctx, et, snap.Rows); err != nil {
			log.Error().
				Err(err).
				Str("func", "syncOrchestrator.replicate").
				Str("entity_type", et.Name).
				Msg("replacing synced mirror failed")
			continue
		}

		if !snap.Fresh {
			continue
		}

		if err := o.reconciler.Reconcile(ctx, et, snap.Rows); err != nil {
			log.Error().
				Err(err).
				Str("func", "syncOrchestrator.replicate").
				Str("entity_type", et.Name).
				Msg("reconciliation failed")
			continue
		}

		o.notify(et.Name)
	}
}

// release drops the type's registry slot once its feed has ended, so a later
// StartSync can resubscribe.
func (o *syncOrchestrator) release(typeName string) {
	o.mu.Lock()
	delete(o.active, typeName)
	o.mu.Unlock()
}

func (o *syncOrchestrator) notify(typeName string) {
	select {
	case o.updates <- typeName:
	default:
	}
}

// StopSync implements SyncOrchestrator.
func (o *syncOrchestrator) StopSync(typeName string) error {
	o.mu.Lock()
	run := o.active[typeName]
	delete(o.active, typeName)
	o.mu.Unlock()

	if run == nil {
		return nil
	}

	run.cancel()
	err := run.sub.Close()
	run.wg.Wait()

	if err != nil {
		return fmt.Errorf("close %s subscription: %w", typeName, err)
	}
	return nil
}

func (o *syncOrchestrator) Updates() <-chan string {
	return o.updates
}

// Shutdown implements SyncOrchestrator.
func (o *syncOrchestrator) Shutdown() {
	o.mu.Lock()
	names := make([]string, 0, len(o.active))
	for name := range o.active {
		names = append(names, name)
	}
	o.mu.Unlock()

	for _, name := range names {
		_ = o.StopSync(name)
	}
}
