// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DeepRecall Authors

// Package adapter provides transport-layer abstractions for communicating
// with the remote store.
//
// The primary abstraction is [RemoteStore], which decouples the engine from
// the underlying protocol. The package ships an HTTP implementation for the
// mutation send path ([NewHTTPRemoteStore], resty-based) and a websocket
// implementation for the live subscription feed.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling. [IsTerminal] separates validation rejections (never
// retried) from transport failures (retried with backoff by the write
// buffer's drain loop).
package adapter

import (
	"context"

	"github.com/deeprecall/replica/models"
)

// RemoteStore defines transport-agnostic communication with the remote
// store. Implementations are responsible for serialisation and for mapping
// transport-level errors to the sentinel values defined in this package.
type RemoteStore interface {
	// Send delivers one local mutation to the remote store. Delivery is
	// at-least-once: the remote endpoint is expected to be idempotent for
	// payloads carrying deterministic ids, so a retried send that already
	// succeeded must not create a duplicate row.
	Send(ctx context.Context, et models.EntityType, op models.PendingOp) error

	// Subscribe opens the live snapshot feed for one entity type. Every
	// delivery on the returned subscription is the complete current row set
	// for the type; there is no incremental diffing at this boundary.
	Subscribe(ctx context.Context, et models.EntityType) (Subscription, error)
}

// Subscription is one open live feed. Snapshots is closed when the feed
// terminates (Close called, context cancelled, or transport failure).
type Subscription interface {
	// Snapshots returns the channel of snapshot deliveries.
	Snapshots() <-chan models.Snapshot

	// Close releases the underlying transport. Idempotent.
	Close() error
}
