package service

import "errors"

var (
	// ErrUnknownEntityType: the type name was never registered with the engine.
	ErrUnknownEntityType = errors.New("entity type is not registered")

	// ErrSyncAlreadyActive: StartSync was called for a type whose live
	// subscription is still running.
	ErrSyncAlreadyActive = errors.New("sync is already active for entity type")

	// ErrMissingEntityID: the mutation payload does not carry the type's id
	// field, so the op cannot be keyed.
	ErrMissingEntityID = errors.New("payload is missing the entity id field")
)
