package validators

import "errors"

var (
	ErrUnknownOpKind = errors.New("unknown mutation kind")

	ErrEmptyPayload    = errors.New("payload is required")
	ErrMissingEntityID = errors.New("payload is missing the entity id field")
	ErrPayloadOnDelete = errors.New("delete must not carry a payload")
	ErrSchemaViolation = errors.New("payload violates the entity schema")
)
