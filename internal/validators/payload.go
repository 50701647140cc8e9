// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DeepRecall Authors

// Package validators enforces structural and schema rules on mutation
// payloads before they reach the pending log.
//
// Validation failures are terminal: a payload that fails here is
// never retried, unlike transport errors which the write buffer retries with
// backoff. Schema validation (JSON Schema, compiled per entity type at
// registration) applies to inserts only; updates are partial field sets that
// a full-document schema would wrongly reject, so they get structural checks.
package validators

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/deeprecall/replica/models"
)

// PayloadValidator validates mutation payloads for registered entity types.
type PayloadValidator interface {
	// Register compiles the type's JSON Schema, if it declares one.
	Register(et models.EntityType) error

	// ValidatePayload checks payload against the structural rules of kind
	// and, for inserts, against the type's compiled schema.
	ValidatePayload(et models.EntityType, kind models.OpKind, payload models.Record) error
}

type payloadValidator struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewPayloadValidator constructs an empty PayloadValidator.
func NewPayloadValidator() PayloadValidator {
	return &payloadValidator{schemas: make(map[string]*jsonschema.Schema)}
}

func (v *payloadValidator) Register(et models.EntityType) error {
	if et.Schema == "" {
		return nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(et.Schema))
	if err != nil {
		return fmt.Errorf("parse schema for %s: %w", et.Name, err)
	}

	compiler := jsonschema.NewCompiler()
	url := et.Name + ".schema.json"
	if err = compiler.AddResource(url, doc); err != nil {
		return fmt.Errorf("add schema resource for %s: %w", et.Name, err)
	}

	schema, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", et.Name, err)
	}

	v.mu.Lock()
	v.schemas[et.Name] = schema
	v.mu.Unlock()

	return nil
}

func (v *payloadValidator) ValidatePayload(et models.EntityType, kind models.OpKind, payload models.Record) error {
	switch kind {
	case models.OpInsert:
		if len(payload) == 0 {
			return ErrEmptyPayload
		}
		if _, ok := payload.ID(et.IDField); !ok {
			return fmt.Errorf("%w: %s", ErrMissingEntityID, et.IDField)
		}
		return v.validateSchema(et, payload)

	case models.OpUpdate:
		if len(payload) == 0 {
			return ErrEmptyPayload
		}
		return nil

	case models.OpDelete:
		if len(payload) != 0 {
			return ErrPayloadOnDelete
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownOpKind, kind)
	}
}

func (v *payloadValidator) validateSchema(et models.EntityType, payload models.Record) error {
	v.mu.RLock()
	schema, ok := v.schemas[et.Name]
	v.mu.RUnlock()

	if !ok {
		// type declares no schema
		return nil
	}

	// round-trip through JSON so Go-native values (ints, time.Time) take the
	// shapes the schema validator expects
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload for validation: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode payload for validation: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}

	return nil
}
