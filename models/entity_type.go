// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DeepRecall Authors

package models

import (
	"fmt"
	"regexp"
)

// tableNamePattern restricts type names to identifiers that are safe to embed
// in generated table names (<name>_synced / <name>_pending).
var tableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// EntityType describes one replicated entity kind to the generic engine:
// which table pair backs it, which field carries its identifier, and which
// fields form its semantic dedup key (empty for types with random ids).
type EntityType struct {
	// Name is the lower_snake_case type name, used as the table-pair prefix
	// and as the entity type label on the wire.
	Name string

	// IDField names the record field holding the entity id.
	IDField string

	// DedupFields, when non-empty, name the fields whose values identify a
	// record semantically. Used both to derive deterministic ids and for
	// find-or-create dedup on insert.
	DedupFields []string

	// Schema is an optional JSON Schema document validating insert payloads.
	// Empty means no schema validation for the type.
	Schema string
}

// Validate checks that the descriptor can be registered.
func (t EntityType) Validate() error {
	if !tableNamePattern.MatchString(t.Name) {
		return fmt.Errorf("entity type name %q is not a valid table prefix", t.Name)
	}
	if t.IDField == "" {
		return fmt.Errorf("entity type %q: id field is required", t.Name)
	}
	return nil
}

// SyncedTable returns the name of the type's synced-mirror table.
func (t EntityType) SyncedTable() string { return t.Name + "_synced" }

// PendingTable returns the name of the type's pending-log table.
func (t EntityType) PendingTable() string { return t.Name + "_pending" }

// Built-in entity catalog of the DeepRecall client. Works, annotations and
// blobs carry content-derived ids; authors have no natural key and rely on
// find-or-create dedup by normalized name.
var (
	Works = EntityType{
		Name:        "works",
		IDField:     "id",
		DedupFields: []string{"title", "primary_blob"},
	}

	Authors = EntityType{
		Name:        "authors",
		IDField:     "id",
		DedupFields: []string{"normalized_name"},
	}

	Annotations = EntityType{
		Name:        "annotations",
		IDField:     "id",
		DedupFields: []string{"work_id", "page", "geometry"},
	}

	ReviewCards = EntityType{
		Name:        "review_cards",
		IDField:     "id",
		DedupFields: []string{"annotation_id", "prompt"},
	}

	Blobs = EntityType{
		Name:    "blobs",
		IDField: "sha256",
	}
)

// Catalog lists the built-in entity types in registration order.
func Catalog() []EntityType {
	return []EntityType{Works, Authors, Annotations, ReviewCards, Blobs}
}
