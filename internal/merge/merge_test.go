// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DeepRecall Authors

package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deeprecall/replica/models"
)

var worksType = models.EntityType{Name: "works", IDField: "id"}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// op is a shorthand constructor for PendingOp used only in tests.
func op(seq int64, id string, kind models.OpKind, at time.Duration, payload models.Record) models.PendingOp {
	return models.PendingOp{
		Seq:       seq,
		EntityID:  id,
		Kind:      kind,
		Status:    models.StatusPending,
		Timestamp: t0.Add(at),
		Payload:   payload,
	}
}

func viewIDs(view []models.MergedRecord) []string {
	ids := make([]string, 0, len(view))
	for _, rec := range view {
		id, _ := rec.Fields.ID("id")
		ids = append(ids, id)
	}
	return ids
}

func findRecord(t *testing.T, view []models.MergedRecord, id string) models.MergedRecord {
	t.Helper()
	for _, rec := range view {
		if got, _ := rec.Fields.ID("id"); got == id {
			return rec
		}
	}
	t.Fatalf("record %q not found in merged view", id)
	return models.MergedRecord{}
}

func TestMerge_SyncedOnly_PassthroughWithoutLocalStatus(t *testing.T) {
	synced := []models.Record{{"id": "w1", "title": "Foo"}}

	view := Merge(worksType, synced, nil)

	require.Len(t, view, 1)
	assert.Equal(t, "Foo", view[0].Fields["title"])
	assert.Nil(t, view[0].Local)
}

func TestMerge_PureLocalInsert_VisibleWithInsertStatus(t *testing.T) {
	pending := []models.PendingOp{
		op(1, "a1", models.OpInsert, 0, models.Record{"id": "a1", "title": "Foo"}),
	}

	view := Merge(worksType, nil, pending)

	require.Len(t, view, 1)
	assert.Equal(t, "Foo", view[0].Fields["title"])
	require.NotNil(t, view[0].Local)
	assert.Equal(t, models.OpInsert, view[0].Local.Kind)
	assert.Equal(t, models.StatusPending, view[0].Local.Status)
}

// Ordering: the later update wins regardless of unrelated ids in between.
func TestMerge_UpdateOrdering_LastWriteWins(t *testing.T) {
	synced := []models.Record{{"id": "x", "a": float64(0)}}
	pending := []models.PendingOp{
		op(3, "x", models.OpUpdate, 2*time.Second, models.Record{"a": float64(2)}),
		op(1, "x", models.OpUpdate, 1*time.Second, models.Record{"a": float64(1)}),
		op(2, "y", models.OpInsert, 1*time.Second, models.Record{"id": "y"}),
	}

	view := Merge(worksType, synced, pending)

	rec := findRecord(t, view, "x")
	assert.Equal(t, float64(2), rec.Fields["a"])
}

func TestMerge_UpdateOverridesSyncedFieldByField(t *testing.T) {
	synced := []models.Record{{"id": "w1", "title": "Old", "pages": float64(10)}}
	pending := []models.PendingOp{
		op(1, "w1", models.OpUpdate, 0, models.Record{"title": "New"}),
	}

	view := Merge(worksType, synced, pending)

	rec := findRecord(t, view, "w1")
	assert.Equal(t, "New", rec.Fields["title"])
	assert.Equal(t, float64(10), rec.Fields["pages"], "untouched fields survive the override")
	require.NotNil(t, rec.Local)
	assert.Equal(t, models.OpUpdate, rec.Local.Kind)
}

// Delete suppression: a pending delete hides the id even while the synced
// mirror still contains it.
func TestMerge_DeleteSuppressesSyncedRow(t *testing.T) {
	synced := []models.Record{{"id": "w1"}, {"id": "w2"}}
	pending := []models.PendingOp{
		op(1, "w1", models.OpDelete, 0, nil),
	}

	view := Merge(worksType, synced, pending)

	assert.Equal(t, []string{"w2"}, viewIDs(view))
}

func TestMerge_DeleteDiscardsLaterUpdates(t *testing.T) {
	synced := []models.Record{{"id": "w1", "title": "Foo"}}
	pending := []models.PendingOp{
		op(1, "w1", models.OpDelete, 0, nil),
		op(2, "w1", models.OpUpdate, time.Second, models.Record{"title": "Ghost"}),
	}

	view := Merge(worksType, synced, pending)

	assert.Empty(t, view)
}

// Re-creation after delete: a strictly later insert makes the id visible
// again with the insert's payload.
func TestMerge_InsertAfterDelete_RecreatesRecord(t *testing.T) {
	synced := []models.Record{{"id": "w1", "title": "Old"}}
	pending := []models.PendingOp{
		op(1, "w1", models.OpDelete, 0, nil),
		op(2, "w1", models.OpInsert, time.Second, models.Record{"id": "w1", "title": "Reborn"}),
	}

	view := Merge(worksType, synced, pending)

	rec := findRecord(t, view, "w1")
	assert.Equal(t, "Reborn", rec.Fields["title"])
	require.NotNil(t, rec.Local)
	assert.Equal(t, models.OpInsert, rec.Local.Kind)
}

// Exactly one visible state per id: an insert whose id the mirror already
// confirmed must not produce a duplicate row.
func TestMerge_InsertOverConfirmedRow_SingleRecord(t *testing.T) {
	synced := []models.Record{{"id": "a1", "title": "Foo"}}
	pending := []models.PendingOp{
		op(1, "a1", models.OpInsert, 0, models.Record{"id": "a1", "title": "Foo"}),
	}

	view := Merge(worksType, synced, pending)

	require.Len(t, view, 1)
	assert.Equal(t, "Foo", view[0].Fields["title"])
	require.NotNil(t, view[0].Local)
}

// Idempotent merge: same inputs, same output, and inputs are not mutated.
func TestMerge_Idempotent(t *testing.T) {
	synced := []models.Record{{"id": "w1", "title": "Foo"}}
	pending := []models.PendingOp{
		op(1, "w1", models.OpUpdate, 0, models.Record{"title": "Bar"}),
		op(2, "w2", models.OpInsert, time.Second, models.Record{"id": "w2"}),
	}

	first := Merge(worksType, synced, pending)
	second := Merge(worksType, synced, pending)

	assert.Equal(t, first, second)
	assert.Equal(t, "Foo", synced[0]["title"], "synced input must not be mutated")
	assert.Equal(t, "Bar", pending[0].Payload["title"], "pending input must not be mutated")
}

func TestMerge_SkipsSyncedRowWithoutID(t *testing.T) {
	synced := []models.Record{{"title": "orphan"}, {"id": "w1"}}

	view := Merge(worksType, synced, nil)

	assert.Equal(t, []string{"w1"}, viewIDs(view))
}

// An update for an id unknown to the mirror produces nothing: there is no
// record to update and no insert to seed one.
func TestMerge_UpdateWithoutBase_Invisible(t *testing.T) {
	pending := []models.PendingOp{
		op(1, "ghost", models.OpUpdate, 0, models.Record{"title": "x"}),
	}

	view := Merge(worksType, nil, pending)

	assert.Empty(t, view)
}
