// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DeepRecall Authors

// Package merge computes the read-time composite of the synced mirror and
// the pending log. The computation is a pure function over its inputs: no
// side effects, no hidden state, safe to call from a hot read path.
package merge

import (
	"sort"

	"github.com/deeprecall/replica/models"
)

// fold is the accumulated local state for one entity id after applying its
// pending ops in order.
type fold struct {
	// overlay holds the fields produced by the fold: the insert payload
	// plus every later update, shallow-merged.
	overlay models.Record
	// suppressed is set by a delete and cleared by a later insert.
	suppressed bool
	// inserted reports whether the fold was seeded by an insert, which is
	// what allows an id unknown to the mirror to appear in the view.
	inserted bool
	// last is the most recent op for the id; its kind/status/timestamp
	// become the merged record's local status annotation.
	last models.PendingOp
}

// Merge builds the merged view for one entity type.
//
// Every synced-mirror row not suppressed by a pending delete appears once,
// overridden field-by-field by its fold when one exists; ids known only to
// the pending log appear when their fold was seeded by an insert. Ops are
// applied in (timestamp, seq) order per id; a delete discards all earlier
// local state for the id and hides it until a strictly later insert
// re-creates it.
func Merge(et models.EntityType, synced []models.Record, pending []models.PendingOp) []models.MergedRecord {
	folds, order := foldPending(pending)

	produced := make(map[string]struct{}, len(folds))
	out := make([]models.MergedRecord, 0, len(synced)+len(order))

	for _, row := range synced {
		id, ok := row.ID(et.IDField)
		if !ok {
			continue
		}

		f, hasFold := folds[id]
		if !hasFold {
			out = append(out, models.MergedRecord{Fields: row.Clone()})
			continue
		}

		produced[id] = struct{}{}
		if f.suppressed {
			continue
		}

		fields := row.Clone()
		overrideFields(fields, f.overlay)
		out = append(out, models.MergedRecord{Fields: fields, Local: localStatus(f)})
	}

	// pure local inserts: folds whose id the mirror does not know yet
	for _, id := range order {
		if _, done := produced[id]; done {
			continue
		}
		f := folds[id]
		if f.suppressed || !f.inserted {
			continue
		}
		out = append(out, models.MergedRecord{Fields: f.overlay.Clone(), Local: localStatus(f)})
	}

	return out
}

// foldPending groups ops by entity id and folds each group in
// (timestamp, seq) order. order preserves first-seen id order so the merged
// view is deterministic.
func foldPending(pending []models.PendingOp) (map[string]*fold, []string) {
	ops := make([]models.PendingOp, len(pending))
	copy(ops, pending)
	sort.SliceStable(ops, func(i, j int) bool {
		if !ops[i].Timestamp.Equal(ops[j].Timestamp) {
			return ops[i].Timestamp.Before(ops[j].Timestamp)
		}
		return ops[i].Seq < ops[j].Seq
	})

	folds := make(map[string]*fold)
	var order []string

	for _, op := range ops {
		f, ok := folds[op.EntityID]
		if !ok {
			f = &fold{}
			folds[op.EntityID] = f
			order = append(order, op.EntityID)
		}
		f.last = op

		switch op.Kind {
		case models.OpInsert:
			f.overlay = op.Payload.Clone()
			f.suppressed = false
			f.inserted = true
		case models.OpUpdate:
			// a delete discards later updates; only a new insert revives the id
			if f.suppressed {
				continue
			}
			if f.overlay == nil {
				f.overlay = models.Record{}
			}
			overrideFields(f.overlay, op.Payload)
		case models.OpDelete:
			f.overlay = nil
			f.suppressed = true
			f.inserted = false
		}
	}

	return folds, order
}

// overrideFields applies src on top of dst field-by-field. The override is
// deliberately shallow: an updated nested value replaces the old one
// wholesale rather than being merged into it.
func overrideFields(dst, src models.Record) {
	for k, v := range src {
		dst[k] = v
	}
}

func localStatus(f *fold) *models.LocalStatus {
	return &models.LocalStatus{
		Kind:      f.last.Kind,
		Status:    f.last.Status,
		Timestamp: f.last.Timestamp,
	}
}
