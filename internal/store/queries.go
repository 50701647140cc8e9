// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DeepRecall Authors

package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/deeprecall/replica/models"
)

// Table names are derived from runtime-registered entity types, so queries
// are built with squirrel instead of static SQL constants.

func createSyncedTableDDL(et models.EntityType) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          TEXT PRIMARY KEY,
			fields      TEXT NOT NULL,
			replaced_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`, et.SyncedTable())
}

func createPendingTableDDL(et models.EntityType) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq       INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_id TEXT NOT NULL,
			kind      TEXT NOT NULL,
			status    TEXT NOT NULL,
			ts        TIMESTAMP NOT NULL,
			payload   TEXT,
			error_msg TEXT NOT NULL DEFAULT ''
		);`, et.PendingTable())
}

func createPendingIndexDDL(et models.EntityType) string {
	return fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%s_entity ON %s (entity_id);`,
		et.PendingTable(), et.PendingTable(),
	)
}

func registerTypeQuery(et models.EntityType, dedupFields string) sq.InsertBuilder {
	return sq.Insert("entity_registry").
		Options("OR IGNORE").
		Columns("name", "id_field", "dedup_fields").
		Values(et.Name, et.IDField, dedupFields)
}

func selectSyncedAllQuery(et models.EntityType) sq.SelectBuilder {
	return sq.Select("id", "fields").
		From(et.SyncedTable()).
		OrderBy("id ASC")
}

func selectSyncedIDsQuery(et models.EntityType) sq.SelectBuilder {
	return sq.Select("id").From(et.SyncedTable())
}

func deleteSyncedByIDsQuery(et models.EntityType, ids []string) sq.DeleteBuilder {
	return sq.Delete(et.SyncedTable()).Where(sq.Eq{"id": ids})
}

func upsertSyncedQuery(et models.EntityType, id, fields string) sq.InsertBuilder {
	return sq.Insert(et.SyncedTable()).
		Columns("id", "fields").
		Values(id, fields).
		Suffix("ON CONFLICT (id) DO UPDATE SET fields = excluded.fields, replaced_at = CURRENT_TIMESTAMP")
}

func selectPendingAllQuery(et models.EntityType) sq.SelectBuilder {
	return sq.Select("seq", "entity_id", "kind", "status", "ts", "payload", "error_msg").
		From(et.PendingTable()).
		OrderBy("seq ASC")
}

func insertPendingQuery(et models.EntityType, op models.PendingOp, payload any) sq.InsertBuilder {
	return sq.Insert(et.PendingTable()).
		Columns("entity_id", "kind", "status", "ts", "payload", "error_msg").
		Values(op.EntityID, string(op.Kind), string(op.Status), op.Timestamp, payload, op.ErrorMsg)
}

func markPendingQuery(et models.EntityType, seq int64, status models.OpStatus, errMsg string) sq.UpdateBuilder {
	return sq.Update(et.PendingTable()).
		Set("status", string(status)).
		Set("error_msg", errMsg).
		Where(sq.Eq{"seq": seq})
}

func deletePendingQuery(et models.EntityType, seq int64) sq.DeleteBuilder {
	return sq.Delete(et.PendingTable()).Where(sq.Eq{"seq": seq})
}

func deletePendingByEntityQuery(et models.EntityType, entityID string) sq.DeleteBuilder {
	return sq.Delete(et.PendingTable()).Where(sq.Eq{"entity_id": entityID})
}

func countQuery(table string) sq.SelectBuilder {
	return sq.Select("COUNT(*)").From(table)
}

func countPendingByStatusQuery(et models.EntityType) sq.SelectBuilder {
	return sq.Select("status", "COUNT(*)").
		From(et.PendingTable()).
		GroupBy("status")
}
