package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/deeprecall/replica/internal/logger"
	"github.com/deeprecall/replica/models"
)

type localRepository struct {
	*DB
	logger *logger.Logger

	mu         sync.RWMutex
	registered map[string]struct{}
}

// NewLocalRepository constructs the SQLite-backed LocalStore.
func NewLocalRepository(db *DB, logger *logger.Logger) LocalStore {
	return &localRepository{
		DB:         db,
		logger:     logger,
		registered: make(map[string]struct{}),
	}
}

func (l *localRepository) RegisterType(ctx context.Context, et models.EntityType) error {
	log := logger.FromContext(ctx)

	if err := et.Validate(); err != nil {
		return fmt.Errorf("register entity type: %w", err)
	}

	for _, ddl := range []string{
		createSyncedTableDDL(et),
		createPendingTableDDL(et),
		createPendingIndexDDL(et),
	} {
		if _, err := l.DB.ExecContext(ctx, ddl); err != nil {
			log.Err(err).
				Str("func", "localRepository.RegisterType").
				Str("entity_type", et.Name).
				Msg("failed to create table pair for entity type")
			return fmt.Errorf("create tables for %s: %w", et.Name, err)
		}
	}

	query, args, err := registerTypeQuery(et, strings.Join(et.DedupFields, ",")).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = l.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "localRepository.RegisterType").
			Str("entity_type", et.Name).
			Msg("failed to record entity type in registry")
		return fmt.Errorf("record entity type %s: %w", et.Name, err)
	}

	l.mu.Lock()
	l.registered[et.Name] = struct{}{}
	l.mu.Unlock()

	log.Debug().
		Str("func", "localRepository.RegisterType").
		Str("entity_type", et.Name).
		Msg("entity type registered")

	return nil
}

func (l *localRepository) checkRegistered(et models.EntityType) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.registered[et.Name]; !ok {
		return fmt.Errorf("%w: %s", ErrTypeNotRegistered, et.Name)
	}
	return nil
}

func (l *localRepository) GetSyncedAll(ctx context.Context, et models.EntityType) ([]models.Record, error) {
	log := logger.FromContext(ctx)

	if err := l.checkRegistered(et); err != nil {
		return nil, err
	}

	query, args, err := selectSyncedAllQuery(et).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := l.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "localRepository.GetSyncedAll").
			Str("entity_type", et.Name).
			Msg("failed to query synced mirror")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var id, fields string
		if scanErr := rows.Scan(&id, &fields); scanErr != nil {
			log.Err(scanErr).
				Str("func", "localRepository.GetSyncedAll").
				Str("entity_type", et.Name).
				Msg("failed to scan synced row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		rec, decErr := decodeRecord(et, id, fields)
		if decErr != nil {
			return nil, decErr
		}
		out = append(out, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("error iterating synced rows: %w", rowsErr)
	}

	return out, nil
}

func (l *localRepository) ReplaceSyncedAll(ctx context.Context, et models.EntityType, newRows []models.Record) error {
	log := logger.FromContext(ctx)

	if err := l.checkRegistered(et); err != nil {
		return err
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	incoming := make(map[string]struct{}, len(newRows))
	for _, rec := range newRows {
		id, ok := rec.ID(et.IDField)
		if !ok {
			return fmt.Errorf("%w (entity_type=%s)", ErrRecordMissingID, et.Name)
		}
		incoming[id] = struct{}{}
	}

	staleIDs, err := l.collectStaleIDs(ctx, tx, et, incoming)
	if err != nil {
		return err
	}

	deleted := int64(0)
	if len(staleIDs) > 0 {
		query, args, buildErr := deleteSyncedByIDsQuery(et, staleIDs).ToSql()
		if buildErr != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, buildErr)
		}
		res, execErr := tx.ExecContext(ctx, query, args...)
		if execErr != nil {
			return fmt.Errorf("delete stale synced rows: %w", execErr)
		}
		deleted, _ = res.RowsAffected()
	}

	for _, rec := range newRows {
		id, _ := rec.ID(et.IDField)
		fields, encErr := json.Marshal(rec)
		if encErr != nil {
			return fmt.Errorf("encode synced row %s: %w", id, encErr)
		}

		query, args, buildErr := upsertSyncedQuery(et, id, string(fields)).ToSql()
		if buildErr != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, buildErr)
		}
		if _, execErr := tx.ExecContext(ctx, query, args...); execErr != nil {
			return fmt.Errorf("upsert synced row %s: %w", id, execErr)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	log.Debug().
		Str("func", "localRepository.ReplaceSyncedAll").
		Str("entity_type", et.Name).
		Int64("deleted", deleted).
		Int("upserted", len(newRows)).
		Msg("synced mirror replaced")

	return nil
}

// collectStaleIDs returns mirror ids that are absent from the incoming
// snapshot and therefore must be deleted.
func (l *localRepository) collectStaleIDs(ctx context.Context, tx *sql.Tx, et models.EntityType, incoming map[string]struct{}) ([]string, error) {
	query, args, err := selectSyncedIDsQuery(et).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		if _, keep := incoming[id]; !keep {
			stale = append(stale, id)
		}
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("error iterating synced ids: %w", rowsErr)
	}

	return stale, nil
}

func (l *localRepository) GetPendingAll(ctx context.Context, et models.EntityType) ([]models.PendingOp, error) {
	log := logger.FromContext(ctx)

	if err := l.checkRegistered(et); err != nil {
		return nil, err
	}

	query, args, err := selectPendingAllQuery(et).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := l.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "localRepository.GetPendingAll").
			Str("entity_type", et.Name).
			Msg("failed to query pending log")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var out []models.PendingOp
	for rows.Next() {
		var (
			op      models.PendingOp
			kind    string
			status  string
			ts      time.Time
			payload sql.NullString
		)
		if scanErr := rows.Scan(&op.Seq, &op.EntityID, &kind, &status, &ts, &payload, &op.ErrorMsg); scanErr != nil {
			log.Err(scanErr).
				Str("func", "localRepository.GetPendingAll").
				Str("entity_type", et.Name).
				Msg("failed to scan pending op row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		op.Kind = models.OpKind(kind)
		op.Status = models.OpStatus(status)
		op.Timestamp = ts
		if payload.Valid && payload.String != "" {
			if decErr := json.Unmarshal([]byte(payload.String), &op.Payload); decErr != nil {
				return nil, fmt.Errorf("decode pending payload (seq=%d): %w", op.Seq, decErr)
			}
		}
		out = append(out, op)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("error iterating pending rows: %w", rowsErr)
	}

	return out, nil
}

func (l *localRepository) AppendPending(ctx context.Context, et models.EntityType, op models.PendingOp) (models.PendingOp, error) {
	log := logger.FromContext(ctx)

	if err := l.checkRegistered(et); err != nil {
		return models.PendingOp{}, err
	}

	var payload any
	if op.Payload != nil {
		encoded, encErr := json.Marshal(op.Payload)
		if encErr != nil {
			return models.PendingOp{}, fmt.Errorf("encode pending payload: %w", encErr)
		}
		payload = string(encoded)
	}

	query, args, err := insertPendingQuery(et, op, payload).ToSql()
	if err != nil {
		return models.PendingOp{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := l.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "localRepository.AppendPending").
			Str("entity_type", et.Name).
			Str("entity_id", op.EntityID).
			Msg("failed to append pending op")
		return models.PendingOp{}, fmt.Errorf("append pending op (entity_id=%s): %w", op.EntityID, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return models.PendingOp{}, fmt.Errorf("read pending op seq: %w", err)
	}
	op.Seq = seq

	return op, nil
}

func (l *localRepository) MarkPending(ctx context.Context, et models.EntityType, seq int64, status models.OpStatus, errMsg string) error {
	log := logger.FromContext(ctx)

	if err := l.checkRegistered(et); err != nil {
		return err
	}

	query, args, err := markPendingQuery(et, seq, status, errMsg).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := l.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "localRepository.MarkPending").
			Str("entity_type", et.Name).
			Int64("seq", seq).
			Msg("failed to update pending op status")
		return fmt.Errorf("mark pending op (seq=%d): %w", seq, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected (seq=%d): %w", seq, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w (seq=%d)", ErrPendingOpNotFound, seq)
	}

	return nil
}

func (l *localRepository) DeletePending(ctx context.Context, et models.EntityType, seq int64) error {
	log := logger.FromContext(ctx)

	if err := l.checkRegistered(et); err != nil {
		return err
	}

	query, args, err := deletePendingQuery(et, seq).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = l.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "localRepository.DeletePending").
			Str("entity_type", et.Name).
			Int64("seq", seq).
			Msg("failed to delete pending op")
		return fmt.Errorf("delete pending op (seq=%d): %w", seq, err)
	}

	return nil
}

func (l *localRepository) DeletePendingByEntity(ctx context.Context, et models.EntityType, entityID string) (int64, error) {
	log := logger.FromContext(ctx)

	if err := l.checkRegistered(et); err != nil {
		return 0, err
	}

	query, args, err := deletePendingByEntityQuery(et, entityID).ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := l.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "localRepository.DeletePendingByEntity").
			Str("entity_type", et.Name).
			Str("entity_id", entityID).
			Msg("failed to delete pending ops for entity")
		return 0, fmt.Errorf("delete pending ops (entity_id=%s): %w", entityID, err)
	}

	retired, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected (entity_id=%s): %w", entityID, err)
	}

	return retired, nil
}

func (l *localRepository) Stats(ctx context.Context, et models.EntityType) (models.StoreStats, error) {
	if err := l.checkRegistered(et); err != nil {
		return models.StoreStats{}, err
	}

	stats := models.StoreStats{PendingByStatus: make(map[models.OpStatus]int64)}

	for _, target := range []struct {
		table string
		dst   *int64
	}{
		{et.SyncedTable(), &stats.SyncedRows},
		{et.PendingTable(), &stats.PendingOps},
	} {
		query, args, err := countQuery(target.table).ToSql()
		if err != nil {
			return models.StoreStats{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		if err = l.DB.QueryRowContext(ctx, query, args...).Scan(target.dst); err != nil {
			return models.StoreStats{}, fmt.Errorf("count rows in %s: %w", target.table, err)
		}
	}

	query, args, err := countPendingByStatusQuery(et).ToSql()
	if err != nil {
		return models.StoreStats{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := l.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return models.StoreStats{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int64
		)
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return models.StoreStats{}, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		stats.PendingByStatus[models.OpStatus(status)] = count
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return models.StoreStats{}, fmt.Errorf("error iterating status counts: %w", rowsErr)
	}

	return stats, nil
}

// decodeRecord rebuilds a Record from its stored JSON, making sure the id
// column and the id field agree (the column is authoritative).
func decodeRecord(et models.EntityType, id, fields string) (models.Record, error) {
	var rec models.Record
	if err := json.Unmarshal([]byte(fields), &rec); err != nil {
		return nil, fmt.Errorf("decode synced row %s: %w", id, err)
	}
	if rec == nil {
		rec = models.Record{}
	}
	rec[et.IDField] = id
	return rec, nil
}
