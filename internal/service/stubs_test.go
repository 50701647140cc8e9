package service

import (
	"context"
	"sort"
	"sync"

	"github.com/deeprecall/replica/internal/adapter"
	"github.com/deeprecall/replica/internal/store"
	"github.com/deeprecall/replica/models"
)

// memStore is an in-memory store.LocalStore for service tests.
type memStore struct {
	mu         sync.Mutex
	registered map[string]bool
	synced     map[string]map[string]models.Record
	pending    map[string][]models.PendingOp
	nextSeq    int64
}

func newMemStore() *memStore {
	return &memStore{
		registered: make(map[string]bool),
		synced:     make(map[string]map[string]models.Record),
		pending:    make(map[string][]models.PendingOp),
	}
}

func (m *memStore) RegisterType(_ context.Context, et models.EntityType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered[et.Name] = true
	if m.synced[et.Name] == nil {
		m.synced[et.Name] = make(map[string]models.Record)
	}
	return nil
}

func (m *memStore) GetSyncedAll(_ context.Context, et models.EntityType) ([]models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.synced[et.Name]))
	for id := range m.synced[et.Name] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.synced[et.Name][id].Clone())
	}
	return out, nil
}

func (m *memStore) ReplaceSyncedAll(_ context.Context, et models.EntityType, rows []models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[string]models.Record, len(rows))
	for _, row := range rows {
		if id, ok := row.ID(et.IDField); ok {
			next[id] = row.Clone()
		}
	}
	m.synced[et.Name] = next
	return nil
}

func (m *memStore) GetPendingAll(_ context.Context, et models.EntityType) ([]models.PendingOp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.PendingOp, len(m.pending[et.Name]))
	copy(out, m.pending[et.Name])
	return out, nil
}

func (m *memStore) AppendPending(_ context.Context, et models.EntityType, op models.PendingOp) (models.PendingOp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSeq++
	op.Seq = m.nextSeq
	m.pending[et.Name] = append(m.pending[et.Name], op)
	return op, nil
}

func (m *memStore) MarkPending(_ context.Context, et models.EntityType, seq int64, status models.OpStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, op := range m.pending[et.Name] {
		if op.Seq == seq {
			m.pending[et.Name][i].Status = status
			m.pending[et.Name][i].ErrorMsg = errMsg
			return nil
		}
	}
	return store.ErrPendingOpNotFound
}

func (m *memStore) DeletePending(_ context.Context, et models.EntityType, seq int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := m.pending[et.Name]
	for i, op := range ops {
		if op.Seq == seq {
			m.pending[et.Name] = append(ops[:i:i], ops[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) DeletePendingByEntity(_ context.Context, et models.EntityType, entityID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []models.PendingOp
	var removed int64
	for _, op := range m.pending[et.Name] {
		if op.EntityID == entityID {
			removed++
			continue
		}
		kept = append(kept, op)
	}
	m.pending[et.Name] = kept
	return removed, nil
}

func (m *memStore) Stats(_ context.Context, et models.EntityType) (models.StoreStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := models.StoreStats{
		SyncedRows:      int64(len(m.synced[et.Name])),
		PendingOps:      int64(len(m.pending[et.Name])),
		PendingByStatus: make(map[models.OpStatus]int64),
	}
	for _, op := range m.pending[et.Name] {
		stats.PendingByStatus[op.Status]++
	}
	return stats, nil
}

// pendingFor returns the current pending ops for one entity id.
func (m *memStore) pendingFor(typeName, entityID string) []models.PendingOp {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.PendingOp
	for _, op := range m.pending[typeName] {
		if op.EntityID == entityID {
			out = append(out, op)
		}
	}
	return out
}

// stubRemote records sends and feeds subscriptions from test code.
type stubRemote struct {
	mu      sync.Mutex
	sent    []sentCall
	sendErr func(op models.PendingOp) error
	subs    map[string]*stubSubscription
}

type sentCall struct {
	typeName string
	op       models.PendingOp
}

func newStubRemote() *stubRemote {
	return &stubRemote{subs: make(map[string]*stubSubscription)}
}

func (r *stubRemote) Send(_ context.Context, et models.EntityType, op models.PendingOp) error {
	r.mu.Lock()
	r.sent = append(r.sent, sentCall{typeName: et.Name, op: op})
	errFn := r.sendErr
	r.mu.Unlock()

	if errFn != nil {
		return errFn(op)
	}
	return nil
}

func (r *stubRemote) Subscribe(_ context.Context, et models.EntityType) (adapter.Subscription, error) {
	sub := newStubSubscription()
	r.mu.Lock()
	r.subs[et.Name] = sub
	r.mu.Unlock()
	return sub, nil
}

func (r *stubRemote) sentCalls() []sentCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentCall, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *stubRemote) subscription(typeName string) *stubSubscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subs[typeName]
}

type stubSubscription struct {
	ch        chan models.Snapshot
	closeOnce sync.Once
}

func newStubSubscription() *stubSubscription {
	return &stubSubscription{ch: make(chan models.Snapshot)}
}

func (s *stubSubscription) Snapshots() <-chan models.Snapshot { return s.ch }

func (s *stubSubscription) Close() error {
	s.closeOnce.Do(func() { close(s.ch) })
	return nil
}

// push delivers one snapshot and blocks until the orchestrator consumed it.
func (s *stubSubscription) push(snap models.Snapshot) { s.ch <- snap }
