package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deeprecall/replica/models"
)

func newTestOrchestrator(mem *memStore, remote *stubRemote) SyncOrchestrator {
	return NewSyncOrchestrator(mem, remote, NewReconciler(mem))
}

func TestSyncOrchestrator_StartSync_DuplicateRejected(t *testing.T) {
	mem := newMemStore()
	remote := newStubRemote()
	orch := newTestOrchestrator(mem, remote)
	defer orch.Shutdown()
	ctx := context.Background()

	require.NoError(t, orch.StartSync(ctx, worksType))

	err := orch.StartSync(ctx, worksType)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyncAlreadyActive)
}

func TestSyncOrchestrator_FreshSnapshotReplacesReconcilesNotifies(t *testing.T) {
	mem := newMemStore()
	remote := newStubRemote()
	orch := newTestOrchestrator(mem, remote)
	defer orch.Shutdown()
	ctx := context.Background()

	appendOp(t, mem, worksType, models.OpInsert, "w1", models.Record{"id": "w1", "title": "Foo"}, time.Now())

	require.NoError(t, orch.StartSync(ctx, worksType))
	remote.subscription("works").push(models.Snapshot{
		Rows:  []models.Record{{"id": "w1", "title": "Foo"}},
		Fresh: true,
	})

	select {
	case name := <-orch.Updates():
		assert.Equal(t, "works", name)
	case <-time.After(time.Second):
		t.Fatal("no update notification after a fresh snapshot")
	}

	rows, err := mem.GetSyncedAll(ctx, worksType)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Foo", rows[0]["title"])

	assert.Empty(t, mem.pendingFor("works", "w1"), "confirmed pending op is retired")
}

func TestSyncOrchestrator_StaleSnapshotPopulatesMirrorOnly(t *testing.T) {
	mem := newMemStore()
	remote := newStubRemote()
	orch := newTestOrchestrator(mem, remote)
	defer orch.Shutdown()
	ctx := context.Background()

	appendOp(t, mem, worksType, models.OpInsert, "w1", models.Record{"id": "w1", "title": "Foo"}, time.Now())

	require.NoError(t, orch.StartSync(ctx, worksType))
	remote.subscription("works").push(models.Snapshot{
		Rows:  []models.Record{{"id": "w1", "title": "Foo"}},
		Fresh: false,
	})

	require.Eventually(t, func() bool {
		rows, err := mem.GetSyncedAll(ctx, worksType)
		return err == nil && len(rows) == 1
	}, time.Second, 5*time.Millisecond, "stale snapshot still warms the mirror")

	assert.Len(t, mem.pendingFor("works", "w1"), 1, "stale snapshot never reconciles")

	select {
	case <-orch.Updates():
		t.Fatal("stale snapshot must not notify")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSyncOrchestrator_StopSync_Idempotent(t *testing.T) {
	mem := newMemStore()
	remote := newStubRemote()
	orch := newTestOrchestrator(mem, remote)
	ctx := context.Background()

	require.NoError(t, orch.StartSync(ctx, worksType))
	require.NoError(t, orch.StopSync("works"))
	require.NoError(t, orch.StopSync("works"))
	require.NoError(t, orch.StopSync("never_started"))
}

func TestSyncOrchestrator_RestartAfterStop(t *testing.T) {
	mem := newMemStore()
	remote := newStubRemote()
	orch := newTestOrchestrator(mem, remote)
	defer orch.Shutdown()
	ctx := context.Background()

	require.NoError(t, orch.StartSync(ctx, worksType))
	require.NoError(t, orch.StopSync("works"))

	require.NoError(t, orch.StartSync(ctx, worksType), "a stopped type can be resubscribed")
}

func TestSyncOrchestrator_FeedCloseReleasesSlot(t *testing.T) {
	mem := newMemStore()
	remote := newStubRemote()
	orch := newTestOrchestrator(mem, remote)
	defer orch.Shutdown()
	ctx := context.Background()

	require.NoError(t, orch.StartSync(ctx, worksType))
	require.NoError(t, remote.subscription("works").Close())

	require.Eventually(t, func() bool {
		return orch.StartSync(ctx, worksType) == nil
	}, time.Second, 5*time.Millisecond, "a type whose feed ended can be resubscribed")
}
