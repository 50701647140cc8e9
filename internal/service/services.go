package service

import (
	"github.com/deeprecall/replica/internal/adapter"
	"github.com/deeprecall/replica/internal/config"
	"github.com/deeprecall/replica/internal/store"
	"github.com/deeprecall/replica/internal/validators"
	"github.com/deeprecall/replica/models"
)

type Services struct {
	Engine       Engine
	Buffer       WriteBuffer
	Orchestrator SyncOrchestrator
}

// NewServices wires the replication engine: validator, write buffer,
// reconciler, orchestrator and the Engine facade on top. The buffer's drain
// loop reads types from the engine's registry, so types registered after
// construction join the drain without a restart.
func NewServices(storages *store.Storages, remote adapter.RemoteStore, cfg config.Sync) *Services {
	validator := validators.NewPayloadValidator()

	eng := &engine{
		store:         storages.Local,
		validator:     validator,
		drainInterval: cfg.DrainInterval,
		types:         make(map[string]models.EntityType),
	}
	eng.buffer = NewWriteBuffer(storages.Local, remote, validator, eng, cfg.BackoffBase, cfg.BackoffRetries)
	eng.orch = NewSyncOrchestrator(storages.Local, remote, NewReconciler(storages.Local))

	return &Services{
		Engine:       eng,
		Buffer:       eng.buffer,
		Orchestrator: eng.orch,
	}
}
