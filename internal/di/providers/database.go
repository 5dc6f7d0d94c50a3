package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/quillpost/quill-server/internal/config"
	"github.com/quillpost/quill-server/internal/logger"
	"github.com/quillpost/quill-server/internal/store"
	"github.com/quillpost/quill-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the storage backend selected by configuration.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var (
		s   store.Store
		err error
	)
	switch cfg.Database.Backend {
	case config.BackendSQLite:
		s, err = sqlite.Open(cfg.Database.Path, log.Logger)
	case config.BackendBadger:
		s, err = store.NewBadgerStore(cfg.Database.Path, log.Logger)
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Database.Backend)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized",
		"backend", cfg.Database.Backend,
		"path", cfg.Database.Path,
	)

	return &StoreHandle{Store: s}, nil
}
