package providers

import (
	"github.com/samber/do/v2"

	"github.com/quillpost/quill-server/internal/logger"
	"github.com/quillpost/quill-server/internal/service"
)

// ProvideEngagementService provides the engagement counter service.
func ProvideEngagementService(i do.Injector) (*service.EngagementService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewEngagementService(storeHandle.Store, log.Logger), nil
}

// ProvideTagService provides the tag reconciliation service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, log.Logger), nil
}
