package api

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/artifacts"
	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/internal/infrastructure"
	"github.com/JaimeStill/docket/internal/render"
	"github.com/JaimeStill/docket/internal/signer"
	"github.com/JaimeStill/docket/pkg/keylock"
	"github.com/JaimeStill/docket/pkg/pagination"
)

// Runtime extends Infrastructure with the shared collaborators of the signing workflow.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Locks      *keylock.Registry[uuid.UUID]
	Artifacts  *artifacts.Store
	Renderer   render.Renderer
	Signer     signer.Signer
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) (*Runtime, error) {
	logger := infra.Logger.With("module", "api")

	store, err := artifacts.New(cfg.Signing.ArtifactRoot, infra.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("artifacts init failed: %w", err)
	}

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Database:  infra.Database,
			Storage:   infra.Storage,
			Verifier:  infra.Verifier,
		},
		Pagination: cfg.API.Pagination,
		Locks:      keylock.New[uuid.UUID](),
		Artifacts:  store,
		Renderer:   render.New(infra.Storage, logger),
		Signer:     signer.New(&cfg.Signing.Signer, logger),
	}, nil
}
