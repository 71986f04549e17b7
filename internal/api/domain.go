package api

import (
	"time"

	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/internal/delegations"
	"github.com/JaimeStill/docket/internal/directory"
	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/internal/routing"
	"github.com/JaimeStill/docket/internal/signing"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Dossiers    dossiers.System
	Directory   directory.System
	Delegations delegations.System
	Routing     routing.System
	Signing     signing.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	dossierSystem := dossiers.New(db, runtime.Logger, runtime.Pagination)
	directorySystem := directory.New(db, runtime.Logger)
	delegationSystem := delegations.New(db, runtime.Logger, time.Now)

	routingSystem := routing.New(
		dossierSystem,
		directorySystem,
		runtime.Storage,
		runtime.Locks,
		runtime.Logger,
	)

	signingSystem := signing.New(
		signing.Deps{
			Repo:      dossierSystem,
			Directory: directorySystem,
			Auth:      delegationSystem,
			Artifacts: runtime.Artifacts,
			Renderer:  runtime.Renderer,
			Signer:    runtime.Signer,
			Source:    runtime.Storage,
			Locks:     runtime.Locks,
			Now:       time.Now,
		},
		&cfg.Signing,
		runtime.Logger,
	)

	return &Domain{
		Dossiers:    dossierSystem,
		Directory:   directorySystem,
		Delegations: delegationSystem,
		Routing:     routingSystem,
		Signing:     signingSystem,
	}
}
