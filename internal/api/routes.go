package api

import (
	"net/http"

	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	maxUpload := cfg.API.MaxUploadSizeBytes()

	routes.Register(
		mux,
		domain.Dossiers.Handler().Routes(),
		domain.Routing.Handler(maxUpload).Routes(),
		domain.Signing.Handler().Routes(),
		domain.Delegations.Handler().Routes(),
		domain.Directory.Handler(maxUpload).Routes(),
	)
}
