package dossiers

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/pagination"
)

// Reader exposes the read-side queries served over HTTP.
type Reader interface {
	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Dossier], error)

	Detail(ctx context.Context, id uuid.UUID) (*Detail, error)
}

// System is the public contract of the dossier domain: the transactional
// repository used by the workflow plus the read queries.
type System interface {
	Repository
	Reader
	Handler() *Handler
}
