package directory

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/slots"
)

// System defines the public contract for directory lookups.
//
// Lookups that may legitimately find nothing return ok=false instead of an error.
type System interface {
	Handler(maxUploadSize int64) *Handler

	FindUser(ctx context.Context, id uuid.UUID) (*User, error)
	DepartmentHead(ctx context.Context, departmentID uuid.UUID) (uuid.UUID, bool, error)
	SlotBinding(ctx context.Context, key slots.Key) (*Binding, bool, error)
	AnyUserInRole(ctx context.Context, role string) (uuid.UUID, bool, error)

	ActiveIdentity(ctx context.Context, userID uuid.UUID) (*Identity, error)
	Signature(ctx context.Context, userID uuid.UUID) (*Signature, error)
	PutSignature(ctx context.Context, userID uuid.UUID, contentType string, data []byte) (*Signature, error)
}
