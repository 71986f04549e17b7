// Package directory exposes the organisation data the workflow reads: users,
// department heads, the slot bindings of the routing template, digital
// signing identities and saved signature images. Users, departments and
// bindings are administered elsewhere; only signature images are written here.
package directory

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/slots"
)

// Roles read by the workflow.
const (
	RoleDepartmentHead = "department_head"
	RoleOfficeHead     = "office_head"
	RoleClerk          = "clerk"
)

// HeadRoles are the roles that make an active user the head of their department.
var HeadRoles = []string{RoleDepartmentHead, RoleOfficeHead}

// User is a directory user.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	FullName     string     `json:"full_name"`
	DepartmentID *uuid.UUID `json:"department_id"`
	IsActive     bool       `json:"is_active"`
}

// Binding maps a routing slot to the department or user that staffs it.
type Binding struct {
	SlotKey      slots.Key  `json:"slot_key"`
	DepartmentID *uuid.UUID `json:"department_id"`
	UserID       *uuid.UUID `json:"user_id"`
}

// Identity is the certificate profile a user signs with on the remote provider.
type Identity struct {
	UserID   uuid.UUID `json:"user_id"`
	EmpCode  string    `json:"emp_code"`
	CertName string    `json:"cert_name"`
	Company  string    `json:"company"`
}

// Signature is a user's saved signature image.
type Signature struct {
	UserID      uuid.UUID `json:"user_id"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"-"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
