// Package policy holds the per-endpoint authorization rules applied by services.
package policy

import "bloh/internal/models"

// Identity is the caller of an operation. The zero value is an anonymous caller.
type Identity struct {
	UserID uint
	Admin  bool
}

// Anonymous is the identity of an unauthenticated caller.
var Anonymous = Identity{}

// Authenticated reports whether the caller presented a valid identity.
func (i Identity) Authenticated() bool {
	return i.UserID != 0
}

// Owns reports whether the caller is ownerID.
func (i Identity) Owns(ownerID uint) bool {
	return i.Authenticated() && i.UserID == ownerID
}

// Action is the kind of access being requested.
type Action int

const (
	Read Action = iota
	Write
)

// Policy decides whether an identity may perform an action on a resource owned by ownerID.
// Check returns nil, an UNAUTHORIZED AppError when an identity is missing, or a FORBIDDEN one.
type Policy interface {
	Check(id Identity, action Action, ownerID uint) error
}

// ReadOpenWriteOwnerOrAdmin lets anyone read and restricts writes to the author or an admin.
type ReadOpenWriteOwnerOrAdmin struct{}

func (ReadOpenWriteOwnerOrAdmin) Check(id Identity, action Action, ownerID uint) error {
	if action == Read {
		return nil
	}
	if !id.Authenticated() {
		return models.NewUnauthorizedError("Authentication required")
	}
	if id.Admin || id.Owns(ownerID) {
		return nil
	}
	return models.NewForbiddenError("Only the author or an admin can modify this resource")
}

// AdminOnlyWrite restricts writes to admins. Reads are open unless AuthenticatedReads is set.
type AdminOnlyWrite struct {
	AuthenticatedReads bool
}

func (p AdminOnlyWrite) Check(id Identity, action Action, _ uint) error {
	if action == Read {
		if p.AuthenticatedReads && !id.Authenticated() {
			return models.NewUnauthorizedError("Authentication required")
		}
		return nil
	}
	if !id.Authenticated() {
		return models.NewUnauthorizedError("Authentication required")
	}
	if !id.Admin {
		return models.NewForbiddenError("Admin access required")
	}
	return nil
}

// AuthenticatedRequired admits any authenticated identity regardless of role.
type AuthenticatedRequired struct{}

func (AuthenticatedRequired) Check(id Identity, _ Action, _ uint) error {
	if !id.Authenticated() {
		return models.NewUnauthorizedError("Authentication required")
	}
	return nil
}

// Shared policy values used by services.
var (
	OwnerOrAdmin  Policy = ReadOpenWriteOwnerOrAdmin{}
	AdminWrite    Policy = AdminOnlyWrite{}
	Authenticated Policy = AuthenticatedRequired{}
)
