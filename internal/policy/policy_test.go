package policy

import (
	"testing"

	"bloh/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPolicies(t *testing.T) {
	owner := Identity{UserID: 1}
	stranger := Identity{UserID: 2}
	admin := Identity{UserID: 3, Admin: true}

	tests := []struct {
		name     string
		policy   Policy
		id       Identity
		action   Action
		wantCode string
	}{
		{"owner-or-admin: anonymous read", OwnerOrAdmin, Anonymous, Read, ""},
		{"owner-or-admin: anonymous write", OwnerOrAdmin, Anonymous, Write, models.CodeUnauthorized},
		{"owner-or-admin: owner write", OwnerOrAdmin, owner, Write, ""},
		{"owner-or-admin: stranger write", OwnerOrAdmin, stranger, Write, models.CodeForbidden},
		{"owner-or-admin: admin write", OwnerOrAdmin, admin, Write, ""},
		{"admin-write: anonymous read", AdminWrite, Anonymous, Read, ""},
		{"admin-write: authenticated reads only", AdminOnlyWrite{AuthenticatedReads: true}, Anonymous, Read, models.CodeUnauthorized},
		{"admin-write: owner write", AdminWrite, owner, Write, models.CodeForbidden},
		{"admin-write: admin write", AdminWrite, admin, Write, ""},
		{"authenticated: anonymous read", Authenticated, Anonymous, Read, models.CodeUnauthorized},
		{"authenticated: any user write", Authenticated, stranger, Write, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Check(tt.id, tt.action, owner.UserID)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, models.ErrorCode(err))
		})
	}
}

func TestIdentity(t *testing.T) {
	assert.False(t, Anonymous.Authenticated())
	assert.False(t, Anonymous.Owns(0))
	assert.True(t, Identity{UserID: 4}.Owns(4))
}
