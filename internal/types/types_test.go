package types

import (
	"testing"

	"github.com/gofrs/uuid"
)

func TestUserContext_IsAdmin(t *testing.T) {
	admin := UserContext{UserID: uuid.Must(uuid.NewV4()), SystemRole: AdminRole}
	if !admin.IsAdmin() {
		t.Error("expected admin role to report IsAdmin")
	}

	user := UserContext{UserID: uuid.Must(uuid.NewV4()), SystemRole: UserRole}
	if user.IsAdmin() {
		t.Error("expected user role to not report IsAdmin")
	}
}
