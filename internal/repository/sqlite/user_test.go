package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/vaccine-portal/internal/apperror"
	"github.com/sakif/vaccine-portal/internal/model"
)

// newTestDB returns a fresh in-memory database, closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, email string, role model.Role) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		PasswordHash: "$2a$04$hash",
		FirstName:    "Test",
		LastName:     "User",
		Gender:       model.GenderOther,
		Role:         role,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE / GET
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Email: "ada@example.com", FirstName: "Ada"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleUser)
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("CreateUser() did not stamp timestamps")
	}
}

func TestGetUserByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "found@example.com", "")

	found, err := db.GetUserByEmail(context.Background(), "found@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.Email != created.Email {
		t.Errorf("Email = %q, want %q", found.Email, created.Email)
	}
	if found.PasswordHash != created.PasswordHash {
		t.Errorf("PasswordHash = %q, want %q", found.PasswordHash, created.PasswordHash)
	}
	if found.Gender != model.GenderOther {
		t.Errorf("Gender = %q, want %q", found.Gender, model.GenderOther)
	}
	if !found.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, created.CreatedAt)
	}
}

func TestGetUserByEmail_Miss(t *testing.T) {
	db := newTestDB(t)

	found, err := db.GetUserByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v, want nil", err)
	}
	if found != nil {
		t.Errorf("GetUserByEmail() = %+v, want nil", found)
	}
}

// =========================================================================
// UPDATE
// =========================================================================

func TestUpdateUser(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "upd@example.com", "")

	later := created.UpdatedAt.Add(time.Minute)
	db.now = func() time.Time { return later }

	phone := "555-0100"
	gender := model.GenderFemale
	got, err := db.UpdateUser(context.Background(), "upd@example.com", model.ProfileUpdate{
		Phone:  &phone,
		Gender: &gender,
	})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	if got.Phone != phone || got.Gender != gender {
		t.Errorf("fields not applied: %+v", got)
	}
	if got.FirstName != "Test" {
		t.Errorf("FirstName changed to %q; unset fields must be left alone", got.FirstName)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", created.CreatedAt, got.CreatedAt)
	}
}

func TestUpdateUser_KeyAndRoleImmutable(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "keep@example.com", model.RoleUser)

	name := "Renamed"
	got, err := db.UpdateUser(context.Background(), "keep@example.com", model.ProfileUpdate{FirstName: &name})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if got.Email != "keep@example.com" {
		t.Errorf("Email = %q, want unchanged", got.Email)
	}
	if got.Role != model.RoleUser {
		t.Errorf("Role = %q, want unchanged", got.Role)
	}
	if got.PasswordHash != "$2a$04$hash" {
		t.Errorf("PasswordHash changed")
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	db := newTestDB(t)

	name := "x"
	_, err := db.UpdateUser(context.Background(), "ghost@example.com", model.ProfileUpdate{FirstName: &name})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("UpdateUser() error = %v, want ErrNotFound", err)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Message != "User not found" {
		t.Errorf("message = %v, want %q", err, "User not found")
	}
}

// =========================================================================
// DELETE / LIST
// =========================================================================

func TestDeleteUser_Twice(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "del@example.com", "")

	for i := 1; i <= 2; i++ {
		if err := db.DeleteUser(context.Background(), "del@example.com"); err != nil {
			t.Fatalf("DeleteUser() #%d error = %v", i, err)
		}
	}

	found, _ := db.GetUserByEmail(context.Background(), "del@example.com")
	if found != nil {
		t.Error("user still present after delete")
	}
}

func TestListUsers_ExcludesAdmins(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "a@example.com", model.RoleUser)
	createTestUser(t, db, "root@example.com", model.RoleAdmin)
	createTestUser(t, db, "b@example.com", "")

	users, err := db.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}
	for _, u := range users {
		if u.IsAdmin() {
			t.Errorf("admin %s listed", u.Email)
		}
	}
}

func TestOAuthLink(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	got, err := db.GetOAuthLink(ctx, "ada@example.com", model.ProviderGoogle)
	if err != nil || got != nil {
		t.Fatalf("GetOAuthLink() before create = (%+v, %v), want (nil, nil)", got, err)
	}

	link := &model.OAuthLink{Email: "ada@example.com", Provider: model.ProviderGoogle, ProviderID: "g-1"}
	if err := db.CreateOAuthLink(ctx, link); err != nil {
		t.Fatalf("CreateOAuthLink() error = %v", err)
	}

	got, err = db.GetOAuthLink(ctx, "ada@example.com", model.ProviderGoogle)
	if err != nil {
		t.Fatalf("GetOAuthLink() error = %v", err)
	}
	if got.ProviderID != "g-1" {
		t.Errorf("ProviderID = %q, want %q", got.ProviderID, "g-1")
	}
}
