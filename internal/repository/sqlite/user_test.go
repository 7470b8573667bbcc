package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/opm-codegen/internal/apperror"
	"github.com/sakif/opm-codegen/internal/model"
)

func testUser(email string) *model.User {
	return &model.User{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        email,
		PasswordHash: "$2a$04$notarealhashbutlookslikeone",
	}
}

func TestCreateUserAndGetByEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := testUser("ada@example.com")
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == "" {
		t.Fatal("CreateUser() should mint an ID")
	}

	got, err := db.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}

	if got.ID != user.ID {
		t.Errorf("ID = %q, want %q", got.ID, user.ID)
	}
	if got.FirstName != "Ada" || got.LastName != "Lovelace" {
		t.Errorf("name = %q %q", got.FirstName, got.LastName)
	}
	if got.PasswordHash != user.PasswordHash {
		t.Error("stored hash does not round-trip")
	}
}

func TestCreateUser_DuplicateEmailConflicts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.CreateUser(ctx, testUser("ada@example.com")); err != nil {
		t.Fatalf("first CreateUser() error = %v", err)
	}

	err := db.CreateUser(ctx, testUser("ada@example.com"))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail(ghost) error = %v, want ErrNotFound", err)
	}
}
