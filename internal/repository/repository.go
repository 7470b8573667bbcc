// Package repository defines the persistence contracts consumed by the
// service layer. Concrete implementations live in subpackages (sqlite);
// services program against these interfaces so tests can inject in-memory
// fakes and the storage engine can be swapped without touching business
// logic.
package repository

import (
	"context"

	"github.com/sakif/opm-codegen/internal/model"
)

// GenerationRepository persists OPM code generations.
//
// All operations are single-row; no cross-row transactions are needed
// because each generation is independently owned.
//
// PROJECTION RULE:
// The raw diagram blob is large (megabytes). GetByID and ListByOwner must
// exclude it — only DiagramSize is reported. GetDiagram is the one
// operation that loads the bytes, for the download endpoint.
type GenerationRepository interface {
	// Create inserts a new generation, filling in ID and timestamps.
	Create(ctx context.Context, gen *model.Generation) error

	// GetByID returns the generation without the diagram blob.
	// Returns apperror.ErrNotFound if no row matches.
	GetByID(ctx context.Context, id string) (*model.Generation, error)

	// GetDiagram returns the original filename and raw diagram bytes.
	// Returns apperror.ErrNotFound if no row matches.
	GetDiagram(ctx context.Context, id string) (filename string, data []byte, err error)

	// ListByOwner returns the owner's generations newest-first, without
	// diagram blobs.
	ListByOwner(ctx context.Context, ownerEmail string) ([]model.Generation, error)

	// UpdateResult atomically overwrites code and explanation and advances
	// updated_at on the matching row. Returns apperror.ErrNotFound when no
	// row matches — refinement never creates records.
	UpdateResult(ctx context.Context, id, code, explanation string) error

	// Delete removes the generation. Returns apperror.ErrNotFound when no
	// row matches. Ownership checks are the caller's responsibility.
	Delete(ctx context.Context, id string) error
}

// UserRepository persists user accounts.
type UserRepository interface {
	// CreateUser inserts a new account, filling in ID and timestamps.
	// Returns apperror.ErrConflict if the email is already registered.
	CreateUser(ctx context.Context, user *model.User) error

	// GetUserByEmail returns the account for the given email.
	// Returns apperror.ErrNotFound if no account matches.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}
