package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/opm-codegen/internal/apperror"
	"github.com/sakif/opm-codegen/internal/model"
)

// newTestDB opens an in-memory SQLite database for testing.
// ":memory:" gives every test a fresh, isolated database that disappears
// on Close — no files to clean up, no state shared between tests.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func testGeneration(owner string) *model.Generation {
	return &model.Generation{
		OwnerEmail:      owner,
		DiagramFilename: "diagram.pdf",
		DiagramFile:     []byte("%PDF-1.4 fake diagram bytes"),
		TargetLanguage:  "python",
		OutputFilename:  "main.py",
		Code:            "print('hello')",
		Explanation:     "one object, one process",
	}
}

func TestGenerationCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	gen := testGeneration("alice@example.com")
	if err := db.Create(ctx, gen); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if gen.ID == "" {
		t.Fatal("Create() should mint an ID")
	}
	if !gen.CreatedAt.Equal(gen.UpdatedAt) {
		t.Error("a fresh generation must have created_at == updated_at")
	}

	got, err := db.GetByID(ctx, gen.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.OwnerEmail != "alice@example.com" {
		t.Errorf("OwnerEmail = %q", got.OwnerEmail)
	}
	if got.Code != "print('hello')" {
		t.Errorf("Code = %q", got.Code)
	}
	if got.OutputFilename != "main.py" {
		t.Errorf("OutputFilename = %q", got.OutputFilename)
	}

	// The projection must exclude the blob but report its size.
	if got.DiagramFile != nil {
		t.Error("GetByID() must not load the diagram blob")
	}
	if got.DiagramSize != int64(len("%PDF-1.4 fake diagram bytes")) {
		t.Errorf("DiagramSize = %d", got.DiagramSize)
	}
}

func TestGenerationGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGenerationGetDiagram(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	gen := testGeneration("alice@example.com")
	if err := db.Create(ctx, gen); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	filename, data, err := db.GetDiagram(ctx, gen.ID)
	if err != nil {
		t.Fatalf("GetDiagram() error = %v", err)
	}
	if filename != "diagram.pdf" {
		t.Errorf("filename = %q", filename)
	}
	if string(data) != "%PDF-1.4 fake diagram bytes" {
		t.Errorf("data = %q", data)
	}

	_, _, err = db.GetDiagram(ctx, "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetDiagram(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGenerationListByOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Two records for alice (created in order), one for bob.
	first := testGeneration("alice@example.com")
	if err := db.Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Ensure distinct created_at values so the ordering is deterministic.
	time.Sleep(5 * time.Millisecond)

	second := testGeneration("alice@example.com")
	if err := db.Create(ctx, second); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	other := testGeneration("bob@example.com")
	if err := db.Create(ctx, other); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list, err := db.ListByOwner(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}

	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}

	// Newest first.
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("order = [%s, %s], want [%s, %s]", list[0].ID, list[1].ID, second.ID, first.ID)
	}

	// Never another owner's records, never the blob.
	for _, gen := range list {
		if gen.OwnerEmail != "alice@example.com" {
			t.Errorf("leaked record owned by %q", gen.OwnerEmail)
		}
		if gen.DiagramFile != nil {
			t.Error("ListByOwner() must not load diagram blobs")
		}
	}

	// Unknown owner gets an empty list, not an error.
	empty, err := db.ListByOwner(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("ListByOwner(nobody) error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("len(empty) = %d, want 0", len(empty))
	}
}

func TestGenerationUpdateResult(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	gen := testGeneration("alice@example.com")
	if err := db.Create(ctx, gen); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Make sure updated_at can move strictly past created_at.
	time.Sleep(5 * time.Millisecond)

	if err := db.UpdateResult(ctx, gen.ID, "print('refined')", "tightened the loop"); err != nil {
		t.Fatalf("UpdateResult() error = %v", err)
	}

	got, err := db.GetByID(ctx, gen.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Code != "print('refined')" {
		t.Errorf("Code = %q, want the refined output", got.Code)
	}
	if got.Explanation != "tightened the loop" {
		t.Errorf("Explanation = %q", got.Explanation)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("UpdatedAt (%v) should be after CreatedAt (%v)", got.UpdatedAt, got.CreatedAt)
	}
	if !got.Refined() {
		t.Error("Refined() should be true after an update")
	}

	// Everything else is untouched.
	if got.TargetLanguage != "python" || got.OutputFilename != "main.py" {
		t.Error("UpdateResult() must not touch language or output filename")
	}
}

func TestGenerationUpdateResult_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateResult(context.Background(), "missing", "code", "explanation")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateResult(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGenerationDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	gen := testGeneration("alice@example.com")
	if err := db.Create(ctx, gen); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := db.Delete(ctx, gen.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := db.GetByID(ctx, gen.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting again is NotFound, not a silent no-op.
	if err := db.Delete(ctx, gen.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
