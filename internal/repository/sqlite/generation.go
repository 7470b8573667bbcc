package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/opm-codegen/internal/apperror"
	"github.com/sakif/opm-codegen/internal/model"
	"github.com/sakif/opm-codegen/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` assigns a nil *Y to a variable of interface type X.
// If *Y doesn't implement X, the compiler errors immediately instead of at
// some distant call site. A Go best practice for any interface implementation.
var _ repository.GenerationRepository = (*DB)(nil)

// Create inserts a new generation.
//
// ID GENERATION WITH xid:
// xid produces 20-char, URL-safe, creation-time-sortable IDs — a good fit
// for a primary key that also appears in URLs (/projects/{id}).
//
// The caller's struct is mutated: after Create returns, gen carries the
// minted ID and the creation timestamps (created_at == updated_at — the
// "never refined" signal).
func (db *DB) Create(ctx context.Context, gen *model.Generation) error {
	gen.ID = xid.New().String()

	now := time.Now().UTC()
	gen.CreatedAt = now
	gen.UpdatedAt = now
	gen.DiagramSize = int64(len(gen.DiagramFile))

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO generations
		   (id, owner_email, diagram_filename, diagram_file,
		    target_language, output_filename, code, explanation,
		    created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gen.ID,
		gen.OwnerEmail,
		gen.DiagramFilename,
		gen.DiagramFile,
		gen.TargetLanguage,
		gen.OutputFilename,
		gen.Code,
		gen.Explanation,
		gen.CreatedAt,
		gen.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating generation: %w", err)
	}

	return nil
}

// generationColumns is the projection used by GetByID and ListByOwner.
// Note length(diagram_file) instead of diagram_file — the blob itself
// never travels with lookups and listings, only its size.
const generationColumns = `id, owner_email, diagram_filename,
	length(diagram_file), target_language, output_filename,
	code, explanation, created_at, updated_at`

// scanGeneration reads one projected row into a model.Generation.
func scanGeneration(scan func(dest ...any) error) (*model.Generation, error) {
	var gen model.Generation
	err := scan(
		&gen.ID,
		&gen.OwnerEmail,
		&gen.DiagramFilename,
		&gen.DiagramSize,
		&gen.TargetLanguage,
		&gen.OutputFilename,
		&gen.Code,
		&gen.Explanation,
		&gen.CreatedAt,
		&gen.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &gen, nil
}

// GetByID retrieves a single generation, without the diagram blob.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Generation, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+generationColumns+` FROM generations WHERE id = ?`, id)

	gen, err := scanGeneration(row.Scan)
	if err != nil {
		// sql.ErrNoRows is a sentinel, not a real failure — translate it
		// to the domain's NotFound so the handler can answer 404.
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("generation", id)
		}
		return nil, fmt.Errorf("sqlite: getting generation %s: %w", id, err)
	}

	return gen, nil
}

// GetDiagram loads the original filename and raw diagram bytes.
// This is the only query that touches the blob column.
func (db *DB) GetDiagram(ctx context.Context, id string) (string, []byte, error) {
	var filename string
	var data []byte

	err := db.conn.QueryRowContext(ctx,
		`SELECT diagram_filename, diagram_file FROM generations WHERE id = ?`,
		id,
	).Scan(&filename, &data)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, apperror.NotFound("generation", id)
		}
		return "", nil, fmt.Errorf("sqlite: getting diagram for %s: %w", id, err)
	}

	return filename, data, nil
}

// ListByOwner returns one owner's generations, newest first, without blobs.
func (db *DB) ListByOwner(ctx context.Context, ownerEmail string) ([]model.Generation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+generationColumns+`
		 FROM generations
		 WHERE owner_email = ?
		 ORDER BY created_at DESC`,
		ownerEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing generations: %w", err)
	}
	// sql.Rows holds a pool connection — forgetting Close() leaks it.
	defer rows.Close()

	generations := []model.Generation{}
	for rows.Next() {
		gen, err := scanGeneration(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning generation row: %w", err)
		}
		generations = append(generations, *gen)
	}

	// rows.Err() catches failures that happened DURING iteration.
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating generations: %w", err)
	}

	return generations, nil
}

// UpdateResult overwrites the generated code and explanation wholesale and
// advances updated_at. The single UPDATE is the store-level atomic unit:
// concurrent refinements race at last-write-wins granularity, but a row is
// never left half-updated.
//
// RowsAffected == 0 means the WHERE clause matched nothing — the record
// was never created or has been deleted. Refinement must NEVER implicitly
// create a record, so that case is NotFound, not an upsert.
func (db *DB) UpdateResult(ctx context.Context, id, code, explanation string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE generations
		 SET code = ?, explanation = ?, updated_at = ?
		 WHERE id = ?`,
		code,
		explanation,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating generation %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("generation", id)
	}

	return nil
}

// Delete removes a generation by id. Same RowsAffected pattern as
// UpdateResult to detect "not found".
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM generations WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting generation %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("generation", id)
	}

	return nil
}
