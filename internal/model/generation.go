// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Generation represents one persisted unit of OPM code-generation work:
// the uploaded diagram, its target language, and the AI's output.
//
// A Generation is only ever created when the AI judged the diagram to be a
// valid OPM model — invalid outcomes are returned to the caller but never
// stored. After creation, only Code, Explanation, and UpdatedAt change
// (via refinement); everything else is immutable for the record's lifetime.
//
// The `json:"..."` tags control serialization to the API. Note DiagramFile:
// `json:"-"` means the raw bytes are NEVER included in JSON responses —
// the diagram can be several megabytes, and clients fetch it through the
// dedicated /projects/{id}/pdf download endpoint instead.
type Generation struct {
	ID              string    `json:"generation_id"    db:"id"`
	OwnerEmail      string    `json:"user_email"       db:"owner_email"`
	DiagramFilename string    `json:"diagram_filename" db:"diagram_filename"`
	DiagramFile     []byte    `json:"-"                db:"diagram_file"`
	DiagramSize     int64     `json:"diagram_size"     db:"diagram_size"` // filled from length(diagram_file) in projections
	TargetLanguage  string    `json:"target_language"  db:"target_language"`
	OutputFilename  string    `json:"output_filename"  db:"output_filename"`
	Code            string    `json:"code"             db:"code"`
	Explanation     string    `json:"explanation"      db:"explanation"`
	CreatedAt       time.Time `json:"created_at"       db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"       db:"updated_at"`
}

// Refined reports whether this generation has ever been refined.
// CreatedAt == UpdatedAt is the "never refined" signal: refinement is the
// only mutation a Generation can undergo, and it always advances UpdatedAt.
func (g *Generation) Refined() bool {
	return !g.CreatedAt.Equal(g.UpdatedAt)
}

// GenerationStats holds the derived metrics returned by the stats endpoint.
// Nothing here is stored — it's computed from the record on each request.
type GenerationStats struct {
	GenerationID   string    `json:"generation_id"`
	TargetLanguage string    `json:"target_language"`
	CodeLines      int       `json:"code_lines"`
	CodeBytes      int       `json:"code_bytes"`
	DiagramBytes   int64     `json:"diagram_bytes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	HasBeenRefined bool      `json:"has_been_refined"`
}
