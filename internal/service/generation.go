// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// GenerationService is the orchestration core of the whole system: it
// turns an uploaded diagram + parameters into a validated AI request,
// invokes the model exactly once per call, and reconciles the outcome
// with the store — create on first success, update in place on refine,
// never persist an invalid result.
//
// DEPENDENCY INJECTION:
// The service takes repository.GenerationRepository and oracle.Client
// (interfaces), not concrete types. Tests inject an in-memory repository
// and a scripted model; main injects SQLite and Gemini.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/opm-codegen/internal/apperror"
	"github.com/sakif/opm-codegen/internal/model"
	"github.com/sakif/opm-codegen/internal/oracle"
	"github.com/sakif/opm-codegen/internal/repository"
	"github.com/sakif/opm-codegen/internal/upload"
)

// DefaultLanguages is the language → output filename convention. Exactly
// these four in the stock deployment; the mapping is configuration (a
// plain map passed to NewGenerationService), not hardcoded branches, so a
// deployment can extend it without touching this package.
func DefaultLanguages() map[string]string {
	return map[string]string{
		"python": "main.py",
		"java":   "Main.java",
		"csharp": "Program.cs",
		"cpp":    "main.cpp",
	}
}

// Outcome is what generate and refine calls return to the HTTP layer.
// Code, Filename, and GenerationID are only populated when Status is
// "valid" — the omitempty tags keep them out of invalid-result JSON.
type Outcome struct {
	Status       string `json:"status"`
	Explanation  string `json:"explanation"`
	Code         string `json:"code,omitempty"`
	Filename     string `json:"filename,omitempty"`
	GenerationID string `json:"generation_id,omitempty"`
}

// Valid reports whether the outcome carries generated code.
func (o *Outcome) Valid() bool {
	return o.Status == oracle.StatusValid
}

// GenerationService handles the generation workflow and project queries.
type GenerationService struct {
	repo      repository.GenerationRepository
	ai        oracle.Client
	validator *upload.Validator
	languages map[string]string // read-only after construction
	logger    *slog.Logger
}

// NewGenerationService wires the orchestration core. languages may be nil,
// in which case the default four-language convention applies.
func NewGenerationService(
	repo repository.GenerationRepository,
	ai oracle.Client,
	validator *upload.Validator,
	languages map[string]string,
	logger *slog.Logger,
) *GenerationService {
	if languages == nil {
		languages = DefaultLanguages()
	}
	return &GenerationService{
		repo:      repo,
		ai:        ai,
		validator: validator,
		languages: languages,
		logger:    logger,
	}
}

// Create runs the full generation workflow for a new diagram upload.
//
// ORDERING MATTERS:
// All validation (owner, file, language) happens BEFORE the model call —
// the model is the expensive step, and a bad request must never reach it.
// Persistence happens only AFTER a valid model outcome — an invalid
// diagram leaves no trace in the store, so "the record exists" and "the
// model approved this diagram" are the same fact.
func (s *GenerationService) Create(ctx context.Context, ownerEmail string, diagram []byte, diagramFilename, targetLanguage string) (*Outcome, error) {
	ownerEmail = strings.TrimSpace(ownerEmail)
	if ownerEmail == "" {
		return nil, apperror.ValidationFailed("user_email", "user email is required")
	}

	if err := s.validator.Validate(diagramFilename, int64(len(diagram))); err != nil {
		return nil, err
	}

	targetLanguage = strings.ToLower(strings.TrimSpace(targetLanguage))
	outputFilename, ok := s.languages[targetLanguage]
	if !ok {
		return nil, apperror.ValidationFailed("target_language",
			fmt.Sprintf("unsupported language: %s", targetLanguage))
	}

	// One model invocation — never retried, failures come back as an
	// invalid result with a diagnostic explanation.
	result := s.ai.Generate(ctx, diagram, s.validator.MIMEType(diagramFilename), targetLanguage)

	if !result.Valid() {
		s.logger.Info("diagram rejected",
			slog.String("owner", ownerEmail),
			slog.String("language", targetLanguage),
		)
		return &Outcome{Status: result.Status, Explanation: result.Explanation}, nil
	}

	gen := &model.Generation{
		OwnerEmail:      ownerEmail,
		DiagramFilename: diagramFilename,
		DiagramFile:     diagram,
		TargetLanguage:  targetLanguage,
		// The filename convention is ours, not the model's: the configured
		// mapping wins over whatever the model suggested, so the output
		// name is deterministic per language.
		OutputFilename: outputFilename,
		Code:           result.Code,
		Explanation:    result.Explanation,
	}

	if err := s.repo.Create(ctx, gen); err != nil {
		s.logger.Error("failed to persist generation",
			slog.String("owner", ownerEmail),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating generation: %w", err)
	}

	s.logger.Info("generation created",
		slog.String("id", gen.ID),
		slog.String("owner", ownerEmail),
		slog.String("language", targetLanguage),
	)

	return &Outcome{
		Status:       result.Status,
		Explanation:  result.Explanation,
		Code:         result.Code,
		Filename:     outputFilename,
		GenerationID: gen.ID,
	}, nil
}

// Refine reworks an existing generation's code according to the user's
// fix instructions.
//
// The stored record is loaded BEFORE the model call: an unknown id or a
// language mismatch is reported without spending a billable invocation.
// The target language is immutable across refinement — a mismatch between
// the request and the stored record is rejected rather than silently
// accepted, because the output filename was fixed by the language at
// creation time.
//
// CONCURRENCY:
// Two simultaneous refinements of the same record race at last-write-wins
// granularity. The store's single-statement update keeps the row
// consistent (code and explanation always come from the same model
// answer), but the later writer overwrites the earlier one. Accepted
// trade-off — refinement is an interactive, one-user-per-project flow.
func (s *GenerationService) Refine(ctx context.Context, generationID string, diagram []byte, diagramFilename, targetLanguage, previousCode, fixInstructions string) (*Outcome, error) {
	generationID = strings.TrimSpace(generationID)
	if generationID == "" {
		return nil, apperror.ValidationFailed("generation_id", "generation ID is required")
	}
	if strings.TrimSpace(previousCode) == "" {
		return nil, apperror.ValidationFailed("previous_code", "previous code is required")
	}
	if strings.TrimSpace(fixInstructions) == "" {
		return nil, apperror.ValidationFailed("fix_instructions", "fix instructions are required")
	}

	if err := s.validator.Validate(diagramFilename, int64(len(diagram))); err != nil {
		return nil, err
	}

	targetLanguage = strings.ToLower(strings.TrimSpace(targetLanguage))
	if _, ok := s.languages[targetLanguage]; !ok {
		return nil, apperror.ValidationFailed("target_language",
			fmt.Sprintf("unsupported language: %s", targetLanguage))
	}

	gen, err := s.repo.GetByID(ctx, generationID)
	if err != nil {
		return nil, err
	}

	if gen.TargetLanguage != targetLanguage {
		return nil, apperror.ValidationFailed("target_language",
			fmt.Sprintf("generation %s targets %s, not %s — the language cannot change on refinement",
				generationID, gen.TargetLanguage, targetLanguage))
	}

	result := s.ai.Refine(ctx, diagram, s.validator.MIMEType(diagramFilename),
		targetLanguage, previousCode, fixInstructions)

	if !result.Valid() {
		// The existing record is left untouched.
		s.logger.Info("refinement rejected", slog.String("id", generationID))
		return &Outcome{Status: result.Status, Explanation: result.Explanation}, nil
	}

	// Atomic update-if-exists: if the record was deleted between our read
	// and this write, UpdateResult reports NotFound. Refinement never
	// resurrects or creates records.
	if err := s.repo.UpdateResult(ctx, generationID, result.Code, result.Explanation); err != nil {
		return nil, err
	}

	s.logger.Info("generation refined",
		slog.String("id", generationID),
		slog.String("language", targetLanguage),
	)

	return &Outcome{
		Status:      result.Status,
		Explanation: result.Explanation,
		Code:        result.Code,
		Filename:    gen.OutputFilename,
	}, nil
}

// Get returns a single generation without the diagram bytes.
func (s *GenerationService) Get(ctx context.Context, id string) (*model.Generation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("generation_id", "generation ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// ListByOwner returns the owner's generations, newest first, diagram
// bytes excluded.
func (s *GenerationService) ListByOwner(ctx context.Context, ownerEmail string) ([]model.Generation, error) {
	ownerEmail = strings.TrimSpace(ownerEmail)
	if ownerEmail == "" {
		return nil, apperror.ValidationFailed("user_email", "user email is required")
	}

	list, err := s.repo.ListByOwner(ctx, ownerEmail)
	if err != nil {
		s.logger.Error("failed to list generations",
			slog.String("owner", ownerEmail),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing generations: %w", err)
	}

	return list, nil
}

// Diagram returns the original filename and raw diagram bytes for download.
func (s *GenerationService) Diagram(ctx context.Context, id string) (string, []byte, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", nil, apperror.ValidationFailed("generation_id", "generation ID is required")
	}
	return s.repo.GetDiagram(ctx, id)
}

// Delete removes a generation after checking ownership.
//
// ERROR ORDER: an unknown id is NotFound even for a non-owner — there is
// nothing to hide, the id namespace is not secret. An existing record
// with a different owner is Forbidden, distinct from NotFound so the
// handler can answer 403 vs 404.
func (s *GenerationService) Delete(ctx context.Context, id, ownerEmail string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("generation_id", "generation ID is required")
	}
	ownerEmail = strings.TrimSpace(ownerEmail)
	if ownerEmail == "" {
		return apperror.ValidationFailed("user_email", "user email is required")
	}

	gen, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if gen.OwnerEmail != ownerEmail {
		return apperror.Forbidden("you do not have permission to delete this project")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("generation deleted",
		slog.String("id", id),
		slog.String("owner", ownerEmail),
	)

	return nil
}

// Stats computes the derived metrics for one generation. Nothing is
// stored — everything is recomputed from the record on each call.
func (s *GenerationService) Stats(ctx context.Context, id string) (*model.GenerationStats, error) {
	gen, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	codeLines := 0
	if gen.Code != "" {
		codeLines = strings.Count(gen.Code, "\n") + 1
	}

	return &model.GenerationStats{
		GenerationID:   gen.ID,
		TargetLanguage: gen.TargetLanguage,
		CodeLines:      codeLines,
		CodeBytes:      len(gen.Code),
		DiagramBytes:   gen.DiagramSize,
		CreatedAt:      gen.CreatedAt,
		UpdatedAt:      gen.UpdatedAt,
		HasBeenRefined: gen.Refined(),
	}, nil
}
