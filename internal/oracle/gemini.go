package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/genai"
)

// Defaults for the Gemini transport. The model choice favours the cheap,
// fast tier — generation quality comes from the knowledge PDFs and the
// instruction script, not from a bigger model.
const (
	DefaultModel   = "gemini-2.5-flash-lite"
	DefaultTimeout = 2 * time.Minute
)

// Config holds everything needed to construct the Gemini client.
type Config struct {
	APIKey         string        // required — construction fails without it
	Model          string        // model id; DefaultModel if empty
	KnowledgePaths []string      // OPM reference PDFs, uploaded once at startup
	Timeout        time.Duration // per-call upper bound; DefaultTimeout if zero
}

// Gemini implements Client against Google's Gemini API.
//
/// STARTUP-TIME KNOWLEDGE BASE:
// The OPM manual and lecture PDFs are uploaded to the Files API exactly
// once, in NewGemini. Every subsequent call references the uploaded files
// by URI instead of re-sending megabytes of PDF per request — think of it
// as a warm cache of background knowledge. The resulting parts are shared
// read-only across all concurrent requests; nothing here mutates after
// construction, so no locking is needed.
//
// Missing or unuploadable knowledge documents are FATAL at startup. A
// server that silently answered without the OPM rule set loaded would
// produce garbage on every request — better to refuse to boot.
type Gemini struct {
	client    *genai.Client
	model     string
	knowledge []*genai.Part // URI references to the uploaded knowledge PDFs
	timeout   time.Duration
	logger    *slog.Logger
}

// Compile-time check that *Gemini satisfies the Client interface.
var _ Client = (*Gemini)(nil)

// NewGemini creates the client and uploads the knowledge documents.
// Call this once in the composition root and inject the instance — there
// is deliberately no package-level singleton.
func NewGemini(ctx context.Context, cfg Config, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle: Gemini API key is required")
	}
	if len(cfg.KnowledgePaths) == 0 {
		return nil, fmt.Errorf("oracle: at least one knowledge document is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("oracle: creating Gemini client: %w", err)
	}

	g := &Gemini{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}

	// Upload each knowledge PDF once and keep a URI part pointing at it.
	for _, path := range cfg.KnowledgePaths {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("oracle: knowledge document not found at %s: %w", path, err)
		}

		file, err := client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
			DisplayName: filepath.Base(path),
			MIMEType:    "application/pdf",
		})
		if err != nil {
			return nil, fmt.Errorf("oracle: uploading knowledge document %s: %w", path, err)
		}

		g.knowledge = append(g.knowledge, genai.NewPartFromURI(file.URI, file.MIMEType))

		logger.Info("knowledge document uploaded",
			slog.String("path", path),
			slog.String("uri", file.URI),
		)
	}

	return g, nil
}

// Generate asks the model to validate the diagram and produce code.
func (g *Gemini) Generate(ctx context.Context, diagram []byte, mimeType, language string) *Result {
	parts := g.assemble(diagram, mimeType,
		fmt.Sprintf("Target Programming Language: %s", language))
	return g.invoke(ctx, parts)
}

// Refine asks the model to rework previously generated code according to
// the user's fix instructions. The refinement envelope carries the target
// language, the previous code, and the instructions alongside a fresh pass
// over the diagram.
func (g *Gemini) Refine(ctx context.Context, diagram []byte, mimeType, language, previousCode, fixInstructions string) *Result {
	envelope := fmt.Sprintf(`This is a refinement request.
Target Language: %s
Previous Code:
%s

User Fix Instructions: %s

Update the OPM-to-code mapping according to these instructions while
staying strictly compliant with the OPM rules provided in the knowledge
documents. Answer with the same strict JSON structure as always.`,
		language, previousCode, fixInstructions)

	parts := g.assemble(diagram, mimeType, envelope)
	return g.invoke(ctx, parts)
}

// assemble builds the full part list for one invocation: the long-lived
// knowledge base, the fixed instruction script, the diagram bytes tagged
// with their media type, and the call-specific trailer text.
func (g *Gemini) assemble(diagram []byte, mimeType, trailer string) []*genai.Part {
	parts := make([]*genai.Part, 0, len(g.knowledge)+3)
	parts = append(parts, g.knowledge...)
	parts = append(parts,
		genai.NewPartFromText(systemPrompt),
		genai.NewPartFromBytes(diagram, mimeType),
		genai.NewPartFromText(trailer),
	)
	return parts
}

// invoke performs exactly one model call and normalizes whatever comes
// back. There is no retry: the call is billable and slow, and failures are
// surfaced (as invalid Results) rather than silently re-attempted.
//
// The timeout is the explicit upper bound on the call — without it, a
// hung upstream connection would pin the request goroutine indefinitely.
func (g *Gemini) invoke(ctx context.Context, parts []*genai.Part) *Result {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			// Forces the model into JSON output mode. This raises the odds
			// of a parseable answer — normalize() still verifies it.
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		g.logger.Error("model call failed",
			slog.String("model", g.model),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return Invalid(fmt.Sprintf("AI call failed: %v", err))
	}

	result := normalize(resp.Text())

	g.logger.Info("model call completed",
		slog.String("model", g.model),
		slog.String("status", result.Status),
		slog.Duration("duration", time.Since(start)),
	)

	return result
}
