// Package oracle wraps the Gemini model behind a strict, closed contract.
//
// THE BOUNDARY RULE:
// The model is an untyped-text-producing black box. Nothing it returns is
// trusted: not the transport (calls fail), not the payload (models emit
// malformed JSON), not the fields (models forget keys or invent statuses).
// Every invocation is forced through one normalization step that produces
// a well-formed Result — callers of this package NEVER see a malformed or
// partial outcome, and never see a raw transport error.
//
// Each Generate/Refine call invokes the model exactly once. There is no
// retry loop anywhere: the call is billable and slow, and a duplicate
// invocation is worse than a reported failure. If a caller wants to retry,
// that's its own explicit decision.
package oracle

import "context"

// Result statuses. The model must answer with exactly one of these; any
// other value is itself a contract violation and normalizes to invalid.
const (
	StatusValid   = "valid"
	StatusInvalid = "invalid"
)

// Result is the closed outcome of one model invocation.
//
// INVARIANT: an invalid Result always has empty Code and Filename, no
// matter what the raw payload contained. A model that says "invalid" but
// still ships code is not trusted to have produced usable code.
type Result struct {
	Status      string // StatusValid or StatusInvalid, nothing else
	Filename    string // suggested output filename (valid results only)
	Code        string // generated source code (valid results only)
	Explanation string // human-readable reasoning, or the failure diagnostic
}

// Valid reports whether the model judged the diagram a valid OPM model.
func (r *Result) Valid() bool {
	return r.Status == StatusValid
}

// Invalid builds a well-formed invalid Result carrying a diagnostic
// explanation. Used for both "the model said no" and "the call failed" —
// by design the two are indistinguishable except through the explanation
// text, so the rest of the system has a single failure path.
func Invalid(explanation string) *Result {
	return &Result{
		Status:      StatusInvalid,
		Explanation: explanation,
	}
}

// Client is the interface the generation service consumes.
//
// WHY NO error RETURN?
// Normalization IS the contract: every failure mode — network, quota,
// unparseable payload, missing field — becomes an invalid Result with a
// diagnostic explanation. Returning (Result, error) would reopen the
// two-failure-paths problem this package exists to close.
//
// Both methods block for up to the configured per-call timeout; pass the
// request context so an aborted server shutdown can still bound the call.
type Client interface {
	// Generate asks the model to validate the diagram and translate it
	// into source code in the target language.
	Generate(ctx context.Context, diagram []byte, mimeType, language string) *Result

	// Refine asks the model to update previously generated code according
	// to the user's fix instructions, re-reading the diagram.
	Refine(ctx context.Context, diagram []byte, mimeType, language, previousCode, fixInstructions string) *Result
}
