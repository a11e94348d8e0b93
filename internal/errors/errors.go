package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// AnchorNotFound indicates no creditable creation revision exists for a symbol
	AnchorNotFound ErrorCode = "ANCHOR_NOT_FOUND"
	// NoUsageFound indicates a symbol has zero observed call sites
	NoUsageFound ErrorCode = "NO_USAGE_FOUND"
	// InsufficientSamples indicates too few call sites to cluster reliably
	InsufficientSamples ErrorCode = "INSUFFICIENT_SAMPLES"
	// InsufficientEvidence indicates the history is too thin to anchor with confidence
	InsufficientEvidence ErrorCode = "INSUFFICIENT_EVIDENCE"
	// InvariantViolation indicates a pipeline defect (inconsistent percentages, duplicate role membership)
	InvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	// CorpusUnavailable indicates the corpus backend is not reachable (e.g. not a git repository)
	CorpusUnavailable ErrorCode = "CORPUS_UNAVAILABLE"
	// IndexMissing indicates a SCIP index was configured but not found
	IndexMissing ErrorCode = "INDEX_MISSING"
	// Timeout indicates a per-symbol pipeline exceeded its deadline
	Timeout ErrorCode = "TIMEOUT"
	// EmbeddingUnavailable indicates the embedding provider failed or is unreachable
	EmbeddingUnavailable ErrorCode = "EMBEDDING_UNAVAILABLE"
	// SymbolNotFound indicates the symbol doesn't exist in the corpus
	SymbolNotFound ErrorCode = "SYMBOL_NOT_FOUND"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// AuditError represents an engine error with code, message, and suggestions
type AuditError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new AuditError
func New(code ErrorCode, message string, cause error) *AuditError {
	return &AuditError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *AuditError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AuditError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AuditError) WithDetails(details interface{}) *AuditError {
	e.Details = details
	return e
}

// WithFixes attaches suggested fixes to the error
func (e *AuditError) WithFixes(fixes ...FixAction) *AuditError {
	e.SuggestedFixes = append(e.SuggestedFixes, fixes...)
	return e
}

// CodeOf extracts the error code from an error chain.
// Returns InternalError for non-audit errors and "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var ae *AuditError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsRecoverable reports whether the error should downgrade the symbol's
// verdict to confidence_too_low instead of producing a failure record.
func IsRecoverable(err error) bool {
	switch CodeOf(err) {
	case InsufficientSamples, InsufficientEvidence, Timeout:
		return true
	}
	return false
}
