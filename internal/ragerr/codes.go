// Package ragerr provides structured error handling for ragd.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Persisted store errors
//   - 3XX: Embedding backend errors
//   - 4XX: Validation errors
//   - 5XX: Internal / lifecycle errors
package ragerr

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStore indicates persisted index store errors.
	CategoryStore Category = "STORE"
	// CategoryEmbedding indicates embedding backend errors.
	CategoryEmbedding Category = "EMBEDDING"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates a degraded but acceptable outcome.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	CodeConfigInvalid = "ERR_101_CONFIG_INVALID"

	// Store errors (200-299)
	CodeIndexNotFound   = "ERR_201_INDEX_NOT_FOUND"
	CodeCorruptIndex    = "ERR_202_CORRUPT_INDEX"
	CodeVersionMismatch = "ERR_203_VERSION_MISMATCH"
	CodeStoreIO         = "ERR_204_STORE_IO"

	// Embedding and model backend errors (300-399)
	CodeEmbeddingFailed  = "ERR_301_EMBEDDING_FAILED"
	CodeGenerationFailed = "ERR_302_GENERATION_FAILED"

	// Validation errors (400-499)
	CodeEmptyInput        = "ERR_401_EMPTY_INPUT"
	CodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	CodeInvalidQuery      = "ERR_403_INVALID_QUERY"

	// Internal errors (500-599)
	CodeIndexUnavailable = "ERR_501_INDEX_UNAVAILABLE"
	CodeInternal         = "ERR_502_INTERNAL"
)

// categoryFromCode extracts the category from an error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStore
	case '3':
		return CategoryEmbedding
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case CodeCorruptIndex, CodeVersionMismatch:
		// Malformed persisted state requires re-ingestion; nothing short of
		// operator intervention recovers it.
		return SeverityFatal
	case CodeEmptyInput:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether retrying the failed operation may help.
// Embedding backend failures are retryable by the caller (never internally),
// and so is "index unavailable": it clears once an ingest completes.
func isRetryableCode(code string) bool {
	switch code {
	case CodeEmbeddingFailed, CodeGenerationFailed, CodeIndexUnavailable:
		return true
	default:
		return false
	}
}
