package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes follow the MODULE_NNN convention.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
)

// Structure Service Error Codes
const (
	ErrCodeStructureParse      ErrorCode = "STRUCT_001"
	ErrCodeRingPerception      ErrorCode = "STRUCT_002"
	ErrCodeIsomorphismCheck    ErrorCode = "STRUCT_003"
	ErrCodeUnsupportedFormat   ErrorCode = "STRUCT_004"
	ErrCodeSubstructurePattern ErrorCode = "STRUCT_005"
)

// Sugar Removal Error Codes
const (
	ErrCodeSugarRemoval       ErrorCode = "SUGAR_001"
	ErrCodeLinearSugarCompile ErrorCode = "SUGAR_002"
)

// Fragment Score Store Error Codes
const (
	ErrCodeStoreUnavailable ErrorCode = "STORE_001"
	ErrCodeStoreCorrupt     ErrorCode = "STORE_002"
	ErrCodeStoreConflict    ErrorCode = "STORE_003"
	ErrCodeStoreLock        ErrorCode = "STORE_004"
)

// Molecule Corpus Error Codes
const (
	ErrCodeCorpusUnavailable ErrorCode = "CORPUS_001"
	ErrCodeMoleculeNotFound  ErrorCode = "CORPUS_002"
	ErrCodeCorpusImport      ErrorCode = "CORPUS_003"
)

// Batch Orchestrator Error Codes
const (
	ErrCodeBatchAborted   ErrorCode = "BATCH_001"
	ErrCodeBatchExhausted ErrorCode = "BATCH_002"
	ErrCodeEventPublish   ErrorCode = "BATCH_003"
	ErrCodeReportArchive  ErrorCode = "BATCH_004"
)

// Configuration Error Codes
const (
	ErrCodeConfigInvalid ErrorCode = "CONFIG_001"
	ErrCodeConfigLoad    ErrorCode = "CONFIG_002"
)

// Short aliases used at call sites.
const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")

	CodeInternal         = ErrCodeInternal
	CodeInvalidParam     = ErrCodeBadRequest
	CodeNotFound         = ErrCodeNotFound
	CodeConflict         = ErrCodeConflict
	CodeDatabaseError    = ErrCodeDatabaseError
	CodeDBQueryError     = ErrCodeDatabaseError
	CodeCacheError       = ErrCodeCacheError
	CodeSerialization    = ErrCodeSerialization
	CodeMessageQueue     = ErrCodeExternalService
	CodeStorageError     = ErrCodeExternalService
	CodeStructureParse   = ErrCodeStructureParse
	CodeRingPerception   = ErrCodeRingPerception
	CodeIsomorphism      = ErrCodeIsomorphismCheck
	CodeStoreUnavailable = ErrCodeStoreUnavailable
	CodeStoreConflict    = ErrCodeStoreConflict
	CodeStoreLock        = ErrCodeStoreLock

	CodeCorpusUnavailable = ErrCodeCorpusUnavailable
	CodeMoleculeNotFound  = ErrCodeMoleculeNotFound
	CodeConfigInvalid     = ErrCodeConfigInvalid
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes for the ops server.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,

	ErrCodeStructureParse:    http.StatusBadRequest,
	ErrCodeUnsupportedFormat: http.StatusBadRequest,
	ErrCodeStoreUnavailable:  http.StatusServiceUnavailable,
	ErrCodeCorpusUnavailable: http.StatusServiceUnavailable,
	ErrCodeMoleculeNotFound:  http.StatusNotFound,
}

// ErrorCodeMessage holds the default message per code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:            "internal error",
	ErrCodeBadRequest:          "bad request",
	ErrCodeNotFound:            "resource not found",
	ErrCodeConflict:            "resource conflict",
	ErrCodeServiceUnavailable:  "service unavailable",
	ErrCodeTimeout:             "operation timed out",
	ErrCodeValidation:          "validation failed",
	ErrCodeSerialization:       "serialization failed",
	ErrCodeDatabaseError:       "database error",
	ErrCodeCacheError:          "cache error",
	ErrCodeExternalService:     "external service error",
	ErrCodeStructureParse:      "structure could not be parsed",
	ErrCodeRingPerception:      "ring perception failed",
	ErrCodeIsomorphismCheck:    "isomorphism check failed",
	ErrCodeUnsupportedFormat:   "unsupported structure format",
	ErrCodeSubstructurePattern: "substructure pattern invalid",
	ErrCodeSugarRemoval:        "sugar removal failed",
	ErrCodeLinearSugarCompile:  "linear sugar pattern compilation failed",
	ErrCodeStoreUnavailable:    "fragment store unavailable",
	ErrCodeStoreCorrupt:        "fragment store returned a corrupt entry",
	ErrCodeStoreConflict:       "concurrent fragment creation conflict",
	ErrCodeStoreLock:           "fragment key lock failed",
	ErrCodeCorpusUnavailable:   "molecule corpus unavailable",
	ErrCodeMoleculeNotFound:    "molecule not found",
	ErrCodeCorpusImport:        "corpus import failed",
	ErrCodeBatchAborted:        "batch aborted",
	ErrCodeBatchExhausted:      "batch retries exhausted",
	ErrCodeEventPublish:        "event publish failed",
	ErrCodeReportArchive:       "report archive failed",
	ErrCodeConfigInvalid:       "invalid configuration",
	ErrCodeConfigLoad:          "configuration could not be loaded",
}

// HTTPStatusForCode returns the HTTP status for code, defaulting to 500.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for code.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of code ("STRUCT" for "STRUCT_001").
func ModuleForCode(code ErrorCode) string {
	s := string(code)
	if s == "" {
		return "UNKNOWN"
	}
	if idx := strings.Index(s, "_"); idx > 0 {
		return s[:idx]
	}
	return "UNKNOWN"
}
