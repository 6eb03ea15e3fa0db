package errors

import "strings"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal        ErrorCode = "COMMON_001"
	ErrCodeBadRequest      ErrorCode = "COMMON_002"
	ErrCodeNotFound        ErrorCode = "COMMON_003"
	ErrCodeConflict        ErrorCode = "COMMON_004"
	ErrCodeSerialization   ErrorCode = "COMMON_005"
	ErrCodeCacheError      ErrorCode = "COMMON_006"
	ErrCodeExternalService ErrorCode = "COMMON_007"
	ErrCodeTimeout         ErrorCode = "COMMON_008"
	ErrCodeNotImplemented  ErrorCode = "COMMON_009"

	ErrCodeUnknown ErrorCode = "UNKNOWN"
	CodeOK         ErrorCode = "OK"
)

// Molecule I/O error codes
const (
	ErrCodeSourceUnreadable  ErrorCode = "IO_001"
	ErrCodeDestUnwritable    ErrorCode = "IO_002"
	ErrCodeFormatUnsupported ErrorCode = "IO_003"
	ErrCodeRecordCorrupt     ErrorCode = "IO_004"
)

// Molecule / chemistry error codes
const (
	ErrCodeMoleculeInvalidSMILES ErrorCode = "MOL_001"
	ErrCodeMoleculeParsingFailed ErrorCode = "MOL_002"
	ErrCodeDescriptorFailed      ErrorCode = "MOL_003"
	ErrCodeDescriptorUnknown     ErrorCode = "MOL_004"
)

// Dataset sharding error codes
const (
	ErrCodeShardSizeInvalid  ErrorCode = "DS_001"
	ErrCodeShardWriteFailed  ErrorCode = "DS_002"
	ErrCodeShardUploadFailed ErrorCode = "DS_003"
)

// SMILES map error codes
const (
	ErrCodeSmilesMapBareID         ErrorCode = "MAP_001"
	ErrCodeSmilesMapIDConflict     ErrorCode = "MAP_002"
	ErrCodeSmilesMapSmilesConflict ErrorCode = "MAP_003"
)

// Complex scoring error codes
const (
	ErrCodeScoringUnavailable ErrorCode = "SCORE_001"
	ErrCodeScoringFailed      ErrorCode = "SCORE_002"
)

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:        "internal error",
	ErrCodeBadRequest:      "bad request",
	ErrCodeNotFound:        "resource not found",
	ErrCodeConflict:        "resource conflict",
	ErrCodeSerialization:   "serialization failed",
	ErrCodeCacheError:      "cache error",
	ErrCodeExternalService: "external service error",
	ErrCodeTimeout:         "operation timed out",
	ErrCodeNotImplemented:  "not implemented",

	ErrCodeSourceUnreadable:  "cannot open source file",
	ErrCodeDestUnwritable:    "cannot open destination file",
	ErrCodeFormatUnsupported: "unsupported molecule file format",
	ErrCodeRecordCorrupt:     "malformed molecule record",

	ErrCodeMoleculeInvalidSMILES: "invalid SMILES format",
	ErrCodeMoleculeParsingFailed: "failed to parse molecule",
	ErrCodeDescriptorFailed:      "descriptor computation failed",
	ErrCodeDescriptorUnknown:     "unknown descriptor",

	ErrCodeShardSizeInvalid:  "invalid shard size",
	ErrCodeShardWriteFailed:  "failed to write shard",
	ErrCodeShardUploadFailed: "failed to upload shard",

	ErrCodeSmilesMapBareID:         "bare numeric identifier requires a prefix",
	ErrCodeSmilesMapIDConflict:     "identifier already maps to a different structure",
	ErrCodeSmilesMapSmilesConflict: "structure already mapped under a different identifier",

	ErrCodeScoringUnavailable: "scoring service unavailable",
	ErrCodeScoringFailed:      "complex scoring failed",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of an ErrorCode ("MOL", "DS", ...).
// It is used as a low-cardinality metric label.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
