package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "COMMON_001", ErrCodeInternal.String())
}

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeInternal, 500},
		{ErrCodeBadRequest, 400},
		{ErrCodeNotFound, 404},
		{ErrCodeStructureParse, 400},
		{ErrCodeStoreUnavailable, 503},
		{ErrorCode("UNKNOWN"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatusForCode(tt.code))
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "internal error", DefaultMessageForCode(ErrCodeInternal))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("NOPE")))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
	assert.Equal(t, "STRUCT", ModuleForCode(ErrCodeStructureParse))
	assert.Equal(t, "STORE", ModuleForCode(ErrCodeStoreConflict))
	assert.Equal(t, "BATCH", ModuleForCode(ErrCodeBatchAborted))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("")))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("NOUNDERSCORE")))
}

func TestErrorCodeFormat_Convention(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	for code := range ErrorCodeMessage {
		assert.Regexp(t, re, string(code))
	}
}
