// Package errors_test provides unit tests for the AppError type, factory
// functions, and error-chain helpers.
package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"parse error", errors.CodeStructureParse, "unbalanced ring closure 1"},
		{"store", errors.CodeStoreUnavailable, "postgres down"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestAppError_ErrorFormat(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.CodeStructureParse, "bad smiles").WithDetail("C1CC")
	assert.Equal(t, "[STRUCT_001] bad smiles: C1CC", ae.Error())

	wrapped := errors.Wrap(fmt.Errorf("boom"), errors.CodeStoreUnavailable, "lookup failed")
	assert.Equal(t, "[STORE_001] lookup failed: boom", wrapped.Error())
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "should not matter"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("connection refused")
	err := errors.Wrap(root, errors.CodeCorpusUnavailable, "save molecule")

	assert.True(t, stderrors.Is(err, root))
	assert.True(t, errors.IsCode(err, errors.CodeCorpusUnavailable))
}

func TestWrap_UnknownCodeKeepsOriginal(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeRingPerception, "too many cycles")
	outer := errors.Wrap(inner, errors.CodeUnknown, "strip")

	assert.Equal(t, errors.CodeRingPerception, errors.GetCode(outer))
}

func TestIsCode_ThroughFmtWrap(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeIsomorphism, "budget exceeded")
	outer := fmt.Errorf("molecule 42: %w", inner)

	assert.True(t, errors.IsCode(outer, errors.CodeIsomorphism))
	assert.False(t, errors.IsCode(outer, errors.CodeStructureParse))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.CodeConflict, errors.GetCode(errors.Conflict("dup")))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.CodeMoleculeNotFound, "np-1")))
	assert.False(t, errors.IsNotFound(errors.Internal("x")))
	assert.False(t, errors.IsNotFound(nil))
}

func TestIsRepositoryFailure(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsRepositoryFailure(errors.New(errors.CodeStoreUnavailable, "x")))
	assert.True(t, errors.IsRepositoryFailure(fmt.Errorf("w: %w", errors.New(errors.CodeCorpusUnavailable, "x"))))
	assert.False(t, errors.IsRepositoryFailure(errors.New(errors.CodeStructureParse, "x")))
	assert.False(t, errors.IsRepositoryFailure(stderrors.New("plain")))
}

func TestWithDetail_NilSafe(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}
