package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	e := New(ErrCodeSourceUnreadable, "cannot open dataset")
	assert.Equal(t, "[IO_001] cannot open dataset", e.Error())

	withDetail := e.WithDetail("path=/tmp/mols.sdf.gz")
	assert.Equal(t, "[IO_001] cannot open dataset: path=/tmp/mols.sdf.gz", withDetail.Error())
	// WithDetail must not mutate the receiver.
	assert.Empty(t, e.Detail)
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeShardWriteFailed, "close shard"))
}

func TestWrap_PreservesCodeOnUnknown(t *testing.T) {
	inner := New(ErrCodeSmilesMapIDConflict, "duplicate id")
	outer := Wrap(inner, ErrCodeUnknown, "import failed")
	assert.Equal(t, ErrCodeSmilesMapIDConflict, outer.Code)
	assert.True(t, stderrors.Is(outer, outer))

	var ae *AppError
	require.True(t, stderrors.As(outer, &ae))
}

func TestIsCode_TraversesChain(t *testing.T) {
	inner := New(ErrCodeRecordCorrupt, "truncated molblock")
	middle := Wrap(inner, ErrCodeShardWriteFailed, "shard 3")
	outer := fmt.Errorf("sharding aborted: %w", middle)

	assert.True(t, IsCode(outer, ErrCodeRecordCorrupt))
	assert.True(t, IsCode(outer, ErrCodeShardWriteFailed))
	assert.False(t, IsCode(outer, ErrCodeNotFound))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(New(ErrCodeSmilesMapBareID, "bare id")))
	assert.True(t, IsValidation(New(ErrCodeSmilesMapIDConflict, "id conflict")))
	assert.True(t, IsValidation(New(ErrCodeSmilesMapSmilesConflict, "smiles conflict")))
	assert.False(t, IsValidation(New(ErrCodeSourceUnreadable, "io")))
	assert.False(t, IsValidation(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, ErrCodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrCodeConflict, GetCode(Conflict("busy")))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "MAP", ModuleForCode(ErrCodeSmilesMapBareID))
	assert.Equal(t, "IO", ModuleForCode(ErrCodeDestUnwritable))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("")))
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "invalid shard size", DefaultMessageForCode(ErrCodeShardSizeInvalid))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("NOPE_999")))
}
