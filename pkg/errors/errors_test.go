package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorIs(t *testing.T) {
	err := NewValidationError("name", "", "must not be empty")
	assert.True(t, stderrors.Is(err, ErrInvalidInput))
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "name")
}

func TestParseErrorWrapping(t *testing.T) {
	cause := New("unexpected end of JSON input")
	err := WrapParse("cyclonedx", "trivy", cause)

	assert.True(t, stderrors.Is(err, ErrInvalidInput))
	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "trivy")

	assert.Nil(t, WrapParse("cyclonedx", "trivy", nil))
}

func TestSourceErrorWrapping(t *testing.T) {
	cause := NewValidationError("packages", nil, "missing")
	err := WrapSource("syft", "unit-1", cause)

	var srcErr *SourceError
	assert.True(t, stderrors.As(err, &srcErr))
	assert.Equal(t, "syft", srcErr.Source)
	assert.True(t, IsValidationError(err), "source wrapping preserves the cause chain")
}

func TestMergeErrorSentinels(t *testing.T) {
	empty := NewMergeError("unit-1", "nothing selected", ErrEmptyResult)
	assert.True(t, IsEmptyResult(empty))
	assert.False(t, IsNoPackages(empty))

	precondition := NewMergeError("unit-1", "no packages", ErrNoPackages)
	assert.True(t, IsNoPackages(precondition))
	assert.Contains(t, precondition.Error(), "unit-1")
}

func TestNotFound(t *testing.T) {
	err := NewNotFoundError("merged document", "unit-1")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(New("other")))
}
