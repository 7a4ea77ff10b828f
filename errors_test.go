package zxorm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWrapping(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")

	err := queryErr("user", "find", cause)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "zxorm: querying user (find)")
	assert.NoError(t, queryErr("user", "find", nil))

	err = mutationErr("user", "insert", cause)
	require.Error(t, err)
	var me *MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "insert", me.Op)
	assert.False(t, IsConstraint(err))
	assert.NoError(t, mutationErr("user", "insert", nil))
}

func TestMutationErrClassifiesConstraints(t *testing.T) {
	t.Parallel()
	cause := errors.New("UNIQUE constraint failed: user.name")
	err := mutationErr("user", "insert", cause)
	assert.True(t, IsConstraint(err))

	var ce *ConstraintError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "user", ce.Table)
	assert.ErrorIs(t, err, cause)
}

func TestValidationError(t *testing.T) {
	t.Parallel()
	err := error(&ValidationError{Name: "table user", Err: errors.New("no columns")})
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(errors.New("other")))
	assert.Contains(t, err.Error(), "zxorm: invalid table user")
}
