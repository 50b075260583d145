package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Wrap(cause, CodeStoreUnavailable, "personal store unreachable")

	require.True(t, errors.Is(err, cause))
	assert.True(t, HasCode(err, CodeStoreUnavailable))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.Equal(t, CodeStoreUnavailable, CodeOf(err))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := New(CodeDuplicateEmail, "email already registered")
	outer := fmt.Errorf("create user: %w", inner)

	assert.True(t, HasCode(outer, CodeDuplicateEmail))
	assert.Equal(t, CodeDuplicateEmail, CodeOf(outer))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestSummaryDoesNotRequireCause(t *testing.T) {
	err := New(CodeNotFound, "user not found")
	assert.Equal(t, "not_found: user not found", err.Error())
}
