package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "veil/pkg/domain-errors"
)

// TestParsePseudonym_Invariants validates the parsing invariant:
// pseudonyms must be valid, non-empty, non-nil UUIDs.
func TestParsePseudonym_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParsePseudonym("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParsePseudonym("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParsePseudonym(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts freshly minted pseudonym", func(t *testing.T) {
		p := NewPseudonym()
		parsed, err := ParsePseudonym(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	})
}

func TestNewPseudonymIsUnique(t *testing.T) {
	seen := make(map[Pseudonym]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		p := NewPseudonym()
		_, dup := seen[p]
		require.False(t, dup, "pseudonym repeated")
		seen[p] = struct{}{}
	}
}

func TestRowIDRoundTrip(t *testing.T) {
	pid, err := ParsePersonalRowID(PersonalRowID(42).String())
	require.NoError(t, err)
	assert.Equal(t, PersonalRowID(42), pid)

	aid, err := ParseAuthRowID(AuthRowID(7).String())
	require.NoError(t, err)
	assert.Equal(t, AuthRowID(7), aid)
}

func TestRowIDRejectsGarbage(t *testing.T) {
	_, err := ParsePersonalRowID("garbage")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeIntegrityViolation))

	_, err = ParseAuthRowID("")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeIntegrityViolation))
}
