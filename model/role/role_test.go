package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPair(t *testing.T) {
	type testCase struct {
		name     string
		creator  Role
		expected Role
	}
	tests := []testCase{
		{name: "treasurer approved by assistant", creator: Treasurer, expected: AssistantTreasurer},
		{name: "assistant approved by treasurer", creator: AssistantTreasurer, expected: Treasurer},
		{name: "coach approved by treasurer", creator: Coach, expected: Treasurer},
		{name: "member approved by treasurer", creator: TeamMember, expected: Treasurer},
		{name: "unknown has no pair", creator: Unknown, expected: Unknown},
		{name: "out of range has no pair", creator: Role(42), expected: Unknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Pair(tc.creator))
		})
	}
}

func TestPairIsTotal(t *testing.T) {
	for _, r := range All() {
		paired := Pair(r)
		assert.True(t, paired.CanApprove(), "role %v pairs to non approver %v", r, paired)
		assert.NotEqual(t, r, paired, "role %v pairs to itself", r)
	}
}

func TestParse(t *testing.T) {
	r, err := Parse(" assistant_treasurer ")
	require.NoError(t, err)
	assert.Equal(t, AssistantTreasurer, r)

	r, err = Parse("member")
	require.NoError(t, err)
	assert.Equal(t, TeamMember, r)
	text, err := TeamMember.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "MEMBER", string(text))

	_, err = Parse("auditor")
	assert.Error(t, err)

	var decoded Role
	require.NoError(t, decoded.UnmarshalText([]byte("TREASURER")))
	assert.Equal(t, Treasurer, decoded)

	_, err = Unknown.MarshalText()
	assert.Error(t, err)
}
