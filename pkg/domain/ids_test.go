package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bloodlink/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseRequestID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseRequestID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseRequestID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseRequestID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, RequestID(validUUID), id)
		assert.Equal(t, validUUID.String(), id.String())
	})
}

func TestParseID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE donors;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDonorID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types parse identically.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()

	_, errDonor := ParseDonorID(validUUID)
	_, errRequest := ParseRequestID(validUUID)
	_, errNotification := ParseNotificationID(validUUID)
	require.NoError(t, errDonor)
	require.NoError(t, errRequest)
	require.NoError(t, errNotification)

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errDonor := ParseDonorID(input)
			_, errRequest := ParseRequestID(input)
			_, errNotification := ParseNotificationID(input)
			require.Error(t, errDonor)
			require.Error(t, errRequest)
			require.Error(t, errNotification)
		})
	}
}

func TestNewIDs_AreNotNil(t *testing.T) {
	assert.False(t, NewDonorID().IsNil())
	assert.False(t, NewRequestID().IsNil())
	assert.False(t, NewNotificationID().IsNil())
	assert.True(t, RequestID{}.IsNil())
}

func TestIDs_JSONUsesCanonicalString(t *testing.T) {
	donorID := NewDonorID()
	b, err := json.Marshal(struct {
		ID DonorID `json:"id"`
	}{donorID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+donorID.String()+`"}`, string(b))

	var back struct {
		ID DonorID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, donorID, back.ID)
}
