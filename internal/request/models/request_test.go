package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/testutil"
)

func TestNewRequest(t *testing.T) {
	now := time.Date(2025, 2, 2, 12, 0, 0, 0, time.UTC)

	r, err := NewRequest(id.NewRequestID(), " Rosa ", "+1", id.BloodGroupABNeg, "Central Hospital", now)
	require.NoError(t, err)
	assert.Equal(t, "Rosa", r.ReceiverName)
	assert.Equal(t, StatusOpen, r.Status)
	assert.Nil(t, r.ClosedAt)

	tests := []struct {
		name, receiver, phone, location string
		group                           id.BloodGroup
	}{
		{"no receiver", "", "+1", "X", id.BloodGroupAPos},
		{"no phone", "Rosa", " ", "X", id.BloodGroupAPos},
		{"no location", "Rosa", "+1", "", id.BloodGroupAPos},
		{"bad group", "Rosa", "+1", "X", id.BloodGroup("C")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequest(id.NewRequestID(), tt.receiver, tt.phone, tt.group, tt.location, now)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		})
	}
}

func TestClose_OnlyOnce(t *testing.T) {
	first := time.Date(2025, 2, 2, 12, 0, 0, 0, time.UTC)

	testutil.Given(t, "an open request", func(t *testing.T) {
		r, err := NewRequest(id.NewRequestID(), "Rosa", "+1", id.BloodGroupOPos, "X", first)
		require.NoError(t, err)

		testutil.When(t, "it is closed", func(t *testing.T) {
			assert.True(t, r.Close(first))

			testutil.Then(t, "closed_at is stamped", func(t *testing.T) {
				assert.Equal(t, StatusClosed, r.Status)
				require.NotNil(t, r.ClosedAt)
				assert.Equal(t, first, *r.ClosedAt)
			})
		})

		testutil.When(t, "it is closed again", func(t *testing.T) {
			assert.False(t, r.Close(first.Add(time.Hour)))

			testutil.Then(t, "closed_at is unchanged", func(t *testing.T) {
				assert.Equal(t, first, *r.ClosedAt)
			})
		})
	})
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Open ")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, s)

	_, err = ParseStatus("pending")
	assert.Error(t, err)
}
