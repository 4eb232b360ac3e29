package render

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/notification"
	id "bloodlink/pkg/domain"
)

var requestID = id.RequestID(uuid.MustParse("5b0f3c1e-8a44-4d8e-9c55-3d0b6b7a9e01"))

func alert() notification.MessageContext {
	return notification.MessageContext{
		Kind:         notification.KindAlert,
		RequestID:    requestID,
		BloodGroup:   id.BloodGroupOPos,
		Location:     "Central Hospital",
		ReceiverName: "Rosa",
	}
}

func TestRender_AlertEmbedsEveryField(t *testing.T) {
	r, err := New("", "https://bloodlink.example/")
	require.NoError(t, err)

	body := r.Render(alert())
	assert.Contains(t, body, "O+")
	assert.Contains(t, body, "Central Hospital")
	assert.Contains(t, body, "Rosa")
	assert.Contains(t, body, "https://bloodlink.example/request/"+requestID.String())
	assert.Contains(t, body, "Blood Request Alert")
}

func TestRender_Closure(t *testing.T) {
	r, err := New("en", "")
	require.NoError(t, err)

	msg := alert()
	msg.Kind = notification.KindClosure
	body := r.Render(msg)
	assert.Contains(t, body, "O+")
	assert.Contains(t, body, "Central Hospital")
	assert.Contains(t, body, "fulfilled")
	assert.NotContains(t, body, "/request/")
}

func TestRender_Locales(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"es", "Grupo sanguíneo: O+"},
		{"es-MX", "Grupo sanguíneo: O+"},
		{"pt-BR", "Tipo sanguíneo: O+"},
		{"fr", "Blood Group: O+"},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			r, err := New(tt.locale, "https://x")
			require.NoError(t, err)
			assert.Contains(t, r.Render(alert()), tt.want)
		})
	}
}

func TestNew_InvalidLocale(t *testing.T) {
	_, err := New("not a locale!", "")
	assert.Error(t, err)
}
