package twilio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/notification"
	"bloodlink/internal/platform/logger"
	"bloodlink/pkg/platform/circuit"
)

func newClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	return New(Config{
		BaseURL:    srv.URL,
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "+14155238886",
		Timeout:    time.Second,
	}, opts...)
}

func TestSend_Accepted(t *testing.T) {
	var form url.Values
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	})

	receipt, err := client.Send(context.Background(), notification.OutboundMessage{To: "+15550100", Body: "hello"})
	require.NoError(t, err)
	assert.True(t, receipt.Accepted)
	assert.Equal(t, "SM1", receipt.MessageID)
	assert.Equal(t, notification.StatusSent, notification.Classify(receipt, err))

	assert.Equal(t, "whatsapp:+14155238886", form.Get("From"))
	assert.Equal(t, "whatsapp:+15550100", form.Get("To"))
	assert.Equal(t, "hello", form.Get("Body"))
}

func TestSend_AlreadyPrefixedAddressesAreNotDoubled(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM2"}`))
	}))
	t.Cleanup(srv.Close)
	client := New(Config{
		BaseURL:    srv.URL,
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "whatsapp:+14155238886",
	}, WithLogger(logger.Discard()))

	_, err := client.Send(context.Background(), notification.OutboundMessage{To: "whatsapp:+15550100", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "whatsapp:+14155238886", form.Get("From"))
	assert.Equal(t, "whatsapp:+15550100", form.Get("To"))
}

func TestWhatsAppAddress(t *testing.T) {
	tests := map[string]string{
		"+15550100":          "whatsapp:+15550100",
		" +15550100 ":        "whatsapp:+15550100",
		"whatsapp:+15550100": "whatsapp:+15550100",
	}
	for in, want := range tests {
		assert.Equal(t, want, whatsAppAddress(in), in)
	}
}

func TestSend_Rejected(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"invalid To"}`))
	})

	receipt, err := client.Send(context.Background(), notification.OutboundMessage{To: "bad", Body: "x"})
	require.NoError(t, err)
	assert.False(t, receipt.Accepted)
	assert.Equal(t, http.StatusBadRequest, receipt.StatusCode)
	assert.Equal(t, notification.StatusFailed, notification.Classify(receipt, err))
}

func TestSend_MalformedSuccessBodyIsError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<html>`))
	})

	receipt, err := client.Send(context.Background(), notification.OutboundMessage{To: "+1", Body: "x"})
	require.Error(t, err)
	assert.Equal(t, notification.StatusError, notification.Classify(receipt, err))
}

func TestSend_NetworkErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	client := New(Config{BaseURL: srv.URL, AccountSID: "AC1", AuthToken: "t", From: "whatsapp:+1"}, WithLogger(logger.Discard()))

	receipt, err := client.Send(context.Background(), notification.OutboundMessage{To: "+1", Body: "x"})
	require.Error(t, err)
	assert.Equal(t, notification.StatusError, notification.Classify(receipt, err))
}

func TestSend_TimeoutIsError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))

	_, err := client.Send(context.Background(), notification.OutboundMessage{To: "+1", Body: "x"})
	assert.Error(t, err)
}

func TestSend_BreakerOpensAfterServerErrors(t *testing.T) {
	var calls atomic.Int32
	breaker := circuit.New("twilio", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithBreaker(breaker))

	ctx := context.Background()
	for range 2 {
		receipt, err := client.Send(ctx, notification.OutboundMessage{To: "+1", Body: "x"})
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, notification.Classify(receipt, err))
	}
	assert.True(t, breaker.IsOpen())

	receipt, err := client.Send(ctx, notification.OutboundMessage{To: "+1", Body: "x"})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, notification.StatusError, notification.Classify(receipt, err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSend_ClientRejectionsDoNotTripBreaker(t *testing.T) {
	breaker := circuit.New("twilio", circuit.WithFailureThreshold(1))
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, WithBreaker(breaker))

	for range 3 {
		_, err := client.Send(context.Background(), notification.OutboundMessage{To: "+1", Body: "x"})
		require.NoError(t, err)
	}
	assert.False(t, breaker.IsOpen())
}
