package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	donorhandler "bloodlink/internal/donor/handler"
	donorservice "bloodlink/internal/donor/service"
	donorstore "bloodlink/internal/donor/store"
	"bloodlink/internal/matching"
	"bloodlink/internal/notification"
	notificationstore "bloodlink/internal/notification/store"
	"bloodlink/internal/notification/render"
	"bloodlink/internal/notification/transport/twilio"
	"bloodlink/internal/platform/logger"
	requesthandler "bloodlink/internal/request/handler"
	requestservice "bloodlink/internal/request/service"
	requeststore "bloodlink/internal/request/store"
	httptransport "bloodlink/internal/transport/http"
)

const (
	fakeAccountSID = "AC00000000000000000000000000000000"
	fakeSender     = "+15550000"
)

// fakeTwilio answers the Messages API, rejecting configured recipients.
type fakeTwilio struct {
	*httptest.Server

	mu       sync.Mutex
	reject   map[string]bool
	received int
}

func newFakeTwilio() *fakeTwilio {
	f := &fakeTwilio{reject: map[string]bool{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

func (f *fakeTwilio) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	to := strings.TrimPrefix(r.PostForm.Get("To"), "whatsapp:")

	f.mu.Lock()
	f.received++
	seq := f.received
	rejected := f.reject[to]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if rejected {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":63003,"message":"invalid destination"}`))
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = fmt.Fprintf(w, `{"sid":"SM%d","status":"queued"}`, seq)
}

func (f *fakeTwilio) Received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.received
}

// world is the per-scenario state: an in-process bloodlink server, an
// optional fake Twilio, and what earlier steps produced.
type world struct {
	twilio   *fakeTwilio
	server   *httptest.Server
	requests *requesthandler.Handler

	donors    map[string]string
	requestID string

	lastStatus int
	lastBody   []byte
}

func newWorld() *world {
	return &world{donors: map[string]string{}}
}

func (w *world) start() error {
	if w.server != nil {
		return nil
	}
	log := logger.Discard()

	donors := donorstore.NewInMemoryStore()
	ledger := notification.NewLedger(notificationstore.NewInMemoryStore(), notification.WithLedgerLogger(log))
	renderer, err := render.New("en", "http://bloodlink.test")
	if err != nil {
		return err
	}
	dispatchOpts := []notification.DispatcherOption{notification.WithDispatcherLogger(log)}
	if w.twilio != nil {
		dispatchOpts = append(dispatchOpts, notification.WithTransport(twilio.New(twilio.Config{
			BaseURL:    w.twilio.URL,
			AccountSID: fakeAccountSID,
			AuthToken:  "secret",
			From:       fakeSender,
		}, twilio.WithLogger(log))))
	}
	dispatcher := notification.NewDispatcher(renderer, ledger, dispatchOpts...)

	svc := requestservice.New(
		requeststore.NewInMemoryStore(),
		matching.New(donors, matching.WithLogger(log)),
		dispatcher,
		ledger,
		donors,
		requestservice.WithLogger(log),
	)
	w.requests = requesthandler.New(svc, log)
	router := httptransport.NewRouter(httptransport.Options{Logger: log},
		donorhandler.New(donorservice.New(donors, donorservice.WithLogger(log)), log),
		w.requests,
	)
	w.server = httptest.NewServer(router)
	return nil
}

func (w *world) close() {
	if w.requests != nil {
		w.requests.Wait()
	}
	if w.server != nil {
		w.server.Close()
	}
	if w.twilio != nil {
		w.twilio.Close()
	}
}

func (w *world) do(method, path string, body any) error {
	if err := w.start(); err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, w.server.URL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.server.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	w.lastBody, err = io.ReadAll(resp.Body)
	w.lastStatus = resp.StatusCode
	return err
}

func (w *world) decode(v any) error {
	if err := json.Unmarshal(w.lastBody, v); err != nil {
		return fmt.Errorf("decode response (status %d): %w: %s", w.lastStatus, err, w.lastBody)
	}
	return nil
}

func (w *world) expectStatus(status int) error {
	if w.lastStatus != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, w.lastStatus, w.lastBody)
	}
	return nil
}
