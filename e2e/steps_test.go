package e2e

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"

	"bloodlink/internal/notification"
	"bloodlink/internal/request/models"
	"bloodlink/internal/request/service"
	id "bloodlink/pkg/domain"
)

type worldKey struct{}

func worldFrom(ctx context.Context) *world {
	return ctx.Value(worldKey{}).(*world)
}

func initializeScenario(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return context.WithValue(ctx, worldKey{}, newWorld()), nil
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		worldFrom(ctx).close()
		return ctx, err
	})

	sc.Step(`^the messaging transport is not configured$`, transportNotConfigured)
	sc.Step(`^the messaging transport accepts every message$`, transportAcceptsAll)
	sc.Step(`^the messaging transport rejects messages to "([^"]*)"$`, transportRejects)
	sc.Step(`^the following donors are registered:$`, donorsRegistered)
	sc.Step(`^a request for blood group "([^"]*)" is created$`, requestCreated)
	sc.Step(`^the request is closed$`, requestClosed)
	sc.Step(`^an unknown request is closed$`, unknownRequestClosed)
	sc.Step(`^alerts are triggered for the request$`, alertsTriggered)

	sc.Step(`^the response status is (\d+)$`, responseStatusIs)
	sc.Step(`^(\d+) notifications are recorded for the request$`, notificationsRecorded)
	sc.Step(`^every notification has status "([^"]*)"$`, everyNotificationHasStatus)
	sc.Step(`^the notification for "([^"]*)" has status "([^"]*)"$`, notificationForDonorHasStatus)
	sc.Step(`^"([^"]*)" was not notified$`, donorNotNotified)
	sc.Step(`^the close response reports a transition$`, closeTransitioned(true))
	sc.Step(`^the close response reports no transition$`, closeTransitioned(false))
	sc.Step(`^the transport received (\d+) messages$`, transportReceived)
}

func transportNotConfigured(ctx context.Context) error {
	worldFrom(ctx).twilio = nil
	return nil
}

func transportAcceptsAll(ctx context.Context) error {
	worldFrom(ctx).twilio = newFakeTwilio()
	return nil
}

func transportRejects(ctx context.Context, phone string) error {
	w := worldFrom(ctx)
	w.twilio = newFakeTwilio()
	w.twilio.reject[phone] = true
	return nil
}

func donorsRegistered(ctx context.Context, table *godog.Table) error {
	w := worldFrom(ctx)
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		name, phone, group := row.Cells[0].Value, row.Cells[1].Value, row.Cells[2].Value
		active, err := strconv.ParseBool(row.Cells[3].Value)
		if err != nil {
			return err
		}
		if err := w.do(http.MethodPost, "/donors", map[string]string{
			"name":         name,
			"phone_number": phone,
			"blood_group":  group,
		}); err != nil {
			return err
		}
		if err := w.expectStatus(http.StatusCreated); err != nil {
			return err
		}
		var created struct {
			ID string `json:"id"`
		}
		if err := w.decode(&created); err != nil {
			return err
		}
		w.donors[name] = created.ID

		if !active {
			if err := w.do(http.MethodPut, "/donors/"+created.ID+"/availability", map[string]bool{"is_active": false}); err != nil {
				return err
			}
			if err := w.expectStatus(http.StatusOK); err != nil {
				return err
			}
		}
	}
	return nil
}

func requestCreated(ctx context.Context, group string) error {
	w := worldFrom(ctx)
	if err := w.do(http.MethodPost, "/requests", map[string]string{
		"receiver_name":        "Rosa",
		"receiver_phone":       "+15550199",
		"blood_group_required": group,
		"location":             "Central Hospital",
	}); err != nil {
		return err
	}
	if err := w.expectStatus(http.StatusCreated); err != nil {
		return err
	}
	var req models.Request
	if err := w.decode(&req); err != nil {
		return err
	}
	w.requestID = req.ID.String()
	// the alert wave runs in the background
	w.requests.Wait()
	return nil
}

func requestClosed(ctx context.Context) error {
	w := worldFrom(ctx)
	return w.do(http.MethodPost, "/requests/"+w.requestID+"/close", nil)
}

func unknownRequestClosed(ctx context.Context) error {
	return worldFrom(ctx).do(http.MethodPost, "/requests/"+id.NewRequestID().String()+"/close", nil)
}

func alertsTriggered(ctx context.Context) error {
	w := worldFrom(ctx)
	return w.do(http.MethodPost, "/requests/"+w.requestID+"/alerts", nil)
}

func responseStatusIs(ctx context.Context, status int) error {
	return worldFrom(ctx).expectStatus(status)
}

func (w *world) notifications() ([]notification.Record, error) {
	saved, savedStatus := w.lastBody, w.lastStatus
	defer func() { w.lastBody, w.lastStatus = saved, savedStatus }()

	if err := w.do(http.MethodGet, "/requests/"+w.requestID+"/notifications", nil); err != nil {
		return nil, err
	}
	if err := w.expectStatus(http.StatusOK); err != nil {
		return nil, err
	}
	var records []notification.Record
	if err := w.decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

func notificationsRecorded(ctx context.Context, n int) error {
	records, err := worldFrom(ctx).notifications()
	if err != nil {
		return err
	}
	if len(records) != n {
		return fmt.Errorf("expected %d notifications, got %d", n, len(records))
	}
	return nil
}

func everyNotificationHasStatus(ctx context.Context, status string) error {
	records, err := worldFrom(ctx).notifications()
	if err != nil {
		return err
	}
	for _, r := range records {
		if string(r.DeliveryStatus) != status {
			return fmt.Errorf("notification %s has status %s, expected %s", r.ID, r.DeliveryStatus, status)
		}
	}
	return nil
}

func notificationForDonorHasStatus(ctx context.Context, name, status string) error {
	w := worldFrom(ctx)
	records, err := w.notifications()
	if err != nil {
		return err
	}
	donorID, ok := w.donors[name]
	if !ok {
		return fmt.Errorf("unknown donor %q", name)
	}
	for _, r := range records {
		if r.DonorID.String() == donorID {
			if string(r.DeliveryStatus) != status {
				return fmt.Errorf("%s: expected %s, got %s", name, status, r.DeliveryStatus)
			}
			return nil
		}
	}
	return fmt.Errorf("no notification recorded for %s", name)
}

func donorNotNotified(ctx context.Context, name string) error {
	w := worldFrom(ctx)
	records, err := w.notifications()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.DonorID.String() == w.donors[name] {
			return fmt.Errorf("%s was notified", name)
		}
	}
	return nil
}

func closeTransitioned(expected bool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var result service.CloseResult
		if err := worldFrom(ctx).decode(&result); err != nil {
			return err
		}
		if result.Transitioned != expected {
			return fmt.Errorf("expected transitioned=%t, got %t", expected, result.Transitioned)
		}
		if result.Request == nil || result.Request.Status != models.StatusClosed || result.Request.ClosedAt == nil {
			return fmt.Errorf("expected a closed request with closed_at, got %+v", result.Request)
		}
		if !expected && len(result.Outcomes) != 0 {
			return fmt.Errorf("expected no outcomes, got %d", len(result.Outcomes))
		}
		return nil
	}
}

func transportReceived(ctx context.Context, n int) error {
	w := worldFrom(ctx)
	got := 0
	if w.twilio != nil {
		got = w.twilio.Received()
	}
	if got != n {
		return fmt.Errorf("expected transport to receive %d messages, got %d", n, got)
	}
	return nil
}
