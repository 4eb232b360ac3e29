// Package notification fans messages out to donors and records what happened
// to each attempt in an append-only ledger.
package notification

import (
	"time"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Kind selects the message wording.
type Kind string

const (
	KindAlert   Kind = "alert"
	KindClosure Kind = "closure"
)

func (k Kind) IsValid() bool {
	return k == KindAlert || k == KindClosure
}

// DeliveryStatus is the recorded result of one send attempt.
//
//   - sent: the transport acknowledged the message
//   - failed: the transport answered but rejected it
//   - error: the call did not complete (network, timeout, malformed reply)
//   - skipped: no transport is configured; applied to every target alike
type DeliveryStatus string

const (
	StatusSent    DeliveryStatus = "sent"
	StatusFailed  DeliveryStatus = "failed"
	StatusError   DeliveryStatus = "error"
	StatusSkipped DeliveryStatus = "skipped"
)

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case StatusSent, StatusFailed, StatusError, StatusSkipped:
		return true
	}
	return false
}

func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	status := DeliveryStatus(s)
	if !status.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid delivery status")
	}
	return status, nil
}

// MessageContext holds everything a rendered message may embed.
type MessageContext struct {
	Kind         Kind
	RequestID    id.RequestID
	BloodGroup   id.BloodGroup
	Location     string
	ReceiverName string
}

// Validate rejects contexts that cannot identify the request they describe.
func (m MessageContext) Validate() error {
	if !m.Kind.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown message kind")
	}
	if m.RequestID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "message context requires a request id")
	}
	return nil
}

// Outcome is the result of a single attempt, before it is stored.
type Outcome struct {
	RequestID id.RequestID   `json:"request_id"`
	DonorID   id.DonorID     `json:"donor_id"`
	Status    DeliveryStatus `json:"delivery_status"`
}

// Record is a stored ledger entry. Records are never updated or deleted; a
// donor may have one per wave for the same request.
type Record struct {
	ID             id.NotificationID `json:"id"`
	RequestID      id.RequestID      `json:"request_id"`
	DonorID        id.DonorID        `json:"donor_id"`
	DeliveryStatus DeliveryStatus    `json:"delivery_status"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Summary counts outcomes by status.
type Summary map[DeliveryStatus]int

func Summarize(outcomes []Outcome) Summary {
	s := Summary{}
	for _, o := range outcomes {
		s[o.Status]++
	}
	return s
}
