package models

import (
	"strings"
	"time"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Status is the lifecycle state of a request.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusClosed
}

func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status must be open or closed")
	}
	return status, nil
}

// Request is a call for blood on behalf of a receiver.
//
// Invariants:
//   - Status moves open -> closed once and never back
//   - ClosedAt is set iff Status is closed
type Request struct {
	ID                 id.RequestID  `json:"id"`
	ReceiverName       string        `json:"receiver_name"`
	ReceiverPhone      string        `json:"receiver_phone"`
	BloodGroupRequired id.BloodGroup `json:"blood_group_required"`
	Location           string        `json:"location"`
	Status             Status        `json:"status"`
	CreatedAt          time.Time     `json:"created_at"`
	ClosedAt           *time.Time    `json:"closed_at,omitempty"`
}

// NewRequest validates input and returns an open request.
func NewRequest(requestID id.RequestID, receiverName, receiverPhone string, group id.BloodGroup, location string, now time.Time) (*Request, error) {
	receiverName = strings.TrimSpace(receiverName)
	receiverPhone = strings.TrimSpace(receiverPhone)
	location = strings.TrimSpace(location)
	if receiverName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "receiver name cannot be empty")
	}
	if receiverPhone == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "receiver phone cannot be empty")
	}
	if location == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "location cannot be empty")
	}
	if !group.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "required blood group is invalid")
	}
	return &Request{
		ID:                 requestID,
		ReceiverName:       receiverName,
		ReceiverPhone:      receiverPhone,
		BloodGroupRequired: group,
		Location:           location,
		Status:             StatusOpen,
		CreatedAt:          now,
	}, nil
}

func (r *Request) IsOpen() bool {
	return r.Status == StatusOpen
}

// Close applies the open -> closed transition. It reports false and leaves
// the request untouched when it is already closed.
func (r *Request) Close(now time.Time) bool {
	if !r.IsOpen() {
		return false
	}
	r.Status = StatusClosed
	closedAt := now
	r.ClosedAt = &closedAt
	return true
}
