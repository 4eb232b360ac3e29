package domain

import (
	"github.com/google/uuid"

	dErrors "bloodlink/pkg/domain-errors"
)

// Typed identifiers keep donor, request and notification IDs from being
// swapped at call sites. All are UUID-backed and parsed at trust boundaries.
type (
	DonorID        uuid.UUID
	RequestID      uuid.UUID
	NotificationID uuid.UUID
)

func NewDonorID() DonorID               { return DonorID(uuid.New()) }
func NewRequestID() RequestID           { return RequestID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

func (id DonorID) String() string        { return uuid.UUID(id).String() }
func (id RequestID) String() string      { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

func (id DonorID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseDonorID parses a non-nil UUID donor identifier.
func ParseDonorID(s string) (DonorID, error) {
	u, err := parseUUID(s, "donor id")
	return DonorID(u), err
}

// ParseRequestID parses a non-nil UUID request identifier.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s, "request id")
	return RequestID(u), err
}

// ParseNotificationID parses a non-nil UUID notification identifier.
func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s, "notification id")
	return NotificationID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

// Text marshaling keeps IDs in their canonical string form in JSON bodies
// and event payloads.

func (id DonorID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id RequestID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id NotificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *DonorID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RequestID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *NotificationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
