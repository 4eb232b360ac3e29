package models

import (
	"strings"
	"time"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Donor is a registered blood donor.
//
// Invariants:
//   - Phone is non-empty; it is the messaging channel address
//   - BloodGroup is one of the eight supported tokens
//   - IsActive gates matching; inactive donors are never alerted
//
// The notification pipeline treats donors as read-only.
type Donor struct {
	ID         id.DonorID    `json:"id"`
	Name       string        `json:"name"`
	Phone      string        `json:"phone_number"`
	BloodGroup id.BloodGroup `json:"blood_group"`
	City       string        `json:"city"`
	IsActive   bool          `json:"is_active"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewDonor validates and constructs an active donor.
func NewDonor(donorID id.DonorID, name, phone string, group id.BloodGroup, city string, now time.Time) (*Donor, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "donor name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "donor name must be 128 characters or less")
	}
	if phone == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "donor phone cannot be empty")
	}
	if !group.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "donor blood group is invalid")
	}
	return &Donor{
		ID:         donorID,
		Name:       name,
		Phone:      phone,
		BloodGroup: group,
		City:       strings.TrimSpace(city),
		IsActive:   true,
		CreatedAt:  now,
	}, nil
}

// Eligible reports whether the donor should be alerted for group.
func (d Donor) Eligible(group id.BloodGroup) bool {
	return d.IsActive && d.BloodGroup == group
}
