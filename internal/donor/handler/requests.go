package handler

import (
	"strings"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// RegisterRequest is the body of POST /donors.
type RegisterRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone_number"`
	BloodGroup string `json:"blood_group"`
	City       string `json:"city"`

	parsedGroup id.BloodGroup
}

func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Name) > 128 || len(r.City) > 128 {
		return dErrors.New(dErrors.CodeValidation, "name and city must be at most 128 characters")
	}
	if len(r.Phone) > 32 {
		return dErrors.New(dErrors.CodeValidation, "phone_number must be at most 32 characters")
	}

	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Phone == "" {
		return dErrors.New(dErrors.CodeValidation, "phone_number is required")
	}
	group, err := id.ParseBloodGroup(r.BloodGroup)
	if err != nil {
		return err
	}
	r.parsedGroup = group
	return nil
}

// AvailabilityRequest is the body of PUT /donors/{id}/availability.
type AvailabilityRequest struct {
	Active *bool `json:"is_active"`
}

func (r *AvailabilityRequest) Validate() error {
	if r == nil || r.Active == nil {
		return dErrors.New(dErrors.CodeValidation, "is_active is required")
	}
	return nil
}
