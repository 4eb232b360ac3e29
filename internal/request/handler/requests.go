package handler

import (
	"strings"

	"bloodlink/internal/request/models"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// CreateRequest is the body of POST /requests.
type CreateRequest struct {
	ReceiverName  string `json:"receiver_name"`
	ReceiverPhone string `json:"receiver_phone"`
	BloodGroup    string `json:"blood_group_required"`
	Location      string `json:"location"`

	parsedGroup id.BloodGroup
}

func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.ReceiverName) > 128 || len(r.Location) > 256 {
		return dErrors.New(dErrors.CodeValidation, "receiver_name or location is too long")
	}
	if len(r.ReceiverPhone) > 32 {
		return dErrors.New(dErrors.CodeValidation, "receiver_phone must be at most 32 characters")
	}

	r.ReceiverName = strings.TrimSpace(r.ReceiverName)
	r.ReceiverPhone = strings.TrimSpace(r.ReceiverPhone)
	r.Location = strings.TrimSpace(r.Location)
	if r.ReceiverName == "" {
		return dErrors.New(dErrors.CodeValidation, "receiver_name is required")
	}
	if r.ReceiverPhone == "" {
		return dErrors.New(dErrors.CodeValidation, "receiver_phone is required")
	}
	if r.Location == "" {
		return dErrors.New(dErrors.CodeValidation, "location is required")
	}
	group, err := id.ParseBloodGroup(r.BloodGroup)
	if err != nil {
		return err
	}
	r.parsedGroup = group
	return nil
}

func parseStatusFilter(raw string) (*models.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	status, err := models.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	return &status, nil
}
